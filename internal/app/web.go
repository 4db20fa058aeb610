package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/uav_simulator/internal/telemetry"
)

const (
	wsWriteTimeout  = 2 * time.Second
	maxCommandBytes = 1 << 20
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local monitoring only
	},
}

// WebServer is the optional local monitoring surface of one simulator.
type WebServer struct {
	sim *Simulator
	hub *telemetryHub
	mux *http.ServeMux
}

// NewWebServer registers itself as a telemetry sink on sim, so it must be
// created before sim.Run.
func NewWebServer(sim *Simulator) *WebServer {
	ws := &WebServer{sim: sim, hub: newTelemetryHub(), mux: http.NewServeMux()}
	sim.AddSink(ws.hub.broadcast)

	ws.mux.HandleFunc("/health", ws.health)
	ws.mux.HandleFunc("/api/telemetry", ws.latestTelemetry)
	ws.mux.HandleFunc("/api/state", ws.vehicleState)
	ws.mux.HandleFunc("/api/command", ws.postCommand)
	ws.mux.HandleFunc("/ws/telemetry", ws.streamTelemetry)
	return ws
}

func (ws *WebServer) Handler() http.Handler { return ws.mux }

// ListenAndServe serves until ctx is cancelled.
func (ws *WebServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           ws.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("web: shutdown error: %v", err)
		}
	}()

	log.Printf("web: server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *WebServer) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (ws *WebServer) latestTelemetry(w http.ResponseWriter, r *http.Request) {
	payload, ok := ws.sim.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(payload)
}

// stateView is the debug view of the full vehicle state.
type stateView struct {
	ID         string             `json:"uavCode"`
	Status     string             `json:"status"`
	MissionID  string             `json:"missionId,omitempty"`
	Battery    float64            `json:"battery"`
	Position   [2]float64         `json:"position"`
	Home       [2]float64         `json:"home"`
	Altitude   float64            `json:"alt"`
	Route      [][2]float64       `json:"route"`
	RouteIndex int                `json:"routeIndex"`
	Sensors    map[string]float64 `json:"sensors"`
}

func (ws *WebServer) vehicleState(w http.ResponseWriter, r *http.Request) {
	st := ws.sim.State()
	view := stateView{
		ID:         st.ID,
		Status:     string(st.Mission),
		MissionID:  st.MissionID,
		Battery:    st.Battery,
		Position:   [2]float64{st.Position.Lat, st.Position.Lng},
		Home:       [2]float64{st.Home.Lat, st.Home.Lng},
		Altitude:   st.Altitude,
		Route:      [][2]float64{},
		RouteIndex: st.RouteIndex,
		Sensors:    st.Sensors,
	}
	for _, p := range st.Route {
		view.Route = append(view.Route, [2]float64{p.Lat, p.Lng})
	}
	writeJSON(w, http.StatusOK, view)
}

func (ws *WebServer) postCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	if err := ws.sim.Commands().Apply(body); err != nil {
		log.Printf("web: command rejected: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": "rejected", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

func (ws *WebServer) streamTelemetry(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := ws.hub.subscribe()
	defer unsubscribe()

	// The client never sends anything useful; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case payload := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// telemetryHub fans telemetry payloads out to websocket clients. Slow
// clients drop frames instead of stalling the tick loop.
type telemetryHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newTelemetryHub() *telemetryHub {
	return &telemetryHub{subs: map[chan []byte]struct{}{}}
}

func (h *telemetryHub) subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *telemetryHub) broadcast(_ telemetry.Message, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
		}
	}
}
