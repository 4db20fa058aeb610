package command

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/relabs-tech/uav_simulator/internal/vehicle"
)

// Handler applies inbound commands to a vehicle state owned by someone else.
// Every mutation happens with mu held; decoding and validation do not.
type Handler struct {
	mu    sync.Locker
	state *vehicle.State
}

func NewHandler(mu sync.Locker, state *vehicle.State) *Handler {
	return &Handler{mu: mu, state: state}
}

// Handle is the transport callback: it applies payload and logs anything it
// had to discard. It never fails.
func (h *Handler) Handle(payload []byte) {
	err := h.Apply(payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingType):
		// not a command, drop silently
	default:
		log.Printf("cmd: discarded: %v", err)
	}
}

// Apply decodes, validates, and applies one command. On any error the state
// is left untouched.
func (h *Handler) Apply(payload []byte) error {
	m, err := Decode(payload)
	if err != nil {
		return err
	}

	switch m.Type {
	case TypeMissionStart:
		route, err := m.Waypoints()
		if err != nil {
			return fmt.Errorf("mission.start: %w", err)
		}
		missionID := m.Mission()
		if missionID == "" {
			return fmt.Errorf("mission.start: %w", ErrMissingMission)
		}

		h.mu.Lock()
		h.state.StartMission(missionID, route)
		h.mu.Unlock()

		log.Printf("cmd: mission.start mission=%s points=%d", missionID, len(route))
		return nil

	case TypeInterrupt:
		h.mu.Lock()
		h.state.Interrupt()
		h.mu.Unlock()

		log.Println("cmd: interrupt, returning home")
		return nil

	case "":
		return ErrMissingType

	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
}
