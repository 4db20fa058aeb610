package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/uav_simulator/internal/app"
	"github.com/relabs-tech/uav_simulator/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to KEY=VALUE configuration file")
	vehicleID := flag.String("vehicle", "", "only show this vehicle (default: all)")
	flag.Parse()

	log.Println("starting uav console (MQTT subscriber)")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(config.Get(), *vehicleID); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
