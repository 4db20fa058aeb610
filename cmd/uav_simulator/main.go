// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/uav_simulator/internal/app"
	"github.com/relabs-tech/uav_simulator/internal/config"
)

func main() {
	args, err := app.ParseSimulatorArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log.Printf("starting uav simulator %s", args.VehicleID)

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	// Load configuration
	if err := config.InitGlobal(args.ConfigPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunSimulator(config.Get(), args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
