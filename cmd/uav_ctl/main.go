package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/relabs-tech/uav_simulator/internal/app"
	"github.com/relabs-tech/uav_simulator/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to KEY=VALUE configuration file")
	mission := flag.String("mission", "", "mission code for start")
	route := flag.String("route", "", `route for start as JSON, e.g. '[[1.0,1.0],[1.0,1.001]]'`)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: uav_ctl [-config file] [-mission code -route json] <vehicle-id> start|interrupt\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunControl(config.Get(), flag.Arg(0), flag.Arg(1), *mission, *route); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
