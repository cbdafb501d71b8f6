package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"husholdning/internal/app"
	"husholdning/internal/infrastructure"
	"husholdning/pkg/contracts"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file (HUS_* environment variables override it)")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	application, err := app.Load(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(context.Background()); err != nil {
		application.Logger.Error("application_error", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
