package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/df07/go-csg-pathtracer/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Create and start web server
	webServer := server.NewServer(*port, logger)
	defer webServer.Close()

	logger.Info("CSG Path Tracer web server")

	if err := webServer.Start(); err != nil {
		logger.Error("error starting server", "error", err)
		os.Exit(1)
	}
}
