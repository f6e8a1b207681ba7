package main

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/api/handlers"
	"github.com/ashish-0314/Traffic-Management/config"
)

func main() {
	conf := config.New()

	a := &handlers.App{Config: conf}
	if err := a.Initialize(); err != nil {
		zap.S().Fatalw("failed to initialize app", "error", err)
	}
	defer a.Scheduler.Stop()

	port := conf.Port
	if port == "" {
		port = "8080"
	}

	zap.S().Infow("server started", "port", port)
	if err := http.ListenAndServe(":"+port, a.Router); err != nil {
		zap.S().Fatalw("server stopped", "error", err)
	}
}
