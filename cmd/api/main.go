package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"archive-access/internal/adapters/auth/gate"
	"archive-access/internal/platform/logger"
	"archive-access/internal/ports/auth"
	"archive-access/internal/router"
)

func main() {
	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	appLog := logger.NewFromEnv()

	// Verifier real sólo si Gate está configurado; sin Gate queda el modo
	// dev (headers X-Debug-*).
	var verifier auth.AuthVerifier
	if baseURL := os.Getenv("GATE_BASE_URL"); baseURL != "" {
		client, err := gate.NewClient(gate.Config{
			BaseURL: baseURL,
			APIKey:  os.Getenv("GATE_API_KEY"),
		})
		if err != nil {
			log.Fatalf("gate client: %v", err)
		}
		verifier = gate.NewVerifier(client)
		appLog.Info("gate verifier enabled", map[string]any{"base_url": baseURL})
	} else {
		appLog.Warn("gate not configured, running in dev auth mode", nil)
	}

	r := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Logger:       appLog,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
