// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/api"
)

// setupHTTPServer configures and starts the HTTP server.
func setupHTTPServer(flags flags, attendanceAPI *api.AttendanceAPI, health *api.HealthHandler, gracefulCloseWG *sync.WaitGroup) *http.Server {
	handler := api.NewRouter(attendanceAPI, health)

	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	gracefulCloseWG.Add(1)
	go func() {
		defer gracefulCloseWG.Done()
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.With("error", err).Error("http server error")
		}
	}()

	return httpServer
}
