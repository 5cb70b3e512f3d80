// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package main is the attendance service API. It tracks participant presence
// across reconnects, scores attendance per meeting occurrence, and handles
// NATS messages for the attendance service.
package main

import (
	"context"
	_ "expvar"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/api"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/recording"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"
)

func main() {
	env := parseEnv()
	flags := parseFlags(env.Port)

	logging.InitStructureLogConfig()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	gracefulCloseWG := sync.WaitGroup{}

	// Setup NATS connection
	natsConn, err := setupNATS(ctx, env, &gracefulCloseWG, done)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error setting up NATS")
		return
	}

	// Get the key-value stores for the service.
	repos, err := getKeyValueStores(ctx, natsConn)
	if err != nil {
		slog.With(logging.ErrKey, err).Error("error getting key-value stores")
		return
	}

	// Initialize collaborators
	messageBuilder := messaging.NewMessageBuilder(natsConn)
	presenceSource := messaging.NewNatsPresenceSource(natsConn)
	attendanceScorer := messaging.NewNatsAttendanceScorer(natsConn)
	recordingControl := recording.NewClient(recording.Config{
		BaseURL:      env.Recording.BaseURL,
		ClientID:     env.Recording.ClientID,
		ClientSecret: env.Recording.ClientSecret,
		AuthURL:      env.Recording.AuthURL,
	})

	// Initialize services
	serviceConfig := service.ServiceConfig{
		ReconcileInterval: env.ReconcileInterval,
	}
	occurrenceResolver := service.NewOccurrenceResolver(repos.AttendanceRecord)
	calculator := service.NewAttendanceCalculator(
		repos.AttendanceRecord,
		attendanceScorer,
		messageBuilder,
	)
	recordingCoordinator := service.NewRecordingCoordinator(
		repos.Meeting,
		repos.AttendanceRecord,
		recordingControl,
		messageBuilder,
	)
	attendanceService := service.NewAttendanceService(
		repos.Meeting,
		repos.AttendanceRecord,
		messageBuilder,
		occurrenceResolver,
		calculator,
		recordingCoordinator,
		serviceConfig,
	)
	directoryService := service.NewMeetingDirectoryService(repos.Meeting)
	reconciler := service.NewPresenceReconciler(
		repos.Meeting,
		repos.AttendanceRecord,
		presenceSource,
		attendanceService,
		serviceConfig.ReconcileInterval,
	)

	// Initialize handlers
	attendanceHandler := handlers.NewAttendanceHandler(attendanceService, directoryService)
	attendanceAPI := api.NewAttendanceAPI(attendanceService)
	healthHandler := api.NewHealthHandler(func() bool {
		return natsConn.IsConnected() && attendanceHandler.HandlerReady()
	})

	httpServer := setupHTTPServer(flags, attendanceAPI, healthHandler, &gracefulCloseWG)

	// Create NATS subscriptions for the service.
	if err := createNatsSubscriptions(ctx, attendanceHandler, natsConn); err != nil {
		slog.With(logging.ErrKey, err).Error("error creating NATS subscriptions")
		return
	}

	// Start the presence reconciliation loop.
	go reconciler.Start(ctx)

	// This next line blocks until SIGINT or SIGTERM is received.
	<-done

	gracefulShutdown(httpServer, natsConn, &gracefulCloseWG, cancel)
}
