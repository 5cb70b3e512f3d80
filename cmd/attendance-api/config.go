// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// flags are the command line flags for the attendance service.
type flags struct {
	Debug bool
	Port  string
	Bind  string
}

// environment are the environment variables for the attendance service.
type environment struct {
	Port    string `env:"PORT" envDefault:"8080"`
	NatsURL string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	// ReconcileInterval is how often the presence reconciler diffs room
	// occupancy against the ledger.
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10s"`

	Recording recordingConfig `envPrefix:"RECORDING_"`
}

// recordingConfig holds recording pipeline client configuration.
type recordingConfig struct {
	BaseURL      string `env:"BASE_URL,required"`
	ClientID     string `env:"CLIENT_ID,required"`
	ClientSecret string `env:"CLIENT_SECRET,required"`
	AuthURL      string `env:"AUTH_URL"`
}

// parseEnv parses environment variables for the attendance service.
func parseEnv() environment {
	var e environment
	if err := env.Parse(&e); err != nil {
		slog.With(logging.ErrKey, err).Error("error parsing environment variables")
		os.Exit(1)
	}
	return e
}

// parseFlags parses command line flags for the attendance service.
func parseFlags(defaultPort string) flags {
	var debug = flag.Bool("d", false, "enable debug logging")
	var port = flag.String("p", defaultPort, "listen port")
	var bind = flag.Bool("bind-localhost", false, "bind on localhost only")

	flag.Usage = func() {
		flag.PrintDefaults()
		os.Exit(2)
	}
	flag.Parse()

	// Based on the debug flag, set the log level environment variable used
	// by [logging.InitStructureLogConfig].
	if *debug {
		err := os.Setenv("LOG_LEVEL", "debug")
		if err != nil {
			slog.With(logging.ErrKey, err).Error("error setting log level")
			os.Exit(1)
		}
	}

	bindAddr := "*"
	if *bind {
		bindAddr = "localhost"
	}

	return flags{
		Debug: *debug,
		Port:  *port,
		Bind:  bindAddr,
	}
}
