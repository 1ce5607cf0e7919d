package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/KasperOmsK/rxfn/internal/config"
)

// connectNATS returns the connection emissions are published on, or nil when
// publishing is off. The returned func releases the connection and, in
// embedded mode, the in-process server.
func connectNATS(cfg config.NATSConfig) (*nats.Conn, func(), error) {
	switch cfg.Mode {
	case "embedded":
		return startEmbeddedNATS()
	case "external":
		nc, err := nats.Connect(cfg.URL, nats.Name("rxdemo"), nats.Timeout(5*time.Second))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		return nc, func() { _ = nc.Drain() }, nil
	default:
		return nil, func() {}, nil
	}
}

func startEmbeddedNATS() (*nats.Conn, func(), error) {
	ns, err := server.NewServer(&server.Options{
		Host:  "127.0.0.1",
		Port:  -1, // Random port
		NoLog: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, nil, errors.New("NATS server not ready")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name("rxdemo"))
	if err != nil {
		ns.Shutdown()
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}, nil
}
