// Package app wires application dependencies.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taskmesh/taskmesh/internal/eventbus"
	"github.com/taskmesh/taskmesh/internal/kv"
	_ "github.com/taskmesh/taskmesh/internal/kv/postgreskv" // Register Postgres driver
	_ "github.com/taskmesh/taskmesh/internal/kv/sqlitekv"   // Register SQLite driver
	"github.com/taskmesh/taskmesh/internal/store"
	"github.com/taskmesh/taskmesh/internal/store/bootstrap"
	"github.com/taskmesh/taskmesh/internal/tasklist"
	"github.com/taskmesh/taskmesh/pkg/config"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	KV             kv.KV
	Store          store.Store
	EventPublisher eventbus.Publisher
	Tasks          *tasklist.Service
}

// NewContainer creates and wires all dependencies: the durable key/value
// surface, the bootstrapped store, the change relay, and the task list
// orchestrator.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	kvstore, err := kv.Open(ctx, kv.Config{
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open key/value store: %w", err)
	}
	c.KV = kvstore

	// Change relay is optional; without a broker the relay is a noop.
	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			if !cfg.IsDevelopment() {
				_ = kvstore.Close()
				return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			c.EventPublisher = publisher
		}
	} else {
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	}

	boot := bootstrap.New(bootstrap.Config{
		RedisURL:     cfg.RedisURL,
		Timeout:      cfg.BootstrapTimeout,
		KV:           kvstore,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})

	st, err := boot.Store(ctx)
	if err != nil {
		_ = c.EventPublisher.Close()
		_ = kvstore.Close()
		return nil, fmt.Errorf("failed to bootstrap store: %w", err)
	}
	c.Store = st
	logger.Info("store selected", "kind", st.Kind(), "address", st.Address())

	c.Tasks = tasklist.New(st, c.EventPublisher, logger)
	if err := c.Tasks.Start(ctx); err != nil {
		logger.Warn("initial refresh failed", "error", err)
	}

	return c, nil
}

// Close releases all resources in reverse dependency order.
func (c *Container) Close() {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.Logger.Warn("error closing store", "error", err)
		}
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}
	if c.KV != nil {
		if err := c.KV.Close(); err != nil {
			c.Logger.Warn("error closing key/value store", "error", err)
		}
	}
}
