package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dmxmixer/internal/actor"
	"dmxmixer/internal/adminws"
	"dmxmixer/internal/config"
	"dmxmixer/internal/dmxbroker"
	"dmxmixer/internal/graph"
	"dmxmixer/internal/logging"
	"dmxmixer/internal/metrics"
	"dmxmixer/internal/shutdown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // nolint:errcheck

	metricsRegistry := metrics.NewRegistry()

	sceneGraph := graph.New(logger)
	names, err := seedGraph(sceneGraph, cfg.Graph, logger)
	if err != nil {
		logger.Fatal("failed to seed graph", zap.Error(err))
	}

	graphActor := actor.NewActor(sceneGraph, cfg.Actor.QueueCapacity, logger, metricsRegistry)
	handle := actor.NewHandle(graphActor)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord := shutdown.New(ctx)
	coord.Go(func(ctx context.Context) { graphActor.Run(ctx) })

	broker, err := dmxbroker.Dial(ctx, cfg.Broker.Address)
	if err != nil {
		logger.Error("failed to connect to dmx broker, continuing without it", zap.Error(err))
	} else {
		brokerService := dmxbroker.NewService(broker, handle, logger, metricsRegistry)
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := brokerService.Seed(seedCtx, cfg.Broker, func(name string) (uuid.UUID, bool) {
			id, ok := names[name]
			return id, ok
		})
		cancel()
		if err != nil {
			logger.Error("failed to seed dmx broker mappings", zap.Error(err))
		}
		coord.Go(func(ctx context.Context) {
			defer broker.Close()
			brokerService.Serve(ctx)
		})
	}

	adminServer := adminws.NewServer(cfg.Server, logger, handle)
	if err := adminServer.Start(ctx); err != nil {
		logger.Fatal("admin transport start failed", zap.Error(err))
	}

	httpErrCh := make(chan error, 1)
	go func() {
		httpErrCh <- runHTTPServer(ctx, cfg, metricsRegistry, logger)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-httpErrCh:
		if err != nil {
			logger.Error("http server error", zap.Error(err))
		}
		stop()
	}

	adminServer.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := coord.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown timed out", zap.Error(err))
	}
	logger.Info("mixer stopped")
}

// seedGraph inserts every node named in cfg, in order, so later entries
// may reference earlier ones by name. Returns the name -> ID mapping so
// callers (the broker's universe wiring) can resolve config-file names
// into the UUIDs the graph actually stores nodes under.
func seedGraph(g *graph.SceneGraph, cfg config.GraphConfig, log *zap.Logger) (map[string]uuid.UUID, error) {
	names := make(map[string]uuid.UUID, len(cfg.Nodes))
	for _, seed := range cfg.Nodes {
		node, err := buildSeedNode(seed, names)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", seed.Name, err)
		}
		id := seed.ID()
		if err := g.Insert(id, node); err != nil {
			return nil, fmt.Errorf("node %q: %w", seed.Name, err)
		}
		names[seed.Name] = id
		log.Debug("seeded node", zap.String("name", seed.Name), zap.String("id", id.String()), zap.String("kind", string(seed.Kind)))
	}
	return names, nil
}

// buildSeedNode resolves a NodeSeed's name-based references against
// already-seeded names and constructs the matching graph.Node.
func buildSeedNode(seed config.NodeSeed, names map[string]uuid.UUID) (graph.Node, error) {
	lookup := func(name string) (*uuid.UUID, error) {
		if name == "" {
			return nil, nil
		}
		id, ok := names[name]
		if !ok {
			return nil, fmt.Errorf("references unseeded node %q (seed order matters)", name)
		}
		return &id, nil
	}

	switch seed.Kind {
	case config.NodeKindStatic:
		buf, err := seed.Buffer()
		if err != nil {
			return nil, err
		}
		frame, err := graph.NewFrame(buf[:])
		if err != nil {
			return nil, err
		}
		return graph.NewStaticNode(frame), nil
	case config.NodeKindAdd:
		a, err := lookup(seed.A)
		if err != nil {
			return nil, err
		}
		b, err := lookup(seed.B)
		if err != nil {
			return nil, err
		}
		return graph.NewAddNode(a, b), nil
	case config.NodeKindMultiply:
		a, err := lookup(seed.A)
		if err != nil {
			return nil, err
		}
		b, err := lookup(seed.B)
		if err != nil {
			return nil, err
		}
		return graph.NewMultiplyNode(a, b), nil
	case config.NodeKindRewire:
		input, err := lookup(seed.Input)
		if err != nil {
			return nil, err
		}
		if len(seed.Map) != graph.FrameSize {
			return nil, fmt.Errorf("rewire map must have %d entries, got %d", graph.FrameSize, len(seed.Map))
		}
		var m [graph.FrameSize]uint16
		for i, v := range seed.Map {
			m[i] = uint16(v)
		}
		return graph.NewRewireNode(input, m)
	default:
		return nil, fmt.Errorf("unknown node kind %q", seed.Kind)
	}
}

func runHTTPServer(ctx context.Context, cfg config.Config, metricsRegistry *metrics.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	mux.Handle("/metrics", metricsRegistry.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Metrics.ListenAddr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics http server starting", zap.String("addr", cfg.Metrics.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics http server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
