// Fingerprint service daemon.
//
// fingerprintd exposes a Track & Trace Fingerprint sensing device to
// automation clients over MQTT: operation calls with immediate replies,
// deferred completion events for long-running work, and retained state
// variables mirroring the device status. An optional HTTP/WebSocket
// surface serves operators, and an optional InfluxDB recorder keeps
// status and completion history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ipm-pk/fingerprint/internal/api"
	"github.com/ipm-pk/fingerprint/internal/backend"
	"github.com/ipm-pk/fingerprint/internal/infrastructure/config"
	"github.com/ipm-pk/fingerprint/internal/infrastructure/database"
	"github.com/ipm-pk/fingerprint/internal/infrastructure/influxdb"
	"github.com/ipm-pk/fingerprint/internal/infrastructure/logging"
	"github.com/ipm-pk/fingerprint/internal/infrastructure/mqtt"
	"github.com/ipm-pk/fingerprint/internal/server"
	"github.com/ipm-pk/fingerprint/internal/service"
	"github.com/ipm-pk/fingerprint/internal/status"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", getConfigPath(), "path to the YAML configuration file")
	level := flag.String("level", "", "integration level override: echo or mockup")
	flag.Parse()

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: Path to the YAML configuration file
//   - level: Integration level override ("" keeps the configured level)
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath, level string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting fingerprint service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	if level != "" {
		cfg.Backend.Level = level
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("applying -level override: %w", err)
		}
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Build the device backend
	provider, register, closeBackend, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("building %s backend: %w", cfg.Backend.Level, err)
	}
	if closeBackend != nil {
		defer closeBackend()
	}
	log.Info("backend ready", "level", provider.Name(), "store", cfg.Backend.Store)

	// Load and link the declared operation set
	def, err := service.LoadDefinition(cfg.Interface.Definition)
	if err != nil {
		return fmt.Errorf("loading interface definition: %w", err)
	}

	prefer := service.ModeAsync
	if cfg.Interface.Prefer == "sync" {
		prefer = service.ModeSync
	}
	dir := service.Link(def, provider, service.LinkOptions{Prefer: prefer, Logger: log})
	log.Info("operations linked",
		"linked", len(dir.Names()),
		"excluded", len(dir.Excluded()),
		"prefer", prefer.String(),
	)

	registry := service.NewTaskRegistry()

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional history recorder)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Wire the engine. The notifier and sink fan-outs are populated
	// before the protocol server starts accepting requests.
	notif := &multiNotifier{}
	sink := &multiSink{}
	dispatcher := service.NewDispatcher(dir, provider, registry, notif, sink, log)

	srv, err := server.New(server.Options{
		Broker:     mqttClient,
		Dispatcher: dispatcher,
		Variables:  cfg.Variables,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("creating protocol server: %w", err)
	}
	notif.add(srv)
	sink.add(srv)

	if influxClient != nil {
		notif.add(&historyNotifier{client: influxClient})
		sink.add(influxClient)
	}

	// Operator HTTP surface (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Logger:    log,
			Register:  register,
			Directory: dir,
			Tasks:     registry,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		sink.add(apiServer)
	} else {
		log.Info("API server disabled")
	}

	// Periodic status publisher, stopped explicitly after draining so
	// the final snapshots of completing tasks still go out.
	pubCtx, pubCancel := context.WithCancel(context.Background())
	defer pubCancel()
	publisher := service.NewPublisher(register, cfg.StateInterval(), log, sink)
	go publisher.Run(pubCtx)

	// Start accepting requests
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting protocol server: %w", err)
	}
	defer srv.Stop()

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Stop intake first, then wait for background tasks.
	srv.Stop()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout())
	defer drainCancel()
	if drainErr := registry.Drain(drainCtx); drainErr != nil {
		log.Warn("task drain timed out", "remaining", registry.Len())
	} else {
		log.Info("background tasks drained")
	}

	pubCancel()

	// Deferred Close() calls unwind the rest:
	// API server, InfluxDB (if enabled), MQTT, backend store.

	log.Info("fingerprint service stopped")
	return nil
}

// getConfigPath returns the default configuration file path.
// Uses the FINGERPRINT_CONFIG environment variable if set.
func getConfigPath() string {
	if path := os.Getenv("FINGERPRINT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildBackend constructs the configured provider and returns its status
// register and an optional closer for the backing store.
func buildBackend(ctx context.Context, cfg *config.Config, log *logging.Logger) (backend.Provider, *status.Register, func(), error) {
	durations := backend.Durations(cfg.Backend.Durations)

	switch cfg.Backend.Level {
	case "echo":
		opts := []backend.EchoOption{backend.WithEchoLogger(log)}
		if len(durations) > 0 {
			opts = append(opts, backend.WithEchoDurations(durations))
		}
		echo := backend.NewEcho(opts...)
		return echo, echo.Register(), nil, nil

	case "mockup":
		var store backend.PartStore
		var closer func()

		if cfg.Backend.Store == "sqlite" {
			db, err := database.Open(database.Config{
				Path:        cfg.Database.Path,
				WALMode:     cfg.Database.WALMode,
				BusyTimeout: cfg.Database.BusyTimeout,
			})
			if err != nil {
				return nil, nil, nil, fmt.Errorf("opening part database: %w", err)
			}
			sqliteStore, err := backend.NewSQLitePartStore(ctx, db.DB)
			if err != nil {
				db.Close() //nolint:errcheck // Open failed mid-setup; best-effort cleanup
				return nil, nil, nil, fmt.Errorf("preparing part store: %w", err)
			}
			store = sqliteStore
			closer = func() {
				log.Info("closing part database")
				if err := db.Close(); err != nil {
					log.Error("error closing part database", "error", err)
				}
			}
			log.Info("part store ready", "path", cfg.Database.Path)
		} else {
			store = backend.NewMemoryPartStore()
		}

		opts := []backend.MockupOption{backend.WithMockupLogger(log)}
		if len(durations) > 0 {
			opts = append(opts, backend.WithMockupDurations(durations))
		}
		mockup := backend.NewMockup(store, opts...)
		return mockup, mockup.Register(), closer, nil

	default:
		// Validation rejects anything else, including the reserved
		// hardware level.
		return nil, nil, nil, fmt.Errorf("unsupported backend level %q", cfg.Backend.Level)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := mqttClient.HealthCheck(checkCtx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// multiNotifier fans completion events out to every registered consumer.
// Populated during wiring, before any request is accepted.
type multiNotifier struct {
	targets []service.Notifier
}

func (m *multiNotifier) add(n service.Notifier) {
	m.targets = append(m.targets, n)
}

func (m *multiNotifier) Completed(ev service.CompletionEvent) {
	for _, n := range m.targets {
		n.Completed(ev)
	}
}

// multiSink fans status snapshots out to every registered sink.
type multiSink struct {
	targets []service.StatusSink
}

func (m *multiSink) add(s service.StatusSink) {
	m.targets = append(m.targets, s)
}

func (m *multiSink) PublishStatus(st status.Status) {
	for _, s := range m.targets {
		s.PublishStatus(st)
	}
}

// historyNotifier records completion outcomes to InfluxDB.
type historyNotifier struct {
	client *influxdb.Client
}

func (h *historyNotifier) Completed(ev service.CompletionEvent) {
	h.client.WriteCompletion(ev.Operation, ev.TaskID, ev.Outcome.String(), ev.Elapsed)
}
