// powerd keeps the authoritative on/off state of MQTT-connected power
// switches and serves it to browsers over HTTP and WebSocket.
//
// Devices announce their state on stat/<id>/power and take commands on
// cmd/<id>/power. Every change is streamed to connected dashboards, logged
// to SQLite and, optionally, written to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-power/migrations"

	"github.com/nerrad567/gray-logic-power/internal/api"
	"github.com/nerrad567/gray-logic-power/internal/history"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-power/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-power/internal/power"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Infrastructure is opened in order (database, MQTT, InfluxDB) and closed in
// reverse by deferred calls. The power actor, the history recorder and the
// API server then run under one errgroup: the first to fail stops the others.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting powerd",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, logging.ServicePowerd, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	initial, err := initialDevices(cfg.Power.InitialDevices)
	if err != nil {
		return fmt.Errorf("parsing initial devices: %w", err)
	}

	// Open database
	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.ServicePowerd)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
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
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Power actor
	actor := power.NewActor(
		power.NewBusAdapter(&mqttBusAdapter{client: mqttClient}),
		power.Options{QueueSize: cfg.Power.QueueSize, Initial: initial},
	)
	actor.SetLogger(log.With("component", "power"))

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.With("component", "api"),
		Power:   actor,
		MQTT:    mqttClient,
		DB:      db,
		Version: version,
	}

	// Transition history (optional)
	var recorder *history.Recorder
	if cfg.Power.History.Enabled {
		repo := history.NewSQLiteRepository(db)
		recorder = history.NewRecorder(repo, history.Options{
			QueueSize:     cfg.Power.History.QueueSize,
			Retention:     cfg.GetHistoryRetention(),
			PruneInterval: cfg.GetPruneInterval(),
		})
		recorder.SetLogger(log.With("component", "history"))
		if influxClient != nil {
			recorder.SetTelemetry(influxClient)
		}
		actor.SetTransitionSink(recorder)
		deps.History = repo
		deps.Recorder = recorder
		log.Info("transition history enabled",
			"retention_days", cfg.Power.History.RetentionDays,
			"queue_size", cfg.Power.History.QueueSize,
		)
	} else if influxClient != nil {
		actor.SetTransitionSink(telemetrySink{client: influxClient})
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return actor.Run(gctx)
	})
	if recorder != nil {
		g.Go(func() error {
			return recorder.Run(gctx)
		})
	}

	if err := server.Start(gctx); err != nil {
		cancel()
		_ = g.Wait() //nolint:errcheck // Start failure takes precedence
		return fmt.Errorf("starting API server: %w", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		return server.Close()
	})

	log.Info("initialisation complete",
		"address", server.Addr(),
		"devices", actor.Snapshot().Len(),
	)

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("powerd stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses POWERD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("POWERD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// initialDevices converts the configured seed into device states.
func initialDevices(raw map[string]string) (map[string]power.State, error) {
	out := make(map[string]power.State, len(raw))
	for id, v := range raw {
		if id == "" {
			return nil, power.ErrInvalidDeviceID
		}
		st, err := power.ParseState(v)
		if err != nil {
			return nil, fmt.Errorf("device %s: %w", id, err)
		}
		out[id] = st
	}
	return out, nil
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttBusAdapter adapts the infrastructure MQTT client to power.Bus.
// The difference is the handler signature: the infrastructure client's
// handlers return an error, the power core's do not.
type mqttBusAdapter struct {
	client *mqtt.Client
}

// Publish implements power.Bus.
func (a *mqttBusAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements power.Bus.
func (a *mqttBusAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// telemetrySink writes transitions straight to InfluxDB when the SQLite
// history is disabled.
type telemetrySink struct {
	client *influxdb.Client
}

// Record implements power.TransitionSink.
func (s telemetrySink) Record(t power.Transition) {
	s.client.WritePowerState(t.DeviceID, t.To.String(), t.Source, t.At)
}
