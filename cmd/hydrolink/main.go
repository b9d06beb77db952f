// Hydrolink Core - Environmental Telemetry Collector
//
// This is the main entry point for the Hydrolink Core application.
// Hydrolink collects groundwater monitoring data from three sources:
//   - TVA monitoring portal (authenticated HTML scraping)
//   - Field gateways over MQTT (continuous stream)
//   - SCADA vendor API (ASP.NET JSON polling)
//
// Readings are normalised into a common shape, persisted to SQLite and
// optionally mirrored to InfluxDB for analytics.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hydrolink/hydrolink-core/migrations"

	"github.com/hydrolink/hydrolink-core/internal/adapter/mqttsource"
	"github.com/hydrolink/hydrolink-core/internal/adapter/scada"
	"github.com/hydrolink/hydrolink-core/internal/adapter/tva"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/config"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/database"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/influxdb"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/logging"
	"github.com/hydrolink/hydrolink-core/internal/infrastructure/mqtt"
	"github.com/hydrolink/hydrolink-core/internal/reading"
	"github.com/hydrolink/hydrolink-core/internal/scheduler"
	"github.com/hydrolink/hydrolink-core/internal/store"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hydrolink Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	loc := cfg.Location()

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Persistence layer
	readingStore := store.New(db.DB, cfg.Ingest.MaxRecords, loc, log)

	// Connect to InfluxDB (optional analytics mirror)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		readingStore.SetMirror(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	sched := scheduler.New(readingStore, log)

	// MQTT stream ingestion (continuous subscription, periodic flush)
	if cfg.MQTT.Enabled {
		aggregator := mqttsource.NewAggregator(cfg.MQTT.SnapshotPath, cfg.CacheTTL(), loc, log)

		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		if subErr := mqttClient.Subscribe(cfg.MQTT.Topic, byte(cfg.MQTT.QoS), aggregator.HandleMessage); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", cfg.MQTT.Topic, subErr)
		}
		log.Info("MQTT subscription active", "topic", cfg.MQTT.Topic)

		sched.AddJob(scheduler.Job{
			Name:     "mqtt-flush",
			Source:   reading.SourceMQTT,
			Interval: time.Duration(cfg.Ingest.MQTTFlushInterval) * time.Second,
			Fetch: func(context.Context) ([]reading.Reading, error) {
				return aggregator.Readings(), nil
			},
		})
	} else {
		log.Info("MQTT ingestion disabled")
	}

	// TVA portal polling
	if cfg.TVA.Enabled {
		tvaClient := tva.New(cfg.TVA, log)
		sched.AddJob(scheduler.Job{
			Name:       "tva-poll",
			Source:     reading.SourceTVA,
			Interval:   time.Duration(cfg.Ingest.TVAInterval) * time.Second,
			Attempts:   cfg.TVA.MaxRetries,
			RetryDelay: time.Duration(cfg.TVA.RetryDelay) * time.Second,
			Fetch: func(ctx context.Context) ([]reading.Reading, error) {
				stations, fetchErr := tvaClient.Fetch(ctx)
				if fetchErr != nil {
					return nil, fetchErr
				}
				return tva.Readings(stations), nil
			},
		})
	} else {
		log.Info("TVA ingestion disabled")
	}

	// SCADA API polling
	if cfg.SCADA.Enabled {
		scadaClient := scada.New(cfg.SCADA, log)
		sched.AddJob(scheduler.Job{
			Name:       "scada-poll",
			Source:     reading.SourceSCADA,
			Interval:   time.Duration(cfg.Ingest.SCADAInterval) * time.Second,
			Attempts:   cfg.SCADA.MaxRetries,
			RetryDelay: time.Duration(cfg.SCADA.RetryDelay) * time.Second,
			Fetch: func(ctx context.Context) ([]reading.Reading, error) {
				values, fetchErr := scadaClient.Fetch(ctx)
				if fetchErr != nil {
					return nil, fetchErr
				}
				return scada.Readings(values), nil
			},
		})
	} else {
		log.Info("SCADA ingestion disabled")
	}

	sched.EnablePurge(time.Duration(cfg.Ingest.MaxAgeDays) * 24 * time.Hour)

	log.Info("initialisation complete, starting ingestion loops")

	// Blocks until the context is cancelled; deferred Close() calls then
	// run in reverse order (InfluxDB, MQTT, database).
	sched.Run(ctx)

	log.Info("Hydrolink Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HYDROLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HYDROLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
