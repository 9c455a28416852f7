package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gridwatch/alertflow/internal/api"
	"github.com/gridwatch/alertflow/internal/engine"
	"github.com/gridwatch/alertflow/internal/ingest"
	"github.com/gridwatch/alertflow/internal/logging"
	"github.com/gridwatch/alertflow/internal/models"
	"github.com/gridwatch/alertflow/internal/notifier"
	"github.com/gridwatch/alertflow/internal/publish"
	"github.com/gridwatch/alertflow/internal/snapshot"
	"github.com/gridwatch/alertflow/internal/state"
	"github.com/gridwatch/alertflow/internal/storage"
	"github.com/gridwatch/alertflow/pkg/config"
)

var (
	configFile string
	apiAddr    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "alertflow-server",
	Short: "AlertFlow Server - Device telemetry alert evaluation",
	Long: `AlertFlow Server consumes processed device telemetry from Kafka,
evaluates threshold rules against it, and publishes alert events for
downstream delivery.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("alertflow-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&apiAddr, "address", "a", "", "HTTP API listen address")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if apiAddr != "" {
		cfg.API.Address = apiAddr
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logging.Init(cfg.Log.Level)
	log := logging.WithComponent("server")

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info().Str("path", cfg.Database.Path).Msg("database initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Rule configuration comes from the database unless a rules file is
	// configured.
	var source snapshot.Source
	var fileSource *snapshot.FileSource
	if cfg.Snapshot.RulesFile != "" {
		fileSource = snapshot.NewFileSource(cfg.Snapshot.RulesFile)
		source = fileSource
	} else {
		source = storage.NewConfigSource(store)
	}

	provider, err := snapshot.NewProvider(ctx, source, cfg.Snapshot.refreshInterval)
	if err != nil {
		return fmt.Errorf("load rule configuration: %w", err)
	}

	// Evaluation state survives restarts through SQLite checkpoints.
	stateStore := state.NewMemoryStore()
	checkpointer := state.NewCheckpointer(stateStore, store, cfg.State.checkpointInterval)
	if err := checkpointer.Restore(ctx); err != nil {
		return fmt.Errorf("restore evaluation state: %w", err)
	}

	eng := engine.New(provider, stateStore)

	producer, err := publish.NewProducer(publish.Config{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Producer.Topic,
		BatchSize:    cfg.Kafka.Producer.BatchSize,
		BatchTimeout: cfg.Kafka.Producer.batchTimeout,
		MaxRetries:   cfg.Kafka.Producer.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("create producer: %w", err)
	}
	defer producer.Close()

	dispatcher, err := buildDispatcher(cfg)
	if err != nil {
		return fmt.Errorf("configure notifiers: %w", err)
	}
	defer dispatcher.Close()

	// Events go to Kafka first; delivery fan-out is best effort and never
	// holds up the consumer offset.
	emit := func(ctx context.Context, events []*models.AlertEvent) error {
		if err := producer.Publish(ctx, events); err != nil {
			return err
		}
		for _, event := range events {
			dispatcher.Dispatch(ctx, event)
		}
		return nil
	}

	consumer, err := ingest.NewConsumer(ingest.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Consumer.Topic,
		GroupID: cfg.Kafka.Consumer.GroupID,
	}, eng, emit)
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}

	apiServer, err := api.New(&api.Config{
		Address:    cfg.API.Address,
		AuthSecret: []byte(os.Getenv("ALERTFLOW_API_SECRET")),
		TokenTTL:   cfg.API.tokenTTL,
	}, provider, eng)
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}
	apiServer.RegisterHealthChecker(api.NewSQLiteChecker(store.DB()))
	apiServer.RegisterHealthChecker(api.NewKafkaChecker(cfg.Kafka.Brokers))
	apiServer.RegisterHealthChecker(api.NewSnapshotChecker(func() time.Time {
		return provider.Current().LoadedAt()
	}, 3*cfg.Snapshot.refreshInterval))

	log.Info().Str("version", config.Version).Msg("starting alertflow-server")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return provider.Run(ctx) })
	g.Go(func() error { return checkpointer.Run(ctx) })
	g.Go(func() error { return consumer.Run(ctx) })
	g.Go(func() error { return apiServer.Run(ctx) })
	if fileSource != nil && cfg.Snapshot.Watch {
		g.Go(func() error { return fileSource.Watch(ctx, provider) })
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// buildDispatcher assembles the delivery fan-out from config. Secrets come
// from the environment so they never live in the config file.
func buildDispatcher(cfg *Config) (*notifier.Dispatcher, error) {
	d := notifier.NewDispatcher(cfg.Notify.RatePerSecond, cfg.Notify.Burst)

	if cfg.Notify.Email.Enabled {
		email, err := notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:     cfg.Notify.Email.Host,
			Port:     cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: os.Getenv("ALERTFLOW_SMTP_PASSWORD"),
			From:     cfg.Notify.Email.From,
		})
		if err != nil {
			return nil, fmt.Errorf("email notifier: %w", err)
		}
		d.Register(email)
	}
	if cfg.Notify.Webhook.Enabled {
		d.Register(notifier.NewWebhookNotifier())
	}
	if cfg.Notify.SMS.Enabled {
		sms, err := notifier.NewSMSNotifier(notifier.SMSConfig{
			GatewayURL: cfg.Notify.SMS.GatewayURL,
			APIKey:     os.Getenv("ALERTFLOW_SMS_API_KEY"),
		})
		if err != nil {
			return nil, fmt.Errorf("sms notifier: %w", err)
		}
		d.Register(sms)
	}

	return d, nil
}
