// The worker consumes domain events from the broker and runs the reaction
// handlers with retry and dead-lettering. It can also run the outbox relay
// that drains pending rows into the broker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"blog/application/blog/handlers"
	"blog/cmd"
	"blog/config"
	"blog/infrastructure/messaging"
	"blog/infrastructure/messaging/dispatch"
	"blog/infrastructure/messaging/kafkabus"
	"blog/infrastructure/messaging/natsbus"
	"blog/infrastructure/messaging/rabbitmq"
	"blog/infrastructure/persistence/mysql"
	"blog/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Worker startup failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := parseConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	if !cfg.Worker.Enabled {
		logger.Info("Worker is disabled by config; exiting")
		return nil
	}

	registry, err := handlers.NewRegistry(handlers.Collaborators{
		Cache:      &loggingCollaborators{},
		Notifier:   &loggingCollaborators{},
		Moderation: nil, // no moderation backend wired yet
		Analytics:  &loggingCollaborators{},
		Audit:      &loggingCollaborators{},
	})
	if err != nil {
		return fmt.Errorf("failed to build handler registry: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 2)
	running := 0

	if consumable(cfg.Broker.Driver) {
		source, deadLetter, closeTransport, err := buildTransport(cfg)
		if err != nil {
			return err
		}
		defer closeTransport()

		dispatcher := dispatch.NewDispatcher(registry, deadLetter,
			dispatch.WithMaxAttempts(cfg.Worker.MaxAttempts),
			dispatch.WithRetryDelay(cfg.Worker.RetryDelay),
		)
		pool := dispatch.NewPool(source, dispatcher, cfg.Worker.Concurrency)

		logger.Info("Dispatch pool started",
			zap.String("driver", cfg.Broker.Driver),
			zap.String("queue", cfg.Broker.Queue),
			zap.Int("concurrency", cfg.Worker.Concurrency),
			zap.Int("max_attempts", cfg.Worker.MaxAttempts),
			zap.Duration("retry_delay", cfg.Worker.RetryDelay),
		)

		running++
		go func() {
			errCh <- pool.Run(ctx)
		}()
	} else {
		logger.Warn("Broker driver has no consumer side; dispatch pool not started",
			zap.String("driver", cfg.Broker.Driver))
	}

	if cfg.Worker.Outbox.Enabled {
		relay, err := buildOutboxRelay(cfg)
		if err != nil {
			return err
		}

		logger.Info("Outbox relay started",
			zap.Duration("poll_interval", cfg.Worker.Outbox.PollInterval),
			zap.Int("batch_size", cfg.Worker.Outbox.BatchSize),
			zap.Int("max_retries", cfg.Worker.Outbox.MaxRetries),
		)

		running++
		go func() {
			errCh <- relay.Run(ctx)
		}()
	}

	if running == 0 {
		return fmt.Errorf("nothing to run: broker driver %q has no consumer and outbox relay is disabled", cfg.Broker.Driver)
	}

	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker exited with error: %w", err)
		}
	}

	logger.Info("Worker stopped")
	return nil
}

// consumable reports whether the driver has a consuming side.
func consumable(driver string) bool {
	switch driver {
	case "rabbitmq", "nats", "kafka":
		return true
	}
	return false
}

// buildTransport wires the consumer source and the dead-letter sink for
// the configured driver. RabbitMQ gets a real dead-letter queue; the
// other drivers log terminal failures.
func buildTransport(cfg *config.Config) (dispatch.Source, dispatch.DeadLetterSink, func(), error) {
	switch cfg.Broker.Driver {
	case "rabbitmq":
		consumer, err := rabbitmq.NewConsumer(cmd.RabbitConfig(cfg), cfg.Worker.Concurrency)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create rabbitmq consumer: %w", err)
		}
		sink, closeSink := rabbitmq.NewDeadLetterSink(cmd.RabbitConfig(cfg))
		closer := func() {
			consumer.Close()
			closeSink()
		}
		return consumer, sink, closer, nil
	case "nats":
		consumer, err := natsbus.NewConsumer(cmd.NATSConfig(cfg))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create nats consumer: %w", err)
		}
		return consumer, &loggingDeadLetter{}, func() { consumer.Close() }, nil
	case "kafka":
		consumer, err := kafkabus.NewConsumer(cmd.KafkaConfig(cfg))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create kafka consumer: %w", err)
		}
		return consumer, &loggingDeadLetter{}, func() { consumer.Close() }, nil
	}
	return nil, nil, nil, fmt.Errorf("broker driver %q has no consumer", cfg.Broker.Driver)
}

// buildOutboxRelay wires the relay that moves pending outbox rows to the
// broker. With the rabbitmq driver rows go to the real queue; otherwise
// they are logged.
func buildOutboxRelay(cfg *config.Config) (*mysql.OutboxWorker, error) {
	db, err := cmd.OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}

	var publisher mysql.OutboxPublisher = &mysql.LoggingOutboxPublisher{}
	if cfg.Broker.Driver == "rabbitmq" {
		bus, _, err := rabbitmq.NewEventBus(cmd.RabbitConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("failed to create rabbitmq publisher: %w", err)
		}
		publisher = &rabbitPublisher{bus: bus}
	}

	return mysql.NewOutboxWorker(
		mysql.NewOutboxRepository(db),
		publisher,
		cfg.Worker.Outbox.PollInterval,
		cfg.Worker.Outbox.BatchSize,
		cfg.Worker.Outbox.MaxRetries,
	)
}

// rabbitPublisher adapts the AMQP bus to the outbox publisher port.
// The payload is already a serialized envelope.
type rabbitPublisher struct {
	bus *rabbitmq.EventBus
}

func (p *rabbitPublisher) Publish(ctx context.Context, eventType, payload string) error {
	return p.bus.PublishRaw(ctx, []byte(payload))
}

// loggingDeadLetter records terminally failed envelopes in the log.
// Used for drivers without a native dead-letter queue.
type loggingDeadLetter struct{}

func (s *loggingDeadLetter) Publish(ctx context.Context, env *messaging.Envelope, cause error) error {
	logger.Error("Envelope dead-lettered",
		zap.String("event_type", env.EventType),
		zap.String("event_id", env.EventID),
		zap.Error(cause))
	return nil
}

// loggingCollaborators stands in for the external side-effect services.
// Each call is recorded in the log so reactions stay observable until
// real backends are wired.
type loggingCollaborators struct{}

func (l *loggingCollaborators) Invalidate(ctx context.Context, keyOrPattern string) error {
	logger.Info("Cache invalidated", zap.String("key", keyOrPattern))
	return nil
}

func (l *loggingCollaborators) SendPostPublishedNotification(ctx context.Context, postID uuid.UUID, slug string) error {
	logger.Info("Post published notification",
		zap.String("post_id", postID.String()),
		zap.String("slug", slug))
	return nil
}

func (l *loggingCollaborators) NotifyNewComment(ctx context.Context, postID, commentID uuid.UUID) error {
	logger.Info("New comment notification",
		zap.String("post_id", postID.String()),
		zap.String("comment_id", commentID.String()))
	return nil
}

func (l *loggingCollaborators) TrackPostCreated(ctx context.Context, postID, authorID uuid.UUID) error {
	logger.Info("Post created tracked",
		zap.String("post_id", postID.String()),
		zap.String("author_id", authorID.String()))
	return nil
}

func (l *loggingCollaborators) Record(ctx context.Context, action string, entityID uuid.UUID, occurredAt time.Time) error {
	logger.Info("Audit record",
		zap.String("action", action),
		zap.String("entity_id", entityID.String()),
		zap.Time("occurred_at", occurredAt))
	return nil
}

func parseConfigPath() string {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	return configPath
}
