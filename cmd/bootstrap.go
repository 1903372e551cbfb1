// Package cmd holds the shared wiring used by the server and worker
// binaries: database setup, repository selection and event bus selection.
package cmd

import (
	"fmt"
	"strings"

	"blog/config"
	"blog/domain/blog"
	"blog/domain/shared"
	"blog/infrastructure/messaging"
	"blog/infrastructure/messaging/kafkabus"
	"blog/infrastructure/messaging/natsbus"
	"blog/infrastructure/messaging/rabbitmq"
	"blog/infrastructure/persistence/memory"
	"blog/infrastructure/persistence/mysql"
	"blog/infrastructure/persistence/retry"
	"blog/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NewMySQLConfig maps application config onto the MySQL layer config.
func NewMySQLConfig(cfg *config.Config) *mysql.Config {
	return &mysql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Username:        cfg.Database.Username,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
}

// OpenDatabase connects to MySQL and runs migrations in development.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := NewMySQLConfig(cfg).Connect()
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	if cfg.IsDevelopment() {
		if err := mysql.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}

	logger.Info("Connected to MySQL",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))
	return db, nil
}

// BuildRepositories selects the persistence layer from database.type.
// db may be nil when the type is memory.
func BuildRepositories(cfg *config.Config, db *gorm.DB) (blog.Repository, blog.ReadRepository, error) {
	switch cfg.Database.Type {
	case "mysql":
		if db == nil {
			return nil, nil, fmt.Errorf("mysql persistence requires a database connection")
		}
		repo := mysql.NewPostRepository(db).WithRetry(retry.FromAppConfig(cfg))
		return repo, repo, nil
	case "memory", "":
		repo := memory.NewPostRepository()
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unknown database type %q", cfg.Database.Type)
	}
}

// BuildEventBus selects the event bus backend from broker.driver.
// The returned cleanup is always non-nil.
func BuildEventBus(cfg *config.Config, db *gorm.DB) (shared.EventBus, func(), error) {
	noop := func() {}

	switch cfg.Broker.Driver {
	case "rabbitmq":
		return rabbitmq.NewEventBus(RabbitConfig(cfg))
	case "nats":
		return natsbus.NewEventBus(NATSConfig(cfg))
	case "kafka":
		return kafkabus.NewEventBus(KafkaConfig(cfg))
	case "outbox":
		if db == nil {
			return nil, nil, fmt.Errorf("outbox event bus requires a database connection")
		}
		return mysql.NewOutboxEventBus(mysql.NewOutboxRepository(db)), noop, nil
	case "memory":
		return messaging.NewMemoryEventBus(), noop, nil
	case "logging", "":
		return messaging.NewLoggingEventBus(), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}

// RabbitConfig maps broker config onto the AMQP transport.
func RabbitConfig(cfg *config.Config) rabbitmq.Config {
	return rabbitmq.Config{
		URL:         cfg.Broker.URL,
		Queue:       cfg.Broker.Queue,
		HealthQueue: cfg.Broker.HealthQueue,
		ConnTimeout: cfg.Broker.ConnTimeout,
	}
}

// NATSConfig maps broker config onto the JetStream transport.
// Stream and durable names must not contain dots, so they derive from
// the queue name with dots replaced.
func NATSConfig(cfg *config.Config) natsbus.Config {
	stream := strings.ReplaceAll(cfg.Broker.Queue, ".", "-")
	return natsbus.Config{
		URL:         cfg.Broker.URL,
		Name:        cfg.App.Name,
		Stream:      stream,
		Subject:     cfg.Broker.Queue,
		Durable:     stream + "-worker",
		ConnTimeout: cfg.Broker.ConnTimeout,
	}
}

// KafkaConfig maps broker config onto the Kafka transport.
func KafkaConfig(cfg *config.Config) kafkabus.Config {
	return kafkabus.Config{
		Brokers: cfg.Broker.URL,
		Topic:   cfg.Broker.Queue,
		Group:   cfg.Broker.Queue + "-workers",
	}
}
