package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/rates"
	"fintrack/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store  ledger.Store
		pinger interface{ Ping(context.Context) error }
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store, pinger = repo, repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	res := &BackendResult{
		Store:  store,
		Rates:  f.rateProvider(ctx, config),
		Pinger: pinger,
	}

	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		c, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			amqpClient = c
			res.Publisher = c
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		if amqpClient != nil {
			errs = append(errs, amqpClient.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) rateProvider(ctx context.Context, config Config) rates.Provider {
	if config.ExchangeRateAPIKey == "" {
		f.logger.WarnContext(ctx, "No exchange rate API key configured, using static rates")
		return rates.NewStatic(rates.DefaultStaticRates)
	}
	f.logger.InfoContext(ctx, "Using exchange rate API",
		"url", config.ExchangeRateAPIURL,
		"timeout", config.ExchangeRateTimeout)
	return rates.NewClient(config.ExchangeRateAPIURL, config.ExchangeRateAPIKey, config.ExchangeRateTimeout)
}
