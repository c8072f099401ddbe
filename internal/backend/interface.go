package backend

import (
	"context"
	"time"

	"fintrack/internal/ledger"
	"fintrack/internal/rates"
)

// CleanupFunc releases what a backend holds open.
type CleanupFunc func() error

// BackendResult is everything the binaries need to serve a ledger.
type BackendResult struct {
	Store     ledger.Store
	Rates     rates.Provider
	Publisher ledger.Publisher // nil when AMQP is not configured or unreachable
	Pinger    interface{ Ping(context.Context) error }
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	// An empty key selects the static rate table.
	ExchangeRateAPIURL  string
	ExchangeRateAPIKey  string
	ExchangeRateTimeout time.Duration

	// Optional for every backend.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) IsValid() bool {
	return t == SQLiteBackend || t == MemoryBackend
}

func (t BackendType) String() string {
	return string(t)
}
