// Package store archives summary runs so earlier extracts can be compared
// without re-ingesting them. Only aggregate views are persisted.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/parking-cli/internal/report"
)

// RunStatus is the lifecycle state of an archived run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ErrRunNotFound is returned by GetRun for unknown IDs.
var ErrRunNotFound = eris.New("run not found")

// Run is one archived summarize invocation.
type Run struct {
	ID           string          `json:"id" yaml:"id"`
	Source       string          `json:"source" yaml:"source"`
	Status       RunStatus       `json:"status" yaml:"status"`
	Rows         int             `json:"rows" yaml:"rows"`
	RevenueTotal uint64          `json:"revenue_total" yaml:"revenue_total"`
	Error        string          `json:"error,omitempty" yaml:"error,omitempty"`
	Summary      json.RawMessage `json:"summary,omitempty" yaml:"-"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" yaml:"updated_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Source string    `json:"source,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for archived runs.
type Store interface {
	CreateRun(ctx context.Context, source string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, s *report.Summary) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

func marshalSummary(s *report.Summary) ([]byte, error) {
	if s == nil {
		return nil, eris.New("nil summary")
	}
	b, err := json.Marshal(s)
	return b, eris.Wrap(err, "marshal summary")
}

// Config is the subset of store settings Open needs.
type Config struct {
	Driver      string
	DatabaseURL string
}

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "parking.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
