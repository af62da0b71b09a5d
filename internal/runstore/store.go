// Package runstore keeps drafts of runs that are waiting for human
// confirmation, so a run can be resumed by a later CLI invocation or HTTP
// request.
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvdxf/internal/config"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
)

// ErrNotFound is returned when no draft exists for a run id.
var ErrNotFound = errors.New("run not found")

// Store persists drafts keyed by run id. Save replaces any earlier draft
// for the same run.
type Store interface {
	Save(ctx context.Context, d *pipeline.Draft) error
	Get(ctx context.Context, id uuid.UUID) (*pipeline.Draft, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Close() error
}

// Drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func encode(d *pipeline.Draft) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode draft %s: %w", d.RunID, err)
	}
	return data, nil
}

func decode(id uuid.UUID, data []byte) (*pipeline.Draft, error) {
	var d pipeline.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return &d, nil
}
