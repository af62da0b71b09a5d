package runstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/csvdxf/internal/config"
	"github.com/JonMunkholm/csvdxf/internal/mapping"
	"github.com/JonMunkholm/csvdxf/internal/pipeline"
	"github.com/JonMunkholm/csvdxf/internal/profile"
	"github.com/JonMunkholm/csvdxf/internal/table"
)

func sampleDraft() *pipeline.Draft {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &pipeline.Draft{
		RunID:   uuid.New(),
		Source:  "/tmp/points.csv",
		Digest:  "abc123",
		Input:   table.Options{Delimiter: ';', Encoding: "utf-8", DecimalSeparator: ','},
		Columns: []string{"lon", "lat"},
		Rows:    2,
		Profiles: []profile.ColumnProfile{
			{Name: "lon", Index: 0, Type: table.CellNumber, NumericRatio: 1, HasRange: true, Min: 1, Max: 2, Samples: []string{"1", "2"}},
			{Name: "lat", Index: 1, Type: table.CellNumber, NumericRatio: 1, Samples: []string{"3"}},
		},
		Candidates: []mapping.RoleCandidate{
			{Column: "lon", Role: mapping.RoleX, Confidence: 0.9, Scored: true},
			{Column: "lat", Role: mapping.RoleY, Confidence: 0.3},
		},
		Mapping: &mapping.Draft{
			Assignments: []mapping.Assignment{
				{Column: "lon", Role: mapping.RoleX, Confidence: 0.9, Source: mapping.SourceInferred},
				{Column: "lat", Role: mapping.RoleY, Confidence: 0.3, Source: mapping.SourceInferred},
			},
			Warnings: []mapping.Warning{{Code: mapping.WarnNeedsConfirm, Column: "lat", Message: "please confirm"}},
		},
		Inferences: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	d := sampleDraft()

	_, err := s.Get(ctx, d.RunID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, d))

	got, err := s.Get(ctx, d.RunID)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	// Save replaces.
	d.Inferences = 2
	d.Mapping.Assignments[1].Confidence = 0.8
	require.NoError(t, s.Save(ctx, d))

	got, err = s.Get(ctx, d.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Inferences)
	assert.Equal(t, 0.8, got.Mapping.Assignments[1].Confidence)

	// Returned drafts are independent copies.
	got.Columns[0] = "changed"
	again, err := s.Get(ctx, d.RunID)
	require.NoError(t, err)
	assert.Equal(t, "lon", again.Columns[0])

	require.NoError(t, s.Delete(ctx, d.RunID))
	_, err = s.Get(ctx, d.RunID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, d.RunID), ErrNotFound)
}

func TestMemory(t *testing.T) {
	s := NewMemory()
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	d := sampleDraft()

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, d))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, d.RunID)
	require.NoError(t, err)
	assert.Equal(t, d.Digest, got.Digest)
}

func TestSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), " ")
	assert.Error(t, err)
}

func TestPostgres(t *testing.T) {
	url := os.Getenv("CSVDXF_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CSVDXF_TEST_DATABASE_URL not set")
	}

	s, err := OpenPostgres(context.Background(), url)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	s.Close()

	_, err = Open(ctx, config.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}

func TestNotFoundIsSentinel(t *testing.T) {
	_, err := NewMemory().Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}
