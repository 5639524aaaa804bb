package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/repository"
)

// Schema creates and drops the tables and runs a bulk load in one
// transaction.
type Schema interface {
	Create(ctx context.Context) error
	Drop(ctx context.Context) error
	Bulk(ctx context.Context, fn func(Sink) error) error
}

// RepoSchema adapts a repository.SchemaRepo to Schema.
func RepoSchema(r *repository.SchemaRepo) Schema { return repoSchema{r} }

type repoSchema struct {
	*repository.SchemaRepo
}

func (s repoSchema) Bulk(ctx context.Context, fn func(Sink) error) error {
	return s.WithBulkWriter(ctx, func(w *repository.BulkWriter) error { return fn(w) })
}

// Initializer creates the schema and loads the CSV at Path into it.
type Initializer struct {
	Schema Schema
	Path   string
}

// Initialize creates the tables and bulk-loads the CSV in one transaction.
// It returns repository.ErrAlreadyInitialized when tables already exist.
// If loading fails the freshly created tables are dropped again.
func (in *Initializer) Initialize(ctx context.Context) (Report, error) {
	rows, err := in.read()
	if err != nil {
		return Report{}, err
	}
	if err := in.Schema.Create(ctx); err != nil {
		return Report{}, err
	}
	return in.load(ctx, rows)
}

// Reset drops every table and initializes the database again.  The CSV is
// read and parsed before anything is dropped, so an unreadable or
// malformed file leaves the current tables untouched.
func (in *Initializer) Reset(ctx context.Context) (Report, error) {
	rows, err := in.read()
	if err != nil {
		return Report{}, err
	}
	if err := in.Schema.Drop(ctx); err != nil {
		return Report{}, fmt.Errorf("drop schema: %w", err)
	}
	if err := in.Schema.Create(ctx); err != nil {
		return Report{}, err
	}
	return in.load(ctx, rows)
}

func (in *Initializer) read() ([][]string, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", in.Path, err)
	}
	defer f.Close()

	rows, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", in.Path, err)
	}
	return rows, nil
}

func (in *Initializer) load(ctx context.Context, rows [][]string) (Report, error) {
	var report Report
	err := in.Schema.Bulk(ctx, func(sink Sink) error {
		var lerr error
		report, lerr = Apply(ctx, rows, sink)
		return lerr
	})
	if err != nil {
		if derr := in.Schema.Drop(ctx); derr != nil {
			logging.Error().Err(derr).Msg("drop schema after failed load")
		}
		return Report{}, err
	}
	logging.Info().
		Int("movies", report.Movies).
		Int("users", report.Users).
		Int("reservations", report.Reservations).
		Int("skipped", len(report.Skipped)).
		Msg("database successfully initialized")
	return report, nil
}
