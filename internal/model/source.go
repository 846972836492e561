package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
)

// FileSource reads artifacts from disk. Relative names resolve against Dir.
type FileSource struct {
	Dir string
}

func (f FileSource) Fetch(_ context.Context, name string) ([]byte, error) {
	path := name
	if !filepath.IsAbs(path) && f.Dir != "" {
		path = filepath.Join(f.Dir, path)
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return raw, nil
}

// RowQuerier is the subset of *pgxpool.Pool used by PostgresSource.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectArtifact = `SELECT body FROM model_artifacts WHERE name = $1`

// PostgresSource reads artifacts from the model_artifacts table.
type PostgresSource struct {
	DB RowQuerier
}

func (p PostgresSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := p.DB.QueryRow(ctx, selectArtifact, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: model_artifacts.%s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact %s: %w", name, err)
	}
	return body, nil
}
