package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/stef/internal/ir"
)

// ErrNotFound is returned when no artifact has the requested key.
var ErrNotFound = errors.New("artifact not found")

// Build is one recorded compilation of a schema.
type Build struct {
	ID              string
	Seq             int64
	SchemaName      string
	SchemaHash      string
	CompilerVersion string
}

// Artifact is an output of a build.
type Artifact struct {
	Key        string
	BuildID    string
	SchemaHash string
	Target     string
	// Options are the target options the artifact was generated with. Numbers
	// read back from the store are json.Number.
	Options map[string]any
	Content []byte
}

// BeginBuild records a new build of the schema and assigns it the next seq.
func (s *Store) BeginBuild(ctx context.Context, schemaName, schemaHash string) (Build, error) {
	b := Build{
		ID:              s.ids.Generate(),
		SchemaName:      schemaName,
		SchemaHash:      schemaHash,
		CompilerVersion: ir.CompilerVersion,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Build{}, fmt.Errorf("begin build: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM builds").Scan(&b.Seq); err != nil {
		return Build{}, fmt.Errorf("begin build: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO builds (id, seq, schema_name, schema_hash, compiler_version)
		VALUES (?, ?, ?, ?, ?)
	`, b.ID, b.Seq, b.SchemaName, b.SchemaHash, b.CompilerVersion)
	if err != nil {
		return Build{}, fmt.Errorf("begin build: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Build{}, fmt.Errorf("begin build: commit: %w", err)
	}

	slog.Debug("build started", "id", b.ID, "seq", b.Seq, "schema", schemaName)
	return b, nil
}

// PutArtifact stores a and returns its key. An empty Key is derived with
// ir.ArtifactKey. The boolean is false when the key was already cached, in
// which case the stored row is left untouched.
func (s *Store) PutArtifact(ctx context.Context, a Artifact) (string, bool, error) {
	key := a.Key
	if key == "" {
		k, err := ir.ArtifactKey(a.SchemaHash, a.Target, a.Options)
		if err != nil {
			return "", false, fmt.Errorf("put artifact: %w", err)
		}
		key = k
	}
	options, err := marshalOptions(a.Options)
	if err != nil {
		return "", false, fmt.Errorf("put artifact: %w", err)
	}
	content := a.Content
	if content == nil {
		content = []byte{}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (key, build_id, schema_hash, target, options, content)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, a.BuildID, a.SchemaHash, a.Target, options, content)
	if err != nil {
		return "", false, fmt.Errorf("put artifact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("put artifact: rows affected: %w", err)
	}
	return key, n > 0, nil
}

// GetArtifact returns the artifact with the given key, or ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, key string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, build_id, schema_hash, target, options, content
		FROM artifacts
		WHERE key = ?
	`, key)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, fmt.Errorf("get artifact %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("get artifact %s: %w", key, err)
	}
	return a, nil
}

// Lookup returns the cached artifact for a schema hash, target and options.
func (s *Store) Lookup(ctx context.Context, schemaHash, target string, options map[string]any) (Artifact, error) {
	key, err := ir.ArtifactKey(schemaHash, target, options)
	if err != nil {
		return Artifact{}, fmt.Errorf("lookup: %w", err)
	}
	return s.GetArtifact(ctx, key)
}

// ListBuilds returns every build ordered by seq.
func (s *Store) ListBuilds(ctx context.Context) ([]Build, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, schema_name, schema_hash, compiler_version
		FROM builds
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.Seq, &b.SchemaName, &b.SchemaHash, &b.CompilerVersion); err != nil {
			return nil, fmt.Errorf("list builds: scan: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	return builds, nil
}

// ArtifactsForSchema returns the artifacts of a schema hash ordered by
// target, then key.
func (s *Store) ArtifactsForSchema(ctx context.Context, schemaHash string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, build_id, schema_hash, target, options, content
		FROM artifacts
		WHERE schema_hash = ?
		ORDER BY target COLLATE BINARY ASC, key COLLATE BINARY ASC
	`, schemaHash)
	if err != nil {
		return nil, fmt.Errorf("artifacts for schema: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("artifacts for schema: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("artifacts for schema: %w", err)
	}
	return artifacts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (Artifact, error) {
	var a Artifact
	var options string
	if err := row.Scan(&a.Key, &a.BuildID, &a.SchemaHash, &a.Target, &options, &a.Content); err != nil {
		return Artifact{}, err
	}
	opts, err := unmarshalOptions(options)
	if err != nil {
		return Artifact{}, err
	}
	a.Options = opts
	return a, nil
}

// marshalOptions stores options as canonical JSON TEXT.
func marshalOptions(options map[string]any) (string, error) {
	if options == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

// unmarshalOptions parses options TEXT, keeping numbers as json.Number so
// large integers survive. Empty options come back as nil.
func unmarshalOptions(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return out, nil
}
