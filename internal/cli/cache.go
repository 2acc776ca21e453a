package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/stef/internal/ir"
	"github.com/roach88/stef/internal/store"
)

// artifactCache memoizes generated artifacts in the build store. A nil
// cache always regenerates.
type artifactCache struct {
	store *store.Store
}

// openCache opens the store at path, creating its directory. An empty path
// disables caching.
func openCache(path string) (*artifactCache, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	return &artifactCache{store: st}, nil
}

func (c *artifactCache) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}

// produce returns the cached artifact of schema for target and options, or
// runs generate and records a new build. The boolean reports a cache hit.
func (c *artifactCache) produce(
	ctx context.Context,
	schema *ir.Schema,
	target string,
	options map[string]any,
	generate func() ([]byte, error),
) ([]byte, bool, error) {
	if c == nil {
		out, err := generate()
		return out, false, err
	}

	hash, err := ir.SchemaHash(schema)
	if err != nil {
		return nil, false, err
	}
	cached, err := c.store.Lookup(ctx, hash, target, options)
	switch {
	case err == nil:
		slog.Debug("cache hit", "schema", schema.Name, "target", target, "key", cached.Key)
		return cached.Content, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, err
	}

	out, err := generate()
	if err != nil {
		return nil, false, err
	}
	build, err := c.store.BeginBuild(ctx, schema.Name, hash)
	if err != nil {
		return nil, false, err
	}
	key, _, err := c.store.PutArtifact(ctx, store.Artifact{
		BuildID:    build.ID,
		SchemaHash: hash,
		Target:     target,
		Options:    options,
		Content:    out,
	})
	if err != nil {
		return nil, false, err
	}
	slog.Debug("cache miss", "schema", schema.Name, "target", target, "key", key, "build", build.ID)
	return out, false, nil
}
