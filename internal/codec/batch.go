package codec

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/stef/internal/ir"
)

// CompileBatch compiles independent schemas concurrently. The result is in
// input order. The first failure cancels the remaining work and is
// returned.
func CompileBatch(ctx context.Context, schemas []*ir.Schema, opts ...SetOption) ([]*Set, error) {
	sets := make([]*Set, len(schemas))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, schema := range schemas {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			set, err := Compile(schema, opts...)
			if err != nil {
				return fmt.Errorf("compile %s: %w", schema.Name, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("batch compiled", "schemas", len(sets))
	return sets, nil
}
