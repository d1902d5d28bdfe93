package graphs

import (
	"context"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"golang.org/x/sync/errgroup"
)

// Factory builds an independent facade for one worker.
type Factory func() *API

// WorkerFactory returns a Factory cloning a's client and binding each clone
// to a's current connection.
func WorkerFactory(a *API) Factory {
	return func() *API {
		c := a.client.Clone()
		if conn := a.client.Connection(); conn != nil {
			c.Bind(*conn)
		}
		return NewAPI(c)
	}
}

// CountVersions counts the versions of each graph in names, at most limit at
// a time. counts[i] belongs to names[i]; a failed count is 0. The returned
// error is only ever the context's.
func CountVersions(ctx context.Context, factory Factory, names []string, state string, limit int) ([]int, error) {
	counts := make([]int, len(names))
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			versions, err := factory().Versions(gctx, name, state)
			if err != nil {
				grip.Warning(message.WrapError(err, message.Fields{
					"message": "counting graph versions",
					"graph":   name,
				}))
				return nil
			}
			counts[i] = len(versions)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, ctx.Err()
}
