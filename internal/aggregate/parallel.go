package aggregate

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/parking-cli/internal/ticket"
)

// minPartitionRows keeps small tables on the single-threaded path.
const minPartitionRows = 50_000

// ValueCountsParallel is ValueCounts computed over row partitions. Partial
// groups are merged before ordering, so the result is identical to ValueCounts.
func ValueCountsParallel(ctx context.Context, t *ticket.Table, col ticket.Column, normalize bool, workers int) (Counts, error) {
	if err := checkColumn("value counts", col); err != nil {
		return nil, err
	}
	n := t.Len()
	if workers <= 1 || n < minPartitionRows {
		return ValueCounts(t, col, normalize)
	}

	size := (n + workers - 1) / workers
	partials := make([]map[ticket.Value]int, workers)

	g, gCtx := errgroup.WithContext(ctx)
	for w := range workers {
		lo := w * size
		if lo >= n {
			break
		}
		hi := min(lo+size, n)
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			m := make(map[ticket.Value]int)
			t.Slice(lo, hi).Each(func(_ int, row ticket.Ticket) {
				m[row.Value(col)]++
			})
			partials[w] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "aggregate: parallel value counts")
	}

	merged := make(map[ticket.Value]int)
	for _, m := range partials {
		for v, c := range m {
			merged[v] += c
		}
	}
	return finishCounts(merged, n, normalize), nil
}
