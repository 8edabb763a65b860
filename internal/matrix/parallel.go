package matrix

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/inodb/vcf2snps/internal/vcf"
)

// WorkItem holds one raw data line and the variant row it fills.
type WorkItem struct {
	Seq        int
	Line       string
	LineNumber int
}

// fillParallel fans data lines out to a pool of workers. Each variant row
// is written by exactly one worker, so the arrays need no locking.
// The first error cancels the remaining work.
func (b *Builder) fillParallel(ctx context.Context, r vcf.LineReader, m *Matrix, ids map[string]uint32) error {
	g, ctx := errgroup.WithContext(ctx)
	items := make(chan WorkItem, 2*b.workers)

	g.Go(func() error {
		defer close(items)
		seq := 0
		for {
			line, n, err := r.NextLine()
			if err != nil {
				return err
			}
			if line == "" {
				break
			}
			if seq >= m.NSNPs {
				return errSourceChanged(m.NSNPs)
			}
			select {
			case items <- WorkItem{Seq: seq, Line: line, LineNumber: n}:
			case <-ctx.Done():
				return ctx.Err()
			}
			seq++
		}
		if seq != m.NSNPs {
			return errSourceChanged(m.NSNPs)
		}
		return nil
	})

	for w := 0; w < b.workers; w++ {
		g.Go(func() error {
			for item := range items {
				if err := fillLine(m, item, ids); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
