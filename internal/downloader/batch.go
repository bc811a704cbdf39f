package downloader

import (
	"context"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Run fetches every descriptor into dir and returns one outcome per
// descriptor, in input order. With a nil limit all fetches run at once.
// Otherwise descriptors are split into consecutive chunks of limit.Items;
// each chunk runs concurrently and the next chunk starts limit.Window after
// the previous one finished. There is no wait after the last chunk.
func (m *Manager) Run(ctx context.Context, descs []Descriptor, dir string, headers http.Header, limit *RateLimit) []Outcome {
	outcomes := make([]Outcome, len(descs))
	if len(descs) == 0 {
		return outcomes
	}

	size := limit.ChunkSize(len(descs))

	for start := 0; start < len(descs); start += size {
		end := min(start+size, len(descs))

		if start > 0 {
			if err := Wait(ctx, limit.Window); err != nil {
				for i := start; i < len(descs); i++ {
					outcomes[i] = Outcome{Descriptor: descs[i], Err: err}
				}
				return outcomes
			}
			m.log.Debug().Int("from", start).Int("to", end).Msg("starting next chunk")
		}

		m.runChunk(ctx, descs, outcomes, start, end, dir, headers)
	}

	return outcomes
}

func (m *Manager) runChunk(ctx context.Context, descs []Descriptor, outcomes []Outcome, start, end int, dir string, headers http.Header) {
	var g errgroup.Group
	for i := start; i < end; i++ {
		g.Go(func() error {
			path, err := m.Fetch(ctx, descs[i], dir, headers)
			outcomes[i] = Outcome{Descriptor: descs[i], Path: path, Err: err}

			if err != nil {
				m.log.Warn().Err(err).Str("url", descs[i].URL).Msg("page failed")
			} else {
				m.log.Info().Str("path", path).Msg("page saved")
			}
			if m.progress != nil {
				m.progress(outcomes[i])
			}
			return nil
		})
	}
	g.Wait()
}
