package search

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/polymap"
	"github.com/san-kum/chaosfind/internal/sim"
)

// Report tallies one batch. Best is the top exponent of the set once the
// batch ends, or dynamo.NonChaotic when the set is empty.
type Report struct {
	Attempts   int
	Completed  int
	Diverged   int
	Collapsed  int
	Chaotic    int
	Admitted   int
	HookErrors int
	Best       float64
}

func (r *Report) merge(o Report) {
	r.Attempts += o.Attempts
	r.Completed += o.Completed
	r.Diverged += o.Diverged
	r.Collapsed += o.Collapsed
	r.Chaotic += o.Chaotic
	r.Admitted += o.Admitted
}

func (r *Report) record(res sim.Result) {
	r.Attempts++
	switch res.Outcome {
	case sim.Completed:
		r.Completed++
	case sim.Diverged:
		r.Diverged++
	case sim.Collapsed:
		r.Collapsed++
	}
}

// SearchBatch runs n attempts on the selector's own random source, one after
// another. n <= 0 means cfg.MaxAttempts. On cancellation the partial report
// is returned together with ctx.Err().
//
// Concurrent SearchBatch calls on one selector are serialised.
func (s *Selector) SearchBatch(ctx context.Context, n int) (Report, error) {
	if n <= 0 {
		n = s.cfg.MaxAttempts
	}

	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	return s.run(ctx, s.sampler, n)
}

// Search spreads n attempts over workers goroutines. Each worker draws from
// its own source seeded with base+idx, where base comes from the selector's
// source, so a seeded selector explores the same maps on every run. Workers
// only meet at admission.
func (s *Selector) Search(ctx context.Context, n, workers int) (Report, error) {
	if n <= 0 {
		n = s.cfg.MaxAttempts
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		return s.SearchBatch(ctx, n)
	}

	s.seqMu.Lock()
	base := s.rng.Int63()
	s.seqMu.Unlock()

	hookErrs := s.HookErrors()
	reports := make([]Report, workers)
	chunk := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}

		idx := w
		g.Go(func() error {
			rng := rand.New(rand.NewSource(base + int64(idx)))
			sampler := s.engine.NewSampler(rng)
			rep, err := s.attempts(gctx, sampler, end-start)
			reports[idx] = rep
			return err
		})
	}
	err := g.Wait()

	var total Report
	for _, rep := range reports {
		total.merge(rep)
	}
	total.HookErrors = s.HookErrors() - hookErrs
	total.Best = s.topExponent()
	return total, err
}

func (s *Selector) run(ctx context.Context, sampler *polymap.Sampler, n int) (Report, error) {
	hookErrs := s.HookErrors()
	rep, err := s.attempts(ctx, sampler, n)
	rep.HookErrors = s.HookErrors() - hookErrs
	rep.Best = s.topExponent()
	return rep, err
}

func (s *Selector) attempts(ctx context.Context, sampler *polymap.Sampler, n int) (Report, error) {
	var rep Report
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		res := s.engine.Run(sampler)
		rep.record(res)
		if s.onAttempt != nil {
			s.onAttempt(res)
		}

		if dynamo.IsNonChaotic(res.Lyapunov) || res.Lyapunov <= s.threshold {
			continue
		}
		rep.Chaotic++

		if _, ok := s.TryAdmit(ctx, res.Coefficients, res.Lyapunov, res.Trajectory); ok {
			rep.Admitted++
		}
	}
	return rep, nil
}
