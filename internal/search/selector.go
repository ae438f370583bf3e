package search

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/polymap"
	"github.com/san-kum/chaosfind/internal/sim"
)

type Option func(*Selector)

func WithPersister(p Persister) Option { return func(s *Selector) { s.persister = p } }
func WithRenderer(r Renderer) Option   { return func(s *Selector) { s.renderer = r } }

// WithClock replaces time.Now for candidate timestamps.
func WithClock(now func() time.Time) Option { return func(s *Selector) { s.now = now } }

// WithRand sets the random source for sequential batches and for seeding
// parallel workers. Without it the source is seeded from cfg.Seed, or from
// the clock when cfg.Seed is zero.
func WithRand(rng *rand.Rand) Option { return func(s *Selector) { s.rng = rng } }

// OnAdmit is called after each admission, inside the admission lock, with
// the new candidate and a copy of the updated set.
func OnAdmit(fn func(c dynamo.Candidate, set []dynamo.Candidate)) Option {
	return func(s *Selector) { s.onAdmit = fn }
}

// OnAttempt is called after every attempt. During parallel searches it is
// called from several goroutines at once.
func OnAttempt(fn func(res sim.Result)) Option {
	return func(s *Selector) { s.onAttempt = fn }
}

type Selector struct {
	cfg       *config.SearchConfig
	engine    *sim.Engine
	threshold float64
	capacity  int

	mu         sync.Mutex
	best       []dynamo.Candidate
	hookErrors int

	// seqMu guards rng and sampler, used by SearchBatch and worker seeding.
	seqMu   sync.Mutex
	rng     *rand.Rand
	sampler *polymap.Sampler

	persister Persister
	renderer  Renderer
	now       func() time.Time
	onAdmit   func(dynamo.Candidate, []dynamo.Candidate)
	onAttempt func(sim.Result)
}

// New validates cfg and builds a selector seeded with initial, which is
// copied, sorted and truncated to MaxSystems. Initial members below the
// exponent threshold are dropped.
func New(cfg *config.SearchConfig, initial []dynamo.Candidate, opts ...Option) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Selector{
		cfg:       cfg,
		engine:    sim.New(cfg),
		threshold: cfg.Lyapunov.LyapunovThreshold,
		capacity:  cfg.MaxSystems,
		persister: nopPersister{},
		renderer:  nopRenderer{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.rng = rand.New(rand.NewSource(seed))
	}
	s.sampler = s.engine.NewSampler(s.rng)

	s.best = make([]dynamo.Candidate, 0, s.capacity+1)
	for _, c := range initial {
		if c.Lyapunov < s.threshold {
			slog.Warn("dropping stored system below threshold",
				"timestamp", c.Timestamp, "lyapunov", c.Lyapunov, "threshold", s.threshold)
			continue
		}
		s.best = append(s.best, c)
	}
	s.sortLocked()
	if len(s.best) > s.capacity {
		s.best = s.best[:s.capacity]
	}

	return s, nil
}

func (s *Selector) sortLocked() {
	sort.SliceStable(s.best, func(i, j int) bool {
		return s.best[i].Lyapunov > s.best[j].Lyapunov
	})
}

// IsWorthy reports whether a system with this exponent would be admitted
// right now.
func (s *Selector) IsWorthy(exp float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isWorthyLocked(exp)
}

func (s *Selector) isWorthyLocked(exp float64) bool {
	if math.IsNaN(exp) || exp < s.threshold {
		return false
	}
	if len(s.best) < s.capacity {
		return true
	}
	// best is sorted descending, so the minimum is last
	return exp > s.best[len(s.best)-1].Lyapunov
}

// TryAdmit inserts a new candidate when it is worthy, evicting the lowest
// ranked member if the set overflows, then invokes the hooks once.
func (s *Selector) TryAdmit(ctx context.Context, coeffs []float64, exp float64, points []dynamo.State) (dynamo.Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isWorthyLocked(exp) {
		return dynamo.Candidate{}, false
	}

	c := dynamo.NewCandidate(s.cfg.Dimensions, s.cfg.ParamCount, s.cfg.Iterations, coeffs, exp, points, s.now())

	s.best = append(s.best, c)
	s.sortLocked()
	if len(s.best) > s.capacity {
		evicted := s.best[len(s.best)-1]
		s.best = s.best[:s.capacity]
		slog.Debug("system evicted", "timestamp", evicted.Timestamp, "lyapunov", evicted.Lyapunov)
	}

	slog.Info("system admitted",
		"id", c.ID, "lyapunov", c.Lyapunov, "dimensions", c.Dimensions, "stored", len(s.best))

	// an admitted system is persisted even when the search is being cancelled
	snapshot := s.snapshotLocked()
	if err := s.persister.SaveSystems(context.WithoutCancel(ctx), snapshot); err != nil {
		s.hookErrors++
		slog.Error("persisting best set failed", "error", err)
	}
	if err := s.renderer.Render(c); err != nil {
		s.hookErrors++
		slog.Warn("rendering system failed", "id", c.ID, "error", err)
	}
	if s.onAdmit != nil {
		s.onAdmit(c, snapshot)
	}

	return c, true
}

func (s *Selector) snapshotLocked() []dynamo.Candidate {
	out := make([]dynamo.Candidate, len(s.best))
	copy(out, s.best)
	return out
}

// Best returns a copy of the current set, highest exponent first.
func (s *Selector) Best() []dynamo.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.best)
}

// HookErrors counts persistence and rendering failures since construction.
func (s *Selector) HookErrors() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hookErrors
}

func (s *Selector) Config() *config.SearchConfig { return s.cfg }

func (s *Selector) topExponent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.best) == 0 {
		return dynamo.NonChaotic
	}
	return s.best[0].Lyapunov
}
