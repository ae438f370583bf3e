package search_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/search"
	"github.com/san-kum/chaosfind/internal/sim"
)

type recordingPersister struct {
	mu    sync.Mutex
	calls [][]dynamo.Candidate
	err   error
}

func (p *recordingPersister) SaveSystems(_ context.Context, set []dynamo.Candidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, set)
	return p.err
}

func (p *recordingPersister) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type recordingRenderer struct {
	mu       sync.Mutex
	rendered []dynamo.Candidate
	err      error
}

func (r *recordingRenderer) Render(c dynamo.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, c)
	return r.err
}

func (r *recordingRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rendered)
}

var fixedNow = time.Date(2024, 3, 9, 14, 30, 5, 0, time.Local)

func stored(exps ...float64) []dynamo.Candidate {
	out := make([]dynamo.Candidate, len(exps))
	for i, e := range exps {
		out[i] = dynamo.NewCandidate(3, 12, 10, []float64{float64(i)}, e, nil, fixedNow)
	}
	return out
}

func exponents(set []dynamo.Candidate) []float64 {
	out := make([]float64, len(set))
	for i, c := range set {
		out[i] = c.Lyapunov
	}
	return out
}

func isSortedDescending(set []dynamo.Candidate) bool {
	for i := 1; i < len(set); i++ {
		if set[i].Lyapunov > set[i-1].Lyapunov {
			return false
		}
	}
	return true
}

func smallConfig() *config.SearchConfig {
	cfg := config.Default()
	cfg.Dimensions = 2
	cfg.Iterations = 300
	cfg.MaxSystems = 3
	cfg.MaxAttempts = 120
	cfg.Seed = 42
	return cfg
}

var _ = Describe("Selector", func() {
	var (
		cfg       *config.SearchConfig
		persister *recordingPersister
		renderer  *recordingRenderer
		ctx       context.Context
	)

	BeforeEach(func() {
		cfg = config.Default()
		cfg.MaxSystems = 2
		cfg.Lyapunov.LyapunovThreshold = 0.05
		persister = &recordingPersister{}
		renderer = &recordingRenderer{}
		ctx = context.Background()
	})

	newSelector := func(initial []dynamo.Candidate) *search.Selector {
		sel, err := search.New(cfg, initial,
			search.WithPersister(persister),
			search.WithRenderer(renderer),
			search.WithClock(func() time.Time { return fixedNow }),
		)
		Expect(err).NotTo(HaveOccurred())
		return sel
	}

	Describe("New", func() {
		It("rejects an invalid configuration", func() {
			cfg.Dimensions = 0
			_, err := search.New(cfg, nil)
			Expect(errors.Is(err, dynamo.ErrInvalidConfig)).To(BeTrue())
		})

		It("sorts and truncates the initial set", func() {
			sel := newSelector(stored(0.2, 0.9, 0.4))
			Expect(exponents(sel.Best())).To(Equal([]float64{0.9, 0.4}))
		})

		It("drops initial members below the threshold", func() {
			sel := newSelector(stored(0.01, 0.3))
			Expect(exponents(sel.Best())).To(Equal([]float64{0.3}))
		})

		It("does not alias the caller's slice", func() {
			initial := stored(0.5, 0.3)
			sel := newSelector(initial)
			initial[0].Lyapunov = 99
			Expect(sel.Best()[0].Lyapunov).To(Equal(0.5))
		})
	})

	Describe("IsWorthy", func() {
		It("accepts the threshold itself while there is room", func() {
			sel := newSelector(nil)
			Expect(sel.IsWorthy(0.05)).To(BeTrue())
			Expect(sel.IsWorthy(0.0499)).To(BeFalse())
		})

		It("never accepts the non-chaotic sentinel or NaN", func() {
			sel := newSelector(nil)
			Expect(sel.IsWorthy(dynamo.NonChaotic)).To(BeFalse())
			Expect(sel.IsWorthy(math.NaN())).To(BeFalse())
		})

		It("requires beating the minimum once full", func() {
			sel := newSelector(stored(0.5, 0.3))
			Expect(sel.IsWorthy(0.2)).To(BeFalse())
			Expect(sel.IsWorthy(0.3)).To(BeFalse())
			Expect(sel.IsWorthy(0.31)).To(BeTrue())
			Expect(sel.IsWorthy(0.05)).To(BeFalse())
		})
	})

	Describe("TryAdmit", func() {
		It("rejects below the minimum of a full set without calling hooks", func() {
			sel := newSelector(stored(0.5, 0.3))

			_, ok := sel.TryAdmit(ctx, []float64{1}, 0.2, nil)
			Expect(ok).To(BeFalse())
			Expect(exponents(sel.Best())).To(Equal([]float64{0.5, 0.3}))
			Expect(persister.Calls()).To(BeZero())
			Expect(renderer.Calls()).To(BeZero())
		})

		It("evicts the lowest member and calls each hook once", func() {
			sel := newSelector(stored(0.5, 0.3))
			points := []dynamo.State{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}

			c, ok := sel.TryAdmit(ctx, []float64{1, 2}, 0.4, points)
			Expect(ok).To(BeTrue())
			Expect(c.ID).NotTo(BeEmpty())
			Expect(c.Timestamp).To(Equal("20240309_143005"))
			Expect(c.Points).To(Equal([][]float64{{0.1, 0.2, 0.3}, {0.4, 0.5, 0.6}}))
			Expect(c.Dimensions).To(Equal(cfg.Dimensions))
			Expect(c.ParamCount).To(Equal(cfg.ParamCount))

			Expect(exponents(sel.Best())).To(Equal([]float64{0.5, 0.4}))
			Expect(persister.Calls()).To(Equal(1))
			Expect(exponents(persister.calls[0])).To(Equal([]float64{0.5, 0.4}))
			Expect(renderer.Calls()).To(Equal(1))
			Expect(renderer.rendered[0].ID).To(Equal(c.ID))
		})

		It("treats a tie with the minimum as not worthy", func() {
			sel := newSelector(stored(0.5, 0.3))
			_, ok := sel.TryAdmit(ctx, nil, 0.3, nil)
			Expect(ok).To(BeFalse())
		})

		It("keeps insertion order among equal exponents", func() {
			cfg.MaxSystems = 3
			sel := newSelector(nil)

			first, _ := sel.TryAdmit(ctx, []float64{1}, 0.2, nil)
			second, _ := sel.TryAdmit(ctx, []float64{2}, 0.2, nil)
			best := sel.Best()
			Expect(best).To(HaveLen(2))
			Expect(best[0].ID).To(Equal(first.ID))
			Expect(best[1].ID).To(Equal(second.ID))
		})

		It("admits a new best at the front", func() {
			sel := newSelector(stored(0.5, 0.3))
			_, ok := sel.TryAdmit(ctx, nil, 0.8, nil)
			Expect(ok).To(BeTrue())
			Expect(exponents(sel.Best())).To(Equal([]float64{0.8, 0.5}))
		})

		It("survives failing hooks and counts the failures", func() {
			persister.err = errors.New("disk full")
			renderer.err = dynamo.ErrUnsupportedLayout
			sel := newSelector(nil)

			_, ok := sel.TryAdmit(ctx, nil, 0.6, nil)
			Expect(ok).To(BeTrue())
			Expect(sel.Len()).To(Equal(1))
			Expect(sel.HookErrors()).To(Equal(2))
		})

		It("reports admissions through OnAdmit", func() {
			var seen []float64
			sel, err := search.New(cfg, nil, search.OnAdmit(func(c dynamo.Candidate, set []dynamo.Candidate) {
				seen = append(seen, c.Lyapunov)
				Expect(set).To(ContainElement(c))
			}))
			Expect(err).NotTo(HaveOccurred())

			sel.TryAdmit(ctx, nil, 0.7, nil)
			sel.TryAdmit(ctx, nil, 0.01, nil)
			Expect(seen).To(Equal([]float64{0.7}))
		})

		It("holds the capacity under concurrent admissions", func() {
			cfg.MaxSystems = 5
			sel := newSelector(nil)

			var wg sync.WaitGroup
			for i := 0; i < 64; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					sel.TryAdmit(ctx, nil, 0.1+float64(i)/100, nil)
				}(i)
			}
			wg.Wait()

			best := sel.Best()
			Expect(best).To(HaveLen(5))
			Expect(isSortedDescending(best)).To(BeTrue())
			Expect(best[0].Lyapunov).To(BeNumerically("~", 0.73, 1e-12))
			Expect(best[4].Lyapunov).To(BeNumerically("~", 0.69, 1e-12))
		})
	})

	Describe("Best", func() {
		It("returns a copy", func() {
			sel := newSelector(stored(0.5))
			best := sel.Best()
			best[0].Lyapunov = -1
			Expect(sel.Best()[0].Lyapunov).To(Equal(0.5))
		})
	})
})

var _ = Describe("Searching", func() {
	var (
		cfg       *config.SearchConfig
		persister *recordingPersister
		renderer  *recordingRenderer
	)

	BeforeEach(func() {
		cfg = smallConfig()
		persister = &recordingPersister{}
		renderer = &recordingRenderer{}
	})

	checkInvariants := func(sel *search.Selector, rep search.Report) {
		best := sel.Best()
		Expect(len(best)).To(BeNumerically("<=", cfg.MaxSystems))
		Expect(isSortedDescending(best)).To(BeTrue())
		for _, c := range best {
			Expect(c.Lyapunov).To(BeNumerically(">=", cfg.Lyapunov.LyapunovThreshold))
		}
		Expect(rep.Completed + rep.Diverged + rep.Collapsed).To(Equal(rep.Attempts))
		Expect(rep.Admitted).To(BeNumerically("<=", rep.Chaotic))
		Expect(rep.Chaotic).To(BeNumerically("<=", rep.Completed))
		Expect(persister.Calls()).To(Equal(rep.Admitted))
		Expect(renderer.Calls()).To(Equal(rep.Admitted))
		if len(best) > 0 {
			Expect(rep.Best).To(Equal(best[0].Lyapunov))
		} else {
			Expect(dynamo.IsNonChaotic(rep.Best)).To(BeTrue())
		}
	}

	It("runs a sequential batch", func() {
		sel, err := search.New(cfg, nil, search.WithPersister(persister), search.WithRenderer(renderer))
		Expect(err).NotTo(HaveOccurred())

		rep, err := sel.SearchBatch(context.Background(), 80)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Attempts).To(Equal(80))
		checkInvariants(sel, rep)
	})

	It("uses max_attempts for a non-positive count", func() {
		cfg.MaxAttempts = 7
		sel, err := search.New(cfg, nil)
		Expect(err).NotTo(HaveOccurred())

		rep, err := sel.SearchBatch(context.Background(), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Attempts).To(Equal(7))
	})

	It("is reproducible for a fixed seed", func() {
		run := func() []float64 {
			sel, err := search.New(smallConfig(), nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = sel.SearchBatch(context.Background(), 60)
			Expect(err).NotTo(HaveOccurred())
			return exponents(sel.Best())
		}
		Expect(run()).To(Equal(run()))
	})

	It("spreads attempts over workers without breaking the set", func() {
		var attempts atomic.Int64
		sel, err := search.New(cfg, nil,
			search.WithPersister(persister),
			search.WithRenderer(renderer),
			search.OnAttempt(func(sim.Result) { attempts.Add(1) }),
		)
		Expect(err).NotTo(HaveOccurred())

		rep, err := sel.Search(context.Background(), 150, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Attempts).To(Equal(150))
		Expect(attempts.Load()).To(Equal(int64(150)))
		checkInvariants(sel, rep)
	})

	It("stops on cancellation with a partial report", func() {
		sel, err := search.New(cfg, nil)
		Expect(err).NotTo(HaveOccurred())

		cctx, cancel := context.WithCancel(context.Background())
		cancel()

		rep, err := sel.SearchBatch(cctx, 50)
		Expect(err).To(MatchError(context.Canceled))
		Expect(rep.Attempts).To(BeZero())

		rep, err = sel.Search(cctx, 50, 4)
		Expect(err).To(MatchError(context.Canceled))
		Expect(rep.Attempts).To(BeZero())
	})
})
