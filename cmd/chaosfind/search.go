package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/chaosfind/internal/analysis"
	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/export"
	"github.com/san-kum/chaosfind/internal/search"
	"github.com/san-kum/chaosfind/internal/sim"
	"github.com/san-kum/chaosfind/internal/storage"
	"github.com/san-kum/chaosfind/internal/viz"
)

var (
	batches  int
	attempts int
	workers  int
	seed     int64
	noRender bool
	live     bool
)

func newSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "search for chaotic systems",
		RunE:  runSearch,
	}
	addConfigFlags(searchCmd)
	searchCmd.Flags().IntVar(&batches, "batches", 0, "number of batches (default from config)")
	searchCmd.Flags().IntVar(&attempts, "attempts", 0, "total attempts (default: max_attempts)")
	searchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "parallel workers (default from config)")
	searchCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0: time based)")
	searchCmd.Flags().BoolVar(&noRender, "no-render", false, "skip SVG rendering")
	searchCmd.Flags().BoolVar(&live, "live", false, "full screen live view")
	return searchCmd
}

// applySearchFlags lets explicitly set flags override the configuration.
func applySearchFlags(cmd *cobra.Command, cfg *config.SearchConfig) error {
	flags := cmd.Flags()
	if flags.Changed("batches") {
		cfg.Batches = batches
	}
	if flags.Changed("attempts") {
		cfg.MaxAttempts = attempts
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("data") {
		cfg.OutputPath = dataDir
	}
	if noRender {
		cfg.Render = false
	}
	return cfg.Validate()
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applySearchFlags(cmd, cfg); err != nil {
		return err
	}

	st := storage.New(cfg.OutputPath)
	if err := st.Init(); err != nil {
		return err
	}
	initial, err := st.LoadSystems()
	if err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}

	counter := new(atomic.Int64)
	opts := []search.Option{
		search.WithPersister(st),
		search.OnAttempt(func(sim.Result) { counter.Add(1) }),
	}
	if cfg.Render {
		opts = append(opts, search.WithRenderer(export.NewSVGRenderer(cfg.OutputPath)))
	}
	if !live {
		opts = append(opts, search.OnAdmit(printAdmission))
	}

	sel, err := search.New(cfg, initial, opts...)
	if err != nil {
		return err
	}

	perBatch := max(1, cfg.MaxAttempts/cfg.Batches)
	slog.Info("starting search",
		"dimensions", cfg.Dimensions, "batches", cfg.Batches, "per_batch", perBatch,
		"workers", cfg.Workers, "stored", sel.Len(), "output", cfg.OutputPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	var total search.Report
	if live {
		m := viz.NewLiveSearch(ctx, sel, viz.LiveConfig{
			Batches:  cfg.Batches,
			PerBatch: perBatch,
			Workers:  cfg.Workers,
			Attempts: counter,
		})
		m, err = viz.RunLive(m)
		total = m.Totals()
		if err != nil {
			return err
		}
	} else {
		total, err = runBatches(ctx, sel, cfg.Batches, perBatch, cfg.Workers)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			fmt.Println(viz.StatusStopping.Render("interrupted"))
		}
	}

	printSummary(sel.Best(), total, time.Since(start))
	return nil
}

func runBatches(ctx context.Context, sel *search.Selector, batches, perBatch, workers int) (search.Report, error) {
	total := search.Report{Best: dynamo.NonChaotic}
	for b := 0; b < batches; b++ {
		rep, err := sel.Search(ctx, perBatch, workers)
		total.Attempts += rep.Attempts
		total.Completed += rep.Completed
		total.Diverged += rep.Diverged
		total.Collapsed += rep.Collapsed
		total.Chaotic += rep.Chaotic
		total.Admitted += rep.Admitted
		total.HookErrors += rep.HookErrors
		total.Best = rep.Best
		if err != nil {
			return total, err
		}

		best := "-"
		if !dynamo.IsNonChaotic(rep.Best) {
			best = fmt.Sprintf("%.6f", rep.Best)
		}
		fmt.Printf("%s batch %d/%d  chaotic %d  admitted %d  best %s\n",
			viz.Subtle.Render("▸"), b+1, batches, rep.Chaotic, rep.Admitted, viz.MetricValue.Render(best))
	}
	return total, nil
}

func printAdmission(c dynamo.Candidate, set []dynamo.Candidate) {
	fmt.Printf("\n%s %s  lyapunov %s\n",
		viz.StatusRunning.Render("new system"),
		viz.Subtle.Render(c.Key()),
		viz.MetricValue.Render(fmt.Sprintf("%.6f", c.Lyapunov)))
	fmt.Println(viz.BestTable(set, 0))
}

func printSummary(best []dynamo.Candidate, total search.Report, elapsed time.Duration) {
	fmt.Println()
	fmt.Println(viz.HeaderStyle.Render("search finished"))
	row := func(label string, v any) {
		fmt.Println(viz.MetricLabel.Render(label) + viz.MetricValue.Render(fmt.Sprint(v)))
	}
	row("Elapsed", elapsed.Round(time.Millisecond))
	row("Attempts", total.Attempts)
	row("Completed", total.Completed)
	row("Diverged", total.Diverged)
	row("Collapsed", total.Collapsed)
	row("Chaotic", total.Chaotic)
	row("Admitted", total.Admitted)
	if total.HookErrors > 0 {
		fmt.Println(viz.MetricLabel.Render("Hook errors") + viz.ErrorText.Render(fmt.Sprint(total.HookErrors)))
	}

	if len(best) == 0 {
		fmt.Println(viz.Subtle.Render("no chaotic systems stored"))
		return
	}
	printExponentSummary(analysis.Summarize(analysis.Exponents(best)))
	fmt.Println(viz.BestTable(best, 0))
}

func printExponentSummary(s analysis.Summary) {
	fmt.Printf("%s n=%d  mean %.4f  median %.4f  sd %.4f  range [%.4f, %.4f]\n",
		viz.Title.Render("lyapunov"), s.Count, s.Mean, s.Median, s.StdDev, s.Min, s.Max)
}
