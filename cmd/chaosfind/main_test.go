package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/chaosfind/internal/config"
	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/storage"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(os.Stderr)
	return root.ExecuteContext(context.Background())
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, execute(t, "config", "init", path))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.Error(t, execute(t, "config", "init", path), "existing file must not be overwritten")
}

func TestSearchFlagsOverrideConfig(t *testing.T) {
	cmd := newSearchCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--batches", "3", "--workers", "2", "--seed", "9", "--no-render"}))
	t.Cleanup(func() { noRender = false })

	cfg := config.Default()
	require.NoError(t, applySearchFlags(cmd, cfg))
	assert.Equal(t, 3, cfg.Batches)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, config.DefaultMaxAttempts, cfg.MaxAttempts)
	assert.False(t, cfg.Render)
}

func TestSearchFlagsAreValidated(t *testing.T) {
	cmd := newSearchCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "0"}))

	err := applySearchFlags(cmd, config.Default())
	assert.ErrorIs(t, err, dynamo.ErrInvalidConfig)
}

func TestSearchRunsAndPersists(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "chaosfind.json")
	out := filepath.Join(dir, "out")

	err := execute(t, "search",
		"--config", cfgPath,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--data", out,
		"--preset", "quick",
		"--attempts", "20",
		"--batches", "2",
		"--seed", "1",
		"--no-render",
	)
	require.NoError(t, err)

	_, err = storage.New(out).LoadSystems()
	require.NoError(t, err)
}

func TestSearchRefusesCorruptStore(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(out, storage.SystemsFile), []byte("{not json"), 0644))

	err := execute(t, "search",
		"--config", filepath.Join(dir, "chaosfind.json"),
		"--env-file", filepath.Join(dir, "missing.env"),
		"--data", out,
		"--attempts", "5",
		"--batches", "1",
	)
	assert.ErrorIs(t, err, dynamo.ErrCorruptStore)
}

func TestShowAndExport(t *testing.T) {
	dir := t.TempDir()
	st := storage.New(dir)
	c := dynamo.NewCandidate(2, 12, 3, make([]float64, config.TotalCoeffs(2)), 0.3,
		[]dynamo.State{{0, 0}, {1, 0.5}, {0.2, 1}}, time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local))
	require.NoError(t, st.SaveSystems(context.Background(), []dynamo.Candidate{c}))

	require.NoError(t, execute(t, "list", "--data", dir))
	require.NoError(t, execute(t, "show", c.ID[:6], "--data", dir))
	require.NoError(t, execute(t, "show", c.ID, "--tilt", "15", "--turn", "-30", "--data", dir))

	csvPath := filepath.Join(dir, "traj.csv")
	require.NoError(t, execute(t, "export-csv", c.ID, csvPath, "--data", dir))
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	states, err := storage.ReadCSV(f)
	require.NoError(t, err)
	assert.Equal(t, c.Trajectory(), states)

	require.NoError(t, execute(t, "render", c.Timestamp, "--data", dir))
	assert.FileExists(t, filepath.Join(dir, "attractor_"+c.Key()+".svg"))

	assert.ErrorIs(t, execute(t, "show", "nope", "--data", dir), dynamo.ErrNotFound)
}
