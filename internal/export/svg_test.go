package export

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

func newGolden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestTrajectoryToSVGGolden(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0, T: 0},
		{X: 1, Y: 1, T: 0.5},
		{X: 2, Y: 0, T: 1},
	}

	svg := TrajectoryToSVG(points, 120, 120, "points & dots")
	newGolden(t).Assert(t, "scatter", []byte(svg))
}

func TestTrajectoryToSVGEmpty(t *testing.T) {
	if got := TrajectoryToSVG(nil, 10, 10, "x"); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestTrajectoryToSVGSinglePoint(t *testing.T) {
	svg := TrajectoryToSVG([]Point{{X: 3, Y: 3}}, 100, 100, "")
	if !strings.Contains(svg, `cx="50.00" cy="50.00"`) {
		t.Errorf("single point should be centred:\n%s", svg)
	}
	if strings.Contains(svg, "<text") {
		t.Error("empty title should be omitted")
	}
}

func TestViridis(t *testing.T) {
	cases := map[float64]string{
		-1:   "#440154",
		0:    "#440154",
		0.25: "#3b528b",
		0.5:  "#21918c",
		1:    "#fde725",
		2:    "#fde725",
	}
	for in, want := range cases {
		if got := Viridis(in); got != want {
			t.Errorf("Viridis(%v) = %s, want %s", in, got, want)
		}
	}
	if got := Viridis(math.NaN()); got != "#440154" {
		t.Errorf("Viridis(NaN) = %s", got)
	}
}

func candidate(dims int, points []dynamo.State) dynamo.Candidate {
	c := dynamo.NewCandidate(dims, 12, len(points), []float64{1}, 0.42, points, time.Date(2024, 3, 9, 14, 30, 5, 0, time.Local))
	c.ID = "0123abcd-0000-0000-0000-000000000000"
	return c
}

func TestRender2D(t *testing.T) {
	dir := t.TempDir()
	r := NewSVGRenderer(dir)
	c := candidate(2, []dynamo.State{{0, 0}, {1, 1}, {math.NaN(), 1}, {2, 0}})

	path, err := r.RenderFile(c)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "attractor_20240309_143005_0123abcd.svg" {
		t.Errorf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	svg := string(data)
	if n := strings.Count(svg, "<circle"); n != 3 {
		t.Errorf("expected 3 dots, got %d", n)
	}
	if !strings.Contains(svg, "2D attractor  lyapunov=0.4200  20240309_143005") {
		t.Error("missing title")
	}
}

func TestRender3DDepthSorted(t *testing.T) {
	dir := t.TempDir()
	points := make([]dynamo.State, 40)
	for i := range points {
		f := float64(i)
		points[i] = dynamo.State{math.Sin(f), math.Cos(f), f / 40}
	}
	c := candidate(3, points)

	layout, err := Layout(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(layout) != len(points) {
		t.Fatalf("expected %d points, got %d", len(points), len(layout))
	}

	if err := NewSVGRenderer(dir).Render(c); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName(c))); err != nil {
		t.Errorf("expected rendered file: %v", err)
	}
}

func TestRenderUnsupportedDimensions(t *testing.T) {
	dir := t.TempDir()
	for _, dims := range []int{1, 4} {
		p := make(dynamo.State, dims)
		c := candidate(dims, []dynamo.State{p, p})

		err := NewSVGRenderer(dir).Render(c)
		if !errors.Is(err, dynamo.ErrUnsupportedLayout) {
			t.Errorf("%dD: expected ErrUnsupportedLayout, got %v", dims, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("unsupported layouts must not write files, found %d", len(entries))
	}
}

func TestRenderNoPoints(t *testing.T) {
	if err := NewSVGRenderer(t.TempDir()).Render(candidate(2, nil)); err == nil {
		t.Error("expected an error for an empty trajectory")
	}
}
