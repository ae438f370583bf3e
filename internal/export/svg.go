package export

import (
	"fmt"
	"html"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/viz"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 800

	dotRadius  = 1.2
	background = "#0a0a0a"
)

// Point is a plotted position. T in [0, 1] picks the colour.
type Point struct {
	X, Y, T float64
}

// SVGRenderer writes attractor_<key>.svg files for admitted systems. Only
// two and three dimensional systems have a layout.
type SVGRenderer struct {
	Dir           string
	Width, Height int
}

func NewSVGRenderer(dir string) *SVGRenderer {
	return &SVGRenderer{Dir: dir, Width: DefaultWidth, Height: DefaultHeight}
}

// FileName is the name Render uses for c.
func FileName(c dynamo.Candidate) string {
	return "attractor_" + c.Key() + ".svg"
}

func (r *SVGRenderer) Render(c dynamo.Candidate) error {
	_, err := r.RenderFile(c)
	return err
}

// RenderFile renders c and returns the path written.
func (r *SVGRenderer) RenderFile(c dynamo.Candidate) (string, error) {
	points, err := Layout(c)
	if err != nil {
		slog.Warn("no plot layout for system", "id", c.ID, "dimensions", c.Dimensions)
		return "", err
	}
	if len(points) == 0 {
		return "", fmt.Errorf("system %s has no plottable points", c.Key())
	}

	title := fmt.Sprintf("%dD attractor  lyapunov=%.4f  %s", c.Dimensions, c.Lyapunov, c.Timestamp)
	svg := TrajectoryToSVG(points, r.Width, r.Height, title)

	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(r.Dir, FileName(c))
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return "", err
	}
	slog.Debug("rendered system", "path", path)
	return path, nil
}

// Layout maps the trajectory of c to plot points. 2D systems are used as
// they are; 3D systems go through the default orbit camera, far points
// first. Non-finite points are skipped.
func Layout(c dynamo.Candidate) ([]Point, error) {
	traj := c.Trajectory()
	n := len(traj)
	colour := func(i int) float64 {
		if n < 2 {
			return 0
		}
		return float64(i) / float64(n-1)
	}

	switch c.Dimensions {
	case 2:
		out := make([]Point, 0, n)
		for i, p := range traj {
			if len(p) < 2 || !finite(p[0]) || !finite(p[1]) {
				continue
			}
			out = append(out, Point{X: p[0], Y: p[1], T: colour(i)})
		}
		return out, nil

	case 3:
		cam := viz.NewOrbitCamera(viz.DefaultElevation, viz.DefaultAzimuth)
		proj := viz.ProjectCloud(traj, cam)
		out := make([]Point, len(proj))
		for i, p := range proj {
			out[i] = Point{X: p.X, Y: p.Y, T: colour(p.Index)}
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %d dimensions", dynamo.ErrUnsupportedLayout, c.Dimensions)
}

// TrajectoryToSVG plots points as dots coloured along a viridis ramp, y up,
// with 10% padding around their bounds.
func TrajectoryToSVG(points []Point, width, height int, title string) string {
	if len(points) == 0 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
	if title != "" {
		fmt.Fprintf(&sb, `<text x="10" y="20" fill="#cccccc" font-family="monospace" font-size="12">%s</text>
`, html.EscapeString(title))
	}
	sb.WriteString("<g stroke=\"none\">\n")

	for _, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		fmt.Fprintf(&sb, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"%s\"/>\n", x, y, dotRadius, Viridis(p.T))
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

var viridisStops = [][3]float64{
	{68, 1, 84},
	{59, 82, 139},
	{33, 145, 140},
	{94, 201, 98},
	{253, 231, 37},
}

// Viridis maps t in [0, 1] to a hex colour. t is clamped.
func Viridis(t float64) string {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}

	pos := t * float64(len(viridisStops)-1)
	i := int(pos)
	if i >= len(viridisStops)-1 {
		c := viridisStops[len(viridisStops)-1]
		return hex(c[0], c[1], c[2])
	}

	f := pos - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]
	return hex(a[0]+(b[0]-a[0])*f, a[1]+(b[1]-a[1])*f, a[2]+(b[2]-a[2])*f)
}

func hex(r, g, b float64) string {
	return fmt.Sprintf("#%02x%02x%02x", int(math.Round(r)), int(math.Round(g)), int(math.Round(b)))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
