package viz

import (
	"math"
	"sort"

	"github.com/san-kum/chaosfind/internal/dynamo"
)

type Vec3 struct {
	X, Y, Z float64
}

// Vec3 methods.
func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Orbit angles for attractor views, in degrees.
const (
	DefaultElevation = 30.0
	DefaultAzimuth   = 45.0
)

// Camera manages 3D projection to a 2D plane. It sits on the +Z axis at
// Position.Z and looks at the origin.
type Camera struct {
	Position   Vec3
	Near       float64
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Position: Vec3{0, 0, 50}, Near: 0.1, Zoom: 1.0}
}

// NewOrbitCamera looks at the origin from the given elevation and azimuth.
func NewOrbitCamera(elevationDeg, azimuthDeg float64) *Camera {
	c := NewCamera()
	c.Position.Z = 6
	c.RotX = elevationDeg * math.Pi / 180
	c.RotY = -azimuthDeg * math.Pi / 180
	return c
}

// RotateX and RotateY turn the camera by a further angle in radians.
func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }

// RotatePoint applies the azimuth turn, then the elevation tilt.
func (c *Camera) RotatePoint(p Vec3) Vec3 {
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// ProjectF returns view-plane coordinates with y up, plus depth. Larger
// depth is closer to the camera. ok is false behind the near plane.
func (c *Camera) ProjectF(p Vec3) (x, y, depth float64, ok bool) {
	rot := c.RotatePoint(p).Scale(c.Zoom)
	dist := c.Position.Z
	if rot.Z >= dist-c.Near {
		return 0, 0, 0, false
	}
	scale := dist / (dist - rot.Z)
	return rot.X * scale, rot.Y * scale, rot.Z, true
}

// Project converts 3D world coordinates to 2D screen coordinates.
// Returns x, y, depth, and visibility.
func (c *Camera) Project(p Vec3, sw, sh int) (int, int, float64, bool) {
	x, y, depth, ok := c.ProjectF(p)
	if !ok {
		return 0, 0, 0, false
	}
	pScale := float64(min(sw, sh)) / 5.0
	sx := int(x*pScale) + sw/2
	sy := int(-y*pScale) + sh/2
	return sx, sy, depth, sx >= 0 && sx < sw && sy >= 0 && sy < sh
}

// FitCloud maps the first three coordinates of each point into a cube of
// half-width 1 centred on the origin. Points with fewer than three
// coordinates or a non-finite value stay zero and are false in the mask.
func FitCloud(points []dynamo.State) ([]Vec3, []bool) {
	out := make([]Vec3, len(points))
	mask := make([]bool, len(points))

	lo := Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, p := range points {
		if len(p) < 3 || !finite(p[0]) || !finite(p[1]) || !finite(p[2]) {
			continue
		}
		v := Vec3{p[0], p[1], p[2]}
		out[i], mask[i] = v, true
		lo = Vec3{math.Min(lo.X, v.X), math.Min(lo.Y, v.Y), math.Min(lo.Z, v.Z)}
		hi = Vec3{math.Max(hi.X, v.X), math.Max(hi.Y, v.Y), math.Max(hi.Z, v.Z)}
	}
	if lo.X > hi.X {
		return out, mask
	}

	center := lo.Add(hi).Scale(0.5)
	half := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z)) / 2
	if half == 0 {
		half = 1
	}
	for i := range out {
		if mask[i] {
			out[i] = out[i].Sub(center).Scale(1 / half)
		}
	}
	return out, mask
}

// Projected is one point of a cloud after projection.
type Projected struct {
	X, Y, Depth float64
	Index       int
}

// ProjectCloud fits and projects points, dropping invisible ones, and
// returns them sorted far to near so later points paint over earlier ones.
func ProjectCloud(points []dynamo.State, cam *Camera) []Projected {
	cloud, mask := FitCloud(points)
	out := make([]Projected, 0, len(cloud))
	for i, v := range cloud {
		if !mask[i] {
			continue
		}
		x, y, d, ok := cam.ProjectF(v)
		if !ok {
			continue
		}
		out = append(out, Projected{X: x, Y: y, Depth: d, Index: i})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Depth < out[j].Depth })
	return out
}

// Render3D draws a point cloud to the canvas through cam.
func Render3D(c *Canvas, points []dynamo.State, cam *Camera) {
	if c == nil || cam == nil {
		return
	}
	cloud, mask := FitCloud(points)
	cw, ch := c.SubWidth(), c.SubHeight()
	for i, v := range cloud {
		if !mask[i] {
			continue
		}
		if x, y, _, ok := cam.Project(v, cw, ch); ok {
			c.Set(x, y)
		}
	}
}
