// Package viz renders attractors and search progress in the terminal.
//
//   - [Canvas]: Braille sub-pixel canvas, 2x4 dots per character cell
//   - [Camera]: fixed-orbit perspective projection for 3D point clouds
//   - [RenderCandidate]: preview of a stored system
//   - [LiveSearch]: Bubble Tea model that runs the search batch by batch
//
// # Key Bindings (live search)
//
//	Q      - Stop after the current batch
//	Ctrl+C - Cancel the running batch
//	T      - Cycle color themes
package viz
