// Package polymap implements random quadratic polynomial vector maps.
//
// Each output coordinate of a map is
//
//	0.1*c + 0.5*sum(l_i*x_i) + 0.25*sum_{i<=j}(q_ij*x_i*x_j)
//
// so a d-dimensional map has [config.CoeffsPerDim](d) coefficients per
// coordinate. [Sampler] draws maps and seed points from an injected random
// source; [Map] iterates them and clamps the state to the density bound.
package polymap
