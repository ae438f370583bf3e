// Package analysis estimates and summarises Lyapunov exponents.
//
//   - [Estimator]: largest exponent from a renormalised trajectory pair
//   - [Summarize]: descriptive statistics over a set of exponents
//   - [ProjectTrajectory]: 2D phase projection of a stored trajectory
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	est := analysis.NewEstimator(cfg.Lyapunov)
//	lambda := est.Estimate(reference, perturbed)
//	if !dynamo.IsNonChaotic(lambda) && lambda > 0 {
//	    // System is chaotic
//	}
package analysis
