// Package health runs named readiness checks in parallel and aggregates
// their outcome.
//
// Checks share the signature func(context.Context) error, so existing
// closures plug in directly:
//
//	report := health.Run(ctx, health.Checks{
//		"redis":    store.Ping,
//		"upstream": pingUpstream,
//	}, health.WithTimeout(3*time.Second))
//
//	if report.Status == health.StatusUnhealthy {
//		// report.Checks["redis"].Error holds the failure
//	}
//
// Every check receives a context bounded by the configured timeout. A check
// that outlives the deadline is reported as [ErrCheckTimeout].
package health
