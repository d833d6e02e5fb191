// Package dispatch fans one analysis out to every provider adapter and
// merges the answers.
//
// Every adapter call runs in its own goroutine under its own deadline. The
// dispatcher waits for all of them and never short-circuits: a provider
// that fails, times out or panics contributes an error marker while the
// others still contribute their payloads.
//
// Example usage:
//
//	d := dispatch.New([]provider.Analyzer{awsA, azureA, googleA}, dispatch.DefaultConfig(), logger)
//	merged, err := d.Dispatch(ctx, provider.Sentiment, text)
//	if errors.Is(err, dispatch.ErrUnsupportedType) {
//		// reject before any vendor was called
//	}
//
// The merged result always carries exactly one entry per provider name.
package dispatch
