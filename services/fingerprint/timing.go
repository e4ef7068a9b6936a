package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultTimingRuns       = 5
	defaultTimingIterations = 100000
	defaultTimingBudget     = 250 * time.Millisecond
)

func collectTiming(ctx context.Context, env Environment, runs int, budget time.Duration) Result {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var samples []float64
	for i := 0; i < runs; i++ {
		if ctx.Err() != nil {
			break
		}
		d, err := env.RunTimed(ctx, defaultTimingIterations)
		if err != nil {
			if len(samples) == 0 {
				return fail(err)
			}
			break
		}
		samples = append(samples, float64(d)/float64(time.Millisecond))
	}
	if len(samples) == 0 {
		return fail(errors.New("no timing run completed within budget"))
	}

	mean, variance, min, max := summarize(samples)
	return ok(fmt.Sprintf("mean=%.3f;var=%.3f;min=%.3f;max=%.3f", mean, variance, min, max))
}

func summarize(samples []float64) (mean, variance, min, max float64) {
	min, max = samples[0], samples[0]
	for _, s := range samples {
		mean += s
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	mean /= float64(len(samples))
	for _, s := range samples {
		variance += (s - mean) * (s - mean)
	}
	variance /= float64(len(samples))
	return mean, variance, min, max
}
