// Package statistics provides summary statistics over evaluation scores,
// including a bootstrap confidence interval for the mean score.
package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// ScoreBuckets counts scores by the display bands used across the UI:
// below 50, 50-69, 70-84, and 85 and up.
type ScoreBuckets struct {
	Below50    int `json:"below_50"`
	From50to69 int `json:"from_50_to_69"`
	From70to84 int `json:"from_70_to_84"`
	From85Up   int `json:"from_85_up"`
}

// Bucket assigns a single score to its band.
func (b *ScoreBuckets) Bucket(score int) {
	switch {
	case score < 50:
		b.Below50++
	case score < 70:
		b.From50to69++
	case score < 85:
		b.From70to84++
	default:
		b.From85Up++
	}
}

// ConfidenceInterval holds the result of a bootstrap confidence interval
// computation.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// BootstrapCI computes a bootstrap confidence interval over the given
// values using the percentile method. confidenceLevel should be in (0, 1),
// e.g. 0.95. With fewer than 2 data points the interval collapses to the
// mean.
func BootstrapCI(values []float64, confidenceLevel float64) ConfidenceInterval {
	return BootstrapCIWithSeed(values, confidenceLevel, -1)
}

// BootstrapCIWithSeed is like BootstrapCI but accepts a seed for
// reproducibility. A negative seed uses a non-deterministic source.
func BootstrapCIWithSeed(values []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(values)
	if n < 2 {
		m := Mean(values)
		return ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
			NumBootstraps:   0,
		}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	iters := DefaultBootstrapIterations

	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := 0; i < iters; i++ {
		for j := 0; j < n; j++ {
			sample[j] = values[rng.Intn(n)]
		}
		bootMeans[i] = Mean(sample)
	}

	sort.Float64s(bootMeans)

	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return ConfidenceInterval{
		Lower:           bootMeans[loIdx],
		Upper:           bootMeans[hiIdx],
		Mean:            Mean(values),
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation, or 0 with fewer than two
// values.
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
