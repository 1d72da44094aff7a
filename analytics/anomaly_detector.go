package analytics

import (
	"math"
	"sort"
)

const (
	DefaultMinSamples    = 20
	DefaultContamination = 0.1
)

// AnomalyDetector labels a new value against a boundary refit on the whole
// current window every call. Each training value is scored by its absolute
// standard score; the boundary is the (1-contamination) quantile of those
// scores, so roughly a contamination share of an ordinary window sits above it.
//
// Refitting costs O(K log K) per call for a window of K values. That is the
// scaling limit of the classifier: it is fine for windows of a few hundred
// readings and nothing larger.
type AnomalyDetector struct {
	minSamples    int
	contamination float64
}

func NewAnomalyDetector(minSamples int, contamination float64) *AnomalyDetector {
	if minSamples < 1 {
		minSamples = DefaultMinSamples
	}
	if contamination <= 0 || contamination >= 0.5 {
		contamination = DefaultContamination
	}
	return &AnomalyDetector{
		minSamples:    minSamples,
		contamination: contamination,
	}
}

// Classify reports whether value is an outlier relative to window, along with
// its standard score. Windows of minSamples values or fewer are never judged:
// the value is reported as normal.
func (ad *AnomalyDetector) Classify(value float64, window []float64) (bool, float64) {
	if len(window) <= ad.minSamples {
		return false, 0.0
	}

	mean, stdDev := meanStdDev(window)
	if stdDev == 0 {
		if value == mean {
			return false, 0.0
		}
		return true, math.Inf(1)
	}

	threshold := ad.boundary(window, mean, stdDev)
	zScore := math.Abs(value-mean) / stdDev

	return zScore > threshold, zScore
}

// boundary fits the decision threshold on the training window.
func (ad *AnomalyDetector) boundary(window []float64, mean, stdDev float64) float64 {
	scores := make([]float64, len(window))
	for i, v := range window {
		scores[i] = math.Abs(v-mean) / stdDev
	}
	sort.Float64s(scores)

	idx := int(math.Ceil((1-ad.contamination)*float64(len(scores)))) - 1
	if idx < 0 {
		idx = 0
	}
	return scores[idx]
}

func meanStdDev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
