package analytics

// MinForecastSamples is the shortest window a trend is fitted on.
const MinForecastSamples = 10

// FitLine fits value = slope*index + intercept by ordinary least squares over
// indices 0..len(values)-1.
func FitLine(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// Forecast extrapolates the fitted line over the steps indices right after
// the window. It reports false when the window is too short to fit or steps
// is not positive. The projection is not bounded by any physical limit.
func Forecast(values []float64, steps int) ([]float64, bool) {
	if len(values) < MinForecastSamples || steps <= 0 {
		return nil, false
	}
	slope, intercept := FitLine(values)
	out := make([]float64, steps)
	for i := range out {
		out[i] = slope*float64(len(values)+i) + intercept
	}
	return out, true
}
