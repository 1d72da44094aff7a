package analytics

import "digital-twin-engine/models"

// RollingWindow keeps the most recent readings of one twin in chronological
// order. It is not safe for concurrent use; the owning engine serializes
// access.
type RollingWindow struct {
	windowSize int
	readings   []models.Reading
	start      int
	count      int
	sum        float64
	anomalies  int
}

func NewRollingWindow(size int) *RollingWindow {
	if size < 1 {
		size = 1
	}
	return &RollingWindow{
		windowSize: size,
		readings:   make([]models.Reading, size),
	}
}

// Push appends r at the tail and evicts the oldest reading once the window
// is full.
func (rw *RollingWindow) Push(r models.Reading) {
	if rw.count < rw.windowSize {
		rw.readings[(rw.start+rw.count)%rw.windowSize] = r
		rw.count++
	} else {
		old := rw.readings[rw.start]
		rw.sum -= old.Value
		if old.IsAnomaly {
			rw.anomalies--
		}
		rw.readings[rw.start] = r
		rw.start = (rw.start + 1) % rw.windowSize
	}
	rw.sum += r.Value
	if r.IsAnomaly {
		rw.anomalies++
	}
	// Resum once per full turn of the ring so rounding error from the
	// running add/subtract cannot build up.
	if rw.count == rw.windowSize && rw.start == 0 {
		rw.sum = 0
		for _, old := range rw.readings {
			rw.sum += old.Value
		}
	}
}

func (rw *RollingWindow) Size() int { return rw.count }

func (rw *RollingWindow) Capacity() int { return rw.windowSize }

func (rw *RollingWindow) Average() float64 {
	if rw.count == 0 {
		return 0.0
	}
	return rw.sum / float64(rw.count)
}

// Values returns the recorded magnitudes, oldest first.
func (rw *RollingWindow) Values() []float64 {
	out := make([]float64, rw.count)
	for i := range out {
		out[i] = rw.at(i).Value
	}
	return out
}

// Readings returns a copy of the window, oldest first.
func (rw *RollingWindow) Readings() []models.Reading {
	out := make([]models.Reading, rw.count)
	for i := range out {
		out[i] = rw.at(i)
	}
	return out
}

func (rw *RollingWindow) Latest() (models.Reading, bool) {
	if rw.count == 0 {
		return models.Reading{}, false
	}
	return rw.at(rw.count - 1), true
}

// SMA averages the last n values. It reports false while fewer than n
// readings are held.
func (rw *RollingWindow) SMA(n int) (float64, bool) {
	if n < 1 || rw.count < n {
		return 0, false
	}
	var sum float64
	for i := rw.count - n; i < rw.count; i++ {
		sum += rw.at(i).Value
	}
	return sum / float64(n), true
}

// AnomalyCount is the number of flagged readings currently in the window.
func (rw *RollingWindow) AnomalyCount() int { return rw.anomalies }

func (rw *RollingWindow) at(i int) models.Reading {
	return rw.readings[(rw.start+i)%rw.windowSize]
}
