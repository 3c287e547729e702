package vad

// thresholdTracker owns the raw RMS history and the live decision threshold.
// The threshold chases a smoothed, hysteresis-biased copy of recent history:
// it rises by adaptUp of the gap and falls by adaptDown of the gap per
// observation.
type thresholdTracker struct {
	history *ring[float64]
	window  int

	maxLevel  float64
	multiply  float64
	offset    float64
	adaptUp   float64
	adaptDown float64

	value float64
}

func newThresholdTracker(cfg Config) thresholdTracker {
	return thresholdTracker{
		history:   newRing[float64](cfg.HistorySize),
		window:    cfg.AvgWindow,
		maxLevel:  cfg.MaxLevel,
		multiply:  cfg.HysteresisMultiply,
		offset:    cfg.HysteresisOffset,
		adaptUp:   cfg.AdaptUpRate,
		adaptDown: cfg.AdaptDownRate,
		value:     cfg.Threshold,
	}
}

// observe appends a raw RMS reading and moves the threshold.
func (t *thresholdTracker) observe(rms float64) {
	t.history.Push(rms)
	t.update()
}

// average returns the mean of up to window most recent readings.
func (t *thresholdTracker) average() float64 {
	n := min(t.window, t.history.Len())
	if n == 0 {
		return 0
	}
	var total float64
	last := t.history.Len() - 1
	for i := range n {
		total += t.history.At(last - i)
	}
	return total / float64(n)
}

// target is the normalized, hysteresis-adjusted reference the threshold chases.
func (t *thresholdTracker) target() float64 {
	return (t.average()/t.maxLevel)*t.multiply + t.offset
}

func (t *thresholdTracker) update() {
	if t.history.Len() == 0 {
		return
	}
	target := t.target()
	switch {
	case t.value <= 0:
		// A degenerate threshold snaps straight to the target.
		t.value = target
	case target > t.value:
		t.value += (target - t.value) * t.adaptUp
	case target < t.value:
		t.value += (target - t.value) * t.adaptDown
	}
}

// reset empties the history and restores the initial threshold.
func (t *thresholdTracker) reset(initial float64) {
	t.history.Clear()
	t.value = initial
}
