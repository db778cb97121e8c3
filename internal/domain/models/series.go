package models

// LoadSeries is a validated, ordered sequence of load readings.
// Index order is time order. Timestamps is either nil or the same length as Load.
type LoadSeries struct {
	Load       []float64
	Timestamps []string
}

// Len returns the number of readings.
func (s LoadSeries) Len() int { return len(s.Load) }

// Readings returns a copy of the readings so callers never share the backing array.
func (s LoadSeries) Readings() []float64 {
	out := make([]float64, len(s.Load))
	copy(out, s.Load)
	return out
}

// Clone returns a deep copy of the series.
func (s LoadSeries) Clone() LoadSeries {
	c := LoadSeries{Load: s.Readings()}
	if s.Timestamps != nil {
		c.Timestamps = make([]string, len(s.Timestamps))
		copy(c.Timestamps, s.Timestamps)
	}
	return c
}

// Reading is a single stored meter reading.
type Reading struct {
	MeterID   string
	Timestamp string
	LoadKW    float64
}
