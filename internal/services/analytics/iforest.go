package analytics

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"GridAdvisor/internal/domain/models"
	domsvc "GridAdvisor/internal/domain/service"
)

const (
	stageAnomaly = "anomaly"

	// DefaultContamination is the expected fraction of anomalous readings.
	DefaultContamination = 0.1
	// DefaultSeed makes repeated detection over the same series return the same labels.
	DefaultSeed int64 = 42

	defaultTrees      = 100
	defaultMaxSamples = 256
	eulerGamma        = 0.5772156649
)

// DetectorOption configures IsolationForest.
type DetectorOption func(*DetectorConfig)

// DetectorConfig holds detector configuration.
type DetectorConfig struct {
	Contamination float64
	Seed          int64
	Trees         int
	MaxSamples    int
}

// WithContamination sets the labelled fraction. Values outside (0, 0.5] are ignored.
func WithContamination(c float64) DetectorOption {
	return func(cfg *DetectorConfig) {
		if c > 0 && c <= 0.5 {
			cfg.Contamination = c
		}
	}
}

func WithSeed(seed int64) DetectorOption {
	return func(cfg *DetectorConfig) { cfg.Seed = seed }
}

func WithTrees(n int) DetectorOption {
	return func(cfg *DetectorConfig) {
		if n > 0 {
			cfg.Trees = n
		}
	}
}

func WithMaxSamples(n int) DetectorOption {
	return func(cfg *DetectorConfig) {
		if n > 1 {
			cfg.MaxSamples = n
		}
	}
}

// IsolationForest labels readings whose values are isolated by few random splits.
// Each call builds a fresh forest from the configured seed; nothing is kept between calls.
type IsolationForest struct {
	cfg DetectorConfig
}

func NewIsolationForest(opts ...DetectorOption) *IsolationForest {
	cfg := DetectorConfig{
		Contamination: DefaultContamination,
		Seed:          DefaultSeed,
		Trees:         defaultTrees,
		MaxSamples:    defaultMaxSamples,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &IsolationForest{cfg: cfg}
}

// Detect fits the forest on the series and labels every reading.
// The output has the same length and order as the input.
func (f *IsolationForest) Detect(ctx context.Context, series models.LoadSeries) (models.AnomalyLabels, error) {
	x := series.Readings()
	if len(x) < 2 {
		return nil, models.NewModelFitError(stageAnomaly, "needs at least 2 readings", nil)
	}

	scores, err := f.scores(ctx, x)
	if err != nil {
		return nil, err
	}

	// Higher score means more anomalous. Readings whose negated score falls strictly
	// below the contamination percentile are anomalous.
	neg := make([]float64, len(scores))
	for i, s := range scores {
		neg[i] = -s
	}
	offset := percentile(neg, 100*f.cfg.Contamination)

	labels := make(models.AnomalyLabels, len(x))
	for i, v := range neg {
		if v < offset {
			labels[i] = models.Anomalous
		} else {
			labels[i] = models.Normal
		}
	}
	return labels, nil
}

// scores returns the anomaly score 2^(-E[h(x)]/c(psi)) of every reading.
func (f *IsolationForest) scores(ctx context.Context, x []float64) ([]float64, error) {
	rng := rand.New(rand.NewSource(f.cfg.Seed))
	psi := f.cfg.MaxSamples
	if psi > len(x) {
		psi = len(x)
	}
	limit := int(math.Ceil(math.Log2(float64(psi))))

	depth := make([]float64, len(x))
	sample := make([]float64, psi)
	for t := 0; t < f.cfg.Trees; t++ {
		if err := ctx.Err(); err != nil {
			return nil, models.NewModelFitError(stageAnomaly, "fit cancelled", err)
		}
		for i, idx := range rng.Perm(len(x))[:psi] {
			sample[i] = x[idx]
		}
		root := grow(rng, append([]float64(nil), sample...), 0, limit)
		for i, v := range x {
			depth[i] += root.pathLength(v, 0)
		}
	}

	norm := averagePathLength(psi)
	out := make([]float64, len(x))
	for i := range x {
		mean := depth[i] / float64(f.cfg.Trees)
		if norm == 0 {
			out[i] = 0.5
			continue
		}
		out[i] = math.Pow(2, -mean/norm)
	}
	return out, nil
}

type itree struct {
	split       float64
	left, right *itree
	size        int
}

func grow(rng *rand.Rand, values []float64, depth, limit int) *itree {
	if len(values) <= 1 || depth >= limit {
		return &itree{size: len(values)}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return &itree{size: len(values)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &itree{
		split: split,
		left:  grow(rng, left, depth+1, limit),
		right: grow(rng, right, depth+1, limit),
	}
}

func (t *itree) pathLength(v float64, depth int) float64 {
	if t.left == nil {
		return float64(depth) + averagePathLength(t.size)
	}
	if v < t.split {
		return t.left.pathLength(v, depth+1)
	}
	return t.right.pathLength(v, depth+1)
}

// averagePathLength is the mean path length of an unsuccessful BST search over n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	rank := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return s[lo] + (s[hi]-s[lo])*frac
}

var _ domsvc.AnomalyDetector = (*IsolationForest)(nil)
