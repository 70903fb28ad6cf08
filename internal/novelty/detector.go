// Package novelty flags prediction records whose confidence profile does
// not fit any dense group in the current batch, marking them as new-class
// candidates for review.
package novelty

import (
	"math"
	"sort"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/logging"
)

var log = logging.ForService("novelty")

// Flag is the per-record verdict. Score is 0 for records inside a dense
// cluster and grows with the distance to the nearest dense region.
type Flag struct {
	IsOutlier bool
	Score     float64
}

// Detector runs density-based clustering over a scalar feature per record.
// The feature is the minimum of the two classification confidences, so a
// record scored confidently on both axes sits near 1 and a record the
// models hesitated on drifts toward 0.
type Detector struct {
	enabled    bool
	eps        float64
	minSamples int
}

// NewDetector creates a detector from the novelty settings.
func NewDetector(settings *conf.Settings) *Detector {
	return &Detector{
		enabled:    settings.Novelty.Enabled,
		eps:        settings.Novelty.Eps,
		minSamples: settings.Novelty.MinSamples,
	}
}

// IsEnabled reports whether detection is configured on.
func (d *Detector) IsEnabled() bool { return d.enabled }

// Cleanup releases detector resources. The clustering is in-process and
// holds nothing, the method exists so the orchestrator can treat all
// collaborators uniformly.
func (d *Detector) Cleanup() error { return nil }

// Detect clusters the features and returns one flag per input, in input
// order. Fewer than two inputs or a disabled detector yields nil with no
// error.
func (d *Detector) Detect(features []float64) []Flag {
	if !d.enabled || len(features) < 2 {
		return nil
	}

	flags := make([]Flag, len(features))
	core := d.corePoints(features)

	if len(core) == 0 {
		// No dense region at all, every record is equally suspect.
		log.Debug("No dense cluster found", "batch_size", len(features))
		for i := range flags {
			flags[i] = Flag{IsOutlier: true, Score: 1.0}
		}
		return flags
	}

	// A point within eps of any core point belongs to a cluster. The rest
	// is noise, scored by its distance to the nearest core point.
	var maxDist float64
	dists := make([]float64, len(features))
	for i, f := range features {
		dist := math.Inf(1)
		for _, c := range core {
			if d := math.Abs(f - c); d < dist {
				dist = d
			}
		}
		if dist <= d.eps {
			continue
		}
		dists[i] = dist
		if dist > maxDist {
			maxDist = dist
		}
	}

	outliers := 0
	for i := range features {
		if dists[i] == 0 {
			continue
		}
		flags[i] = Flag{IsOutlier: true, Score: dists[i] / maxDist}
		outliers++
	}

	if outliers > 0 {
		log.Info("Novelty detection flagged outliers",
			"batch_size", len(features), "outliers", outliers)
	}
	return flags
}

// corePoints returns the feature values that have at least minSamples
// neighbors within eps, themselves included. Sorting makes the neighbor
// count a window scan instead of a pairwise comparison.
func (d *Detector) corePoints(features []float64) []float64 {
	sorted := append([]float64(nil), features...)
	sort.Float64s(sorted)

	var core []float64
	lo, hi := 0, 0
	for i, f := range sorted {
		for lo < len(sorted) && sorted[lo] < f-d.eps {
			lo++
		}
		if hi < i {
			hi = i
		}
		for hi+1 < len(sorted) && sorted[hi+1] <= f+d.eps {
			hi++
		}
		if hi-lo+1 >= d.minSamples {
			core = append(core, f)
		}
	}
	return core
}
