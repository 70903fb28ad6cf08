// Package review orders pending predictions for human attention and turns
// approved predictions into permanent labels.
package review

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/logging"
)

var log = logging.ForService("review")

const (
	reviewStatsCacheKey = "review-stats"
	labelStatsCacheKey  = "label-stats"
)

// Triage exposes the prioritized review queue and its aggregate views.
// Stats are cached briefly so dashboard polling does not hammer the store.
type Triage struct {
	ds         datastore.Interface
	threshold  float64
	statsCache *cache.Cache
}

// NewTriage creates a triage view over the datastore.
func NewTriage(settings *conf.Settings, ds datastore.Interface) *Triage {
	return &Triage{
		ds:         ds,
		threshold:  settings.Thresholds.AutoApprove,
		statsCache: cache.New(30*time.Second, 5*time.Minute),
	}
}

// Pending returns unprocessed predictions in review priority order:
// outliers first by descending outlier score, then the rest by ascending
// minimum classification confidence. A limit of zero or less returns all.
func (t *Triage) Pending(limit int) ([]datastore.Prediction, error) {
	return t.ds.GetPendingPredictions(limit)
}

// AutoApprovable returns the rubber-stamp queue: unprocessed, non-outlier
// predictions where both classification confidences meet the threshold,
// most recent first.
func (t *Triage) AutoApprovable() ([]datastore.Prediction, error) {
	return t.ds.GetAutoApprovable(t.threshold)
}

// Stats returns the aggregate review queue view, cached for a short window.
func (t *Triage) Stats() (datastore.ReviewStats, error) {
	if cached, found := t.statsCache.Get(reviewStatsCacheKey); found {
		return cached.(datastore.ReviewStats), nil
	}
	stats, err := t.ds.GetReviewStats(t.threshold)
	if err != nil {
		return datastore.ReviewStats{}, fmt.Errorf("getting review stats: %w", err)
	}
	t.statsCache.SetDefault(reviewStatsCacheKey, stats)
	return stats, nil
}

// LabelStats returns per-type and per-airline label totals, cached for a
// short window.
func (t *Triage) LabelStats() (datastore.LabelStats, error) {
	if cached, found := t.statsCache.Get(labelStatsCacheKey); found {
		return cached.(datastore.LabelStats), nil
	}
	stats, err := t.ds.GetLabelStats()
	if err != nil {
		return datastore.LabelStats{}, fmt.Errorf("getting label stats: %w", err)
	}
	t.statsCache.SetDefault(labelStatsCacheKey, stats)
	return stats, nil
}

// InvalidateStats drops the cached aggregates. Commit calls this so the
// next stats read reflects the new label immediately.
func (t *Triage) InvalidateStats() {
	t.statsCache.Delete(reviewStatsCacheKey)
	t.statsCache.Delete(labelStatsCacheKey)
}
