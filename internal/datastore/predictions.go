// predictions.go: persistence and triage queries for machine predictions.
package datastore

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aerolabel/aerolabel-go/internal/errors"
)

// triageOrder sorts the manual review queue: outlier records first by
// descending anomaly score, then the remaining records by ascending
// minimum classification confidence so the riskiest items surface first.
// The CASE expressions keep the clause portable between SQLite and MySQL.
const triageOrder = "is_outlier DESC, " +
	"CASE WHEN is_outlier THEN -outlier_score " +
	"ELSE CASE WHEN type_confidence < airline_confidence THEN type_confidence ELSE airline_confidence END " +
	"END ASC"

// autoApprovableWhere selects unprocessed, non-outlier records whose both
// classification confidences reach the auto-approval threshold.
const autoApprovableWhere = "processed = ? AND is_outlier = ? AND type_confidence >= ? AND airline_confidence >= ?"

// SavePrediction inserts a prediction record, replacing any previous
// record for the same filename. A re-run of the sweep refreshes scores
// for images that have not been reviewed yet; a processed record is
// immutable outside the commit path, so re-scoring one is a no-op.
func (ds *DataStore) SavePrediction(prediction *Prediction) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing Prediction
		err := tx.Select("processed").Where("filename = ?", prediction.Filename).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && existing.Processed {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "filename"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"type_class", "type_confidence",
				"airline_class", "airline_confidence",
				"registration", "registration_confidence", "registration_area",
				"clarity", "occlusion", "quality_confidence",
				"is_outlier", "outlier_score",
				"updated_at",
			}),
		}).Create(prediction).Error
	})
	if err != nil {
		return errors.New(fmt.Errorf("saving prediction: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			FileContext(prediction.Filename).
			Build()
	}
	return nil
}

// GetPrediction retrieves the prediction record for a source filename.
func (ds *DataStore) GetPrediction(filename string) (Prediction, error) {
	var prediction Prediction
	err := ds.DB.Where("filename = ?", filename).First(&prediction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Prediction{}, errors.Newf("no prediction for %s", filename).
				Component("datastore").
				Category(errors.CategoryNotFound).
				FileContext(filename).
				Build()
		}
		return Prediction{}, fmt.Errorf("getting prediction for %s: %w", filename, err)
	}
	return prediction, nil
}

// GetPendingPredictions returns unprocessed predictions in review priority
// order. A limit of zero or less returns the whole queue.
func (ds *DataStore) GetPendingPredictions(limit int) ([]Prediction, error) {
	var predictions []Prediction
	query := ds.DB.Where("processed = ?", false).Order(triageOrder)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("getting pending predictions: %w", err)
	}
	return predictions, nil
}

// GetAutoApprovable returns the rubber-stamp queue: unprocessed non-outlier
// records with both confidences at or above the threshold, most recent first.
func (ds *DataStore) GetAutoApprovable(threshold float64) ([]Prediction, error) {
	var predictions []Prediction
	err := ds.DB.
		Where(autoApprovableWhere, false, false, threshold, threshold).
		Order("created_at DESC").
		Find(&predictions).Error
	if err != nil {
		return nil, fmt.Errorf("getting auto-approvable predictions: %w", err)
	}
	return predictions, nil
}

// MarkPredictionProcessed flips the processed flag for a filename. The flag
// never reverts to false; re-marking an already processed record is a no-op.
func (ds *DataStore) MarkPredictionProcessed(filename string) error {
	result := ds.DB.Model(&Prediction{}).
		Where("filename = ?", filename).
		Update("processed", true)
	if result.Error != nil {
		return fmt.Errorf("marking prediction processed for %s: %w", filename, result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("no prediction for %s", filename).
			Component("datastore").
			Category(errors.CategoryNotFound).
			FileContext(filename).
			Build()
	}
	return nil
}

// PredictedFilenames returns the set of filenames that already have a
// prediction record, used by the sweep to skip already scored images.
func (ds *DataStore) PredictedFilenames() (map[string]struct{}, error) {
	var filenames []string
	if err := ds.DB.Model(&Prediction{}).Pluck("filename", &filenames).Error; err != nil {
		return nil, fmt.Errorf("getting predicted filenames: %w", err)
	}
	set := make(map[string]struct{}, len(filenames))
	for _, f := range filenames {
		set[f] = struct{}{}
	}
	return set, nil
}

// GetReviewStats computes the aggregate review queue view.
func (ds *DataStore) GetReviewStats(threshold float64) (ReviewStats, error) {
	stats := ReviewStats{StatusBreakdown: make(map[string]int64)}

	if err := ds.DB.Model(&Prediction{}).Count(&stats.Total).Error; err != nil {
		return ReviewStats{}, fmt.Errorf("counting predictions: %w", err)
	}
	if err := ds.DB.Model(&Prediction{}).
		Where("processed = ?", false).
		Count(&stats.Pending).Error; err != nil {
		return ReviewStats{}, fmt.Errorf("counting pending predictions: %w", err)
	}
	if err := ds.DB.Model(&Prediction{}).
		Where("processed = ? AND is_outlier = ?", false, true).
		Count(&stats.Outliers).Error; err != nil {
		return ReviewStats{}, fmt.Errorf("counting outlier predictions: %w", err)
	}
	if err := ds.DB.Model(&Prediction{}).
		Where(autoApprovableWhere, false, false, threshold, threshold).
		Count(&stats.AutoApprovable).Error; err != nil {
		return ReviewStats{}, fmt.Errorf("counting auto-approvable predictions: %w", err)
	}

	var rows []struct {
		ReviewStatus string
		Count        int64
	}
	err := ds.DB.Model(&Label{}).
		Select("review_status, COUNT(*) as count").
		Group("review_status").
		Scan(&rows).Error
	if err != nil {
		return ReviewStats{}, fmt.Errorf("counting labels by review status: %w", err)
	}
	for _, row := range rows {
		stats.StatusBreakdown[row.ReviewStatus] = row.Count
	}

	return stats, nil
}
