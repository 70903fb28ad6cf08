// labels.go: committed label records, sequence allocation and reference tables.
package datastore

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/aerolabel/aerolabel-go/internal/errors"
)

// InsertLabel inserts a new label row. A duplicate original filename or
// archived filename surfaces as a conflict error so callers can distinguish
// "already labeled" from storage failures.
func (ds *DataStore) InsertLabel(label *Label) error {
	if err := ds.DB.Create(label).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.Newf("label already exists for %s", label.OriginalFileName).
				Component("datastore").
				Category(errors.CategoryConflict).
				FileContext(label.OriginalFileName).
				Build()
		}
		return errors.New(fmt.Errorf("inserting label: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			FileContext(label.OriginalFileName).
			Build()
	}
	return nil
}

// UpdateLabelReview sets the review status and AI approval flag on a label.
func (ds *DataStore) UpdateLabelReview(labelID uint, reviewStatus string, aiApproved bool) error {
	result := ds.DB.Model(&Label{}).
		Where("id = ?", labelID).
		Updates(map[string]any{
			"review_status": reviewStatus,
			"ai_approved":   aiApproved,
		})
	if result.Error != nil {
		return fmt.Errorf("updating label review fields: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.Newf("no label with id %d", labelID).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Build()
	}
	return nil
}

// GetLabels returns a page of committed labels, most recent first, plus the
// total label count.
func (ds *DataStore) GetLabels(limit, offset int) ([]Label, int64, error) {
	var total int64
	if err := ds.DB.Model(&Label{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting labels: %w", err)
	}

	var labels []Label
	query := ds.DB.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&labels).Error; err != nil {
		return nil, 0, fmt.Errorf("getting labels: %w", err)
	}
	return labels, total, nil
}

// NextSequence returns the next archive sequence number for a type label.
// The sequence is parsed numerically from every archived name of the type:
// lexical ordering would misplace a five digit sequence below the zero
// padded four digit ones once a series passes 9999.
func (ds *DataStore) NextSequence(typeID string) (int, error) {
	var fileNames []string
	err := ds.DB.Model(&Label{}).
		Where("type_id = ?", typeID).
		Pluck("file_name", &fileNames).Error
	if err != nil {
		return 0, fmt.Errorf("getting last sequence for %s: %w", typeID, err)
	}

	highest := 0
	for _, fileName := range fileNames {
		// Unparseable legacy names do not advance the series
		if seq, ok := parseSequence(fileName); ok && seq > highest {
			highest = seq
		}
	}
	return highest + 1, nil
}

// parseSequence extracts the numeric sequence from an archived filename of
// the form <label>-<sequence><ext>.
func parseSequence(fileName string) (int, bool) {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	idx := strings.LastIndex(name, "-")
	if idx < 0 || idx == len(name)-1 {
		return 0, false
	}
	seq, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0, false
	}
	return seq, true
}

// HasLabelForSource reports whether a label already exists for an intake
// filename.
func (ds *DataStore) HasLabelForSource(filename string) (bool, error) {
	var count int64
	err := ds.DB.Model(&Label{}).
		Where("original_file_name = ?", filename).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking label for %s: %w", filename, err)
	}
	return count > 0, nil
}

// LabeledOriginalFilenames returns the set of intake filenames that already
// have a committed label.
func (ds *DataStore) LabeledOriginalFilenames() (map[string]struct{}, error) {
	var filenames []string
	if err := ds.DB.Model(&Label{}).Pluck("original_file_name", &filenames).Error; err != nil {
		return nil, fmt.Errorf("getting labeled filenames: %w", err)
	}
	set := make(map[string]struct{}, len(filenames))
	for _, f := range filenames {
		set[f] = struct{}{}
	}
	return set, nil
}

// GetLabelStats summarizes committed labels per type and airline.
func (ds *DataStore) GetLabelStats() (LabelStats, error) {
	stats := LabelStats{
		ByType:    make(map[string]int64),
		ByAirline: make(map[string]int64),
	}

	if err := ds.DB.Model(&Label{}).Count(&stats.TotalLabeled).Error; err != nil {
		return LabelStats{}, fmt.Errorf("counting labels: %w", err)
	}

	var rows []struct {
		AxisValue string
		Count     int64
	}
	err := ds.DB.Model(&Label{}).
		Select("type_id as axis_value, COUNT(*) as count").
		Group("type_id").
		Scan(&rows).Error
	if err != nil {
		return LabelStats{}, fmt.Errorf("counting labels by type: %w", err)
	}
	for _, row := range rows {
		stats.ByType[row.AxisValue] = row.Count
	}

	rows = nil
	err = ds.DB.Model(&Label{}).
		Select("airline_id as axis_value, COUNT(*) as count").
		Group("airline_id").
		Scan(&rows).Error
	if err != nil {
		return LabelStats{}, fmt.Errorf("counting labels by airline: %w", err)
	}
	for _, row := range rows {
		stats.ByAirline[row.AxisValue] = row.Count
	}

	return stats, nil
}

// DiscardImage marks an intake image as a reject, excluded from future
// scans. Idempotent: discarding twice is not an error.
func (ds *DataStore) DiscardImage(filename string) error {
	err := ds.DB.Create(&DiscardedImage{Filename: filename}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("discarding image %s: %w", filename, err)
	}
	return nil
}

// DiscardedFilenames returns the set of discarded intake filenames.
func (ds *DataStore) DiscardedFilenames() (map[string]struct{}, error) {
	var filenames []string
	if err := ds.DB.Model(&DiscardedImage{}).Pluck("filename", &filenames).Error; err != nil {
		return nil, fmt.Errorf("getting discarded filenames: %w", err)
	}
	set := make(map[string]struct{}, len(filenames))
	for _, f := range filenames {
		set[f] = struct{}{}
	}
	return set, nil
}

// GetAircraftTypes returns all aircraft type reference entries ordered by code.
func (ds *DataStore) GetAircraftTypes() ([]AircraftType, error) {
	var types []AircraftType
	if err := ds.DB.Order("code").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("getting aircraft types: %w", err)
	}
	return types, nil
}

// AddAircraftType adds an aircraft type reference entry. Existing codes are
// left untouched.
func (ds *DataStore) AddAircraftType(code, name string) error {
	err := ds.DB.Create(&AircraftType{Code: code, Name: name}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("adding aircraft type %s: %w", code, err)
	}
	return nil
}

// GetAirlines returns all airline reference entries ordered by code.
func (ds *DataStore) GetAirlines() ([]Airline, error) {
	var airlines []Airline
	if err := ds.DB.Order("code").Find(&airlines).Error; err != nil {
		return nil, fmt.Errorf("getting airlines: %w", err)
	}
	return airlines, nil
}

// AddAirline adds an airline reference entry. Existing codes are left
// untouched.
func (ds *DataStore) AddAirline(code, name string) error {
	err := ds.DB.Create(&Airline{Code: code, Name: name}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("adding airline %s: %w", code, err)
	}
	return nil
}
