// model.go this code defines the data model for the application
package datastore

import "time"

// Review status values recorded on committed labels.
const (
	ReviewPending      = "pending"
	ReviewReviewed     = "reviewed"
	ReviewApproved     = "approved"
	ReviewAutoApproved = "auto_approved"
)

// Prediction represents the machine-generated scores for one intake image.
// There is at most one pending prediction per source filename.
type Prediction struct {
	ID       uint   `gorm:"primaryKey"`
	Filename string `gorm:"uniqueIndex;not null"`

	// Classification outputs for the two independent axes
	TypeClass         string
	TypeConfidence    float64
	AirlineClass      string
	AirlineConfidence float64

	// Registration text recognition outputs
	Registration           string
	RegistrationConfidence float64
	RegistrationArea       string // normalized "cx cy w h" bounding box, empty when no text region found

	// Image quality outputs
	Clarity           float64
	Occlusion         float64
	QualityConfidence float64

	// Novelty detection outputs; OutlierScore is zero when detection was not run
	IsOutlier    bool `gorm:"index:idx_predictions_outlier"`
	OutlierScore float64

	// Processed becomes true exactly once, when a reviewer approves or
	// rejects this prediction, and never reverts to false.
	Processed bool `gorm:"index:idx_predictions_processed"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// MinConfidence returns the lower of the two classification confidences.
// Triage ordering and the novelty feature both key off this value.
func (p *Prediction) MinConfidence() float64 {
	if p.TypeConfidence < p.AirlineConfidence {
		return p.TypeConfidence
	}
	return p.AirlineConfidence
}

// Label represents one committed annotation. The unique index on
// OriginalFileName enforces that an image can be labeled at most once.
type Label struct {
	ID               uint   `gorm:"primaryKey"`
	FileName         string `gorm:"uniqueIndex;not null"` // archived name, <type>-<4 digit sequence><ext>
	OriginalFileName string `gorm:"uniqueIndex;not null"` // intake name at commit time

	TypeID      string `gorm:"index;not null"`
	TypeName    string `gorm:"not null"`
	AirlineID   string `gorm:"index;not null"`
	AirlineName string `gorm:"not null"`

	Clarity          float64
	Occlusion        float64
	Registration     string `gorm:"not null"`
	RegistrationArea string

	ReviewStatus string `gorm:"type:varchar(20);default:pending;index"` // pending, reviewed, approved or auto_approved
	AIApproved   bool

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// ImageLock represents an exclusive, time-bounded claim on an intake image.
// The unique index on Filename guarantees at most one live lock per image.
type ImageLock struct {
	ID       uint      `gorm:"primaryKey"`
	Filename string    `gorm:"uniqueIndex;not null"`
	HolderID string    `gorm:"index;not null"`
	LockedAt time.Time `gorm:"index;not null"`
}

// DiscardedImage marks an intake image as permanently excluded from future
// scans. Distinct from "labeled": a discarded image has no Label row.
type DiscardedImage struct {
	ID        uint   `gorm:"primaryKey"`
	Filename  string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// AircraftType is a reference entry for the type classification axis.
type AircraftType struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;not null"`
	Name string `gorm:"not null"`
}

// Airline is a reference entry for the airline classification axis.
type Airline struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;not null"`
	Name string `gorm:"not null"`
}

// ReviewStats is the read-only aggregate view over the review queue.
type ReviewStats struct {
	Total           int64            `json:"total"`
	Pending         int64            `json:"pending_count"`
	Outliers        int64            `json:"outlier_count"`
	AutoApprovable  int64            `json:"auto_approvable_count"`
	StatusBreakdown map[string]int64 `json:"status_breakdown"`
}

// LabelStats summarizes committed labels per classification axis value.
type LabelStats struct {
	TotalLabeled int64            `json:"total_labeled"`
	ByType       map[string]int64 `json:"by_type"`
	ByAirline    map[string]int64 `json:"by_airline"`
}
