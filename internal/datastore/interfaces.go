// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/aerolabel/aerolabel-go/internal/conf"
)

// Interface abstracts the underlying database implementation and defines the
// operations the review pipeline needs from the durable store.
type Interface interface {
	Open() error
	Close() error

	// Prediction records
	SavePrediction(prediction *Prediction) error
	GetPrediction(filename string) (Prediction, error)
	GetPendingPredictions(limit int) ([]Prediction, error)
	GetAutoApprovable(threshold float64) ([]Prediction, error)
	MarkPredictionProcessed(filename string) error
	PredictedFilenames() (map[string]struct{}, error)
	GetReviewStats(threshold float64) (ReviewStats, error)

	// Labels
	InsertLabel(label *Label) error
	UpdateLabelReview(labelID uint, reviewStatus string, aiApproved bool) error
	GetLabels(limit, offset int) ([]Label, int64, error)
	NextSequence(typeID string) (int, error)
	HasLabelForSource(filename string) (bool, error)
	LabeledOriginalFilenames() (map[string]struct{}, error)
	GetLabelStats() (LabelStats, error)

	// Discarded intake images
	DiscardImage(filename string) error
	DiscardedFilenames() (map[string]struct{}, error)

	// Reference tables for the two classification axes
	GetAircraftTypes() ([]AircraftType, error)
	AddAircraftType(code, name string) error
	GetAirlines() ([]Airline, error)
	AddAirline(code, name string) error

	// Collaborative image locks
	AcquireLock(filename, holderID string, ttl time.Duration) (bool, error)
	ReleaseLock(filename, holderID string) (bool, error)
	ReleaseAllLocks(holderID string) (int64, error)
	GetLockInfo(filename string, ttl time.Duration) (*ImageLock, error)
	LockedFilenames(ttl time.Duration) (map[string]string, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}
