// Package imagelock grants exclusive, time-bounded claims on intake images
// so that concurrent reviewers never edit the same picture.
package imagelock

import (
	"github.com/google/uuid"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/logging"
	"github.com/aerolabel/aerolabel-go/internal/observability/metrics"
)

var log = logging.ForService("imagelock")

// Manager wraps the datastore lock operations with the configured TTL.
// Expiry is lazy: every operation cleans up stale rows before acting, so
// an abandoned session's locks free themselves after one TTL.
type Manager struct {
	ds       datastore.Interface
	settings *conf.Settings
	metrics  *metrics.LockMetrics
}

// SetMetrics attaches the lock metric collectors. Safe to leave unset.
func (m *Manager) SetMetrics(lm *metrics.LockMetrics) {
	m.metrics = lm
}

// NewManager creates a lock manager over the datastore.
func NewManager(settings *conf.Settings, ds datastore.Interface) *Manager {
	return &Manager{ds: ds, settings: settings}
}

// NewHolderID mints a fresh reviewer session identifier.
func NewHolderID() string {
	return uuid.New().String()
}

// Acquire claims the image for the holder. Re-acquiring an image the holder
// already owns refreshes the claim, which doubles as the heartbeat. A false
// return with no error means another live holder has the image.
func (m *Manager) Acquire(filename, holderID string) (bool, error) {
	acquired, err := m.ds.AcquireLock(filename, holderID, m.settings.Locks.TTL)
	if err != nil {
		return false, err
	}
	if m.metrics != nil {
		outcome := "acquired"
		if !acquired {
			outcome = "contended"
		}
		m.metrics.RecordAcquire(outcome)
	}
	if !acquired {
		log.Debug("Lock contention", "filename", filename, "holder", holderID)
	}
	return acquired, nil
}

// Release drops the holder's claim on the image. Releasing an image the
// holder never owned is a no-op, not an error.
func (m *Manager) Release(filename, holderID string) (bool, error) {
	return m.ds.ReleaseLock(filename, holderID)
}

// ReleaseAll drops every claim the holder has, returning how many were
// released. Called when a reviewer session ends.
func (m *Manager) ReleaseAll(holderID string) (int64, error) {
	count, err := m.ds.ReleaseAllLocks(holderID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.Info("Session locks released", "holder", holderID, "count", count)
	}
	return count, nil
}

// Holder returns the id holding a live lock on the image, or empty when
// the image is unclaimed.
func (m *Manager) Holder(filename string) (string, error) {
	lock, err := m.ds.GetLockInfo(filename, m.settings.Locks.TTL)
	if err != nil {
		return "", err
	}
	if lock == nil {
		return "", nil
	}
	return lock.HolderID, nil
}

// Locked returns every live lock as a filename to holder map.
func (m *Manager) Locked() (map[string]string, error) {
	locked, err := m.ds.LockedFilenames(m.settings.Locks.TTL)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.SetActiveLocks(len(locked))
	}
	return locked, nil
}
