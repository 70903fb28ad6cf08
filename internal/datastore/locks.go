// locks.go: collaborative image lock rows.
//
// A lock is live iff now - locked_at < TTL. Expired locks are logically
// absent: every accessor deletes them before answering, so no background
// reaper is needed and a crashed client's lock is reclaimed on the next
// access after its TTL elapses.
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aerolabel/aerolabel-go/internal/errors"
)

// cleanupExpiredLocks removes locks older than the TTL within tx.
func cleanupExpiredLocks(tx *gorm.DB, ttl time.Duration) error {
	cutoff := time.Now().Add(-ttl)
	if err := tx.Where("locked_at < ?", cutoff).Delete(&ImageLock{}).Error; err != nil {
		return fmt.Errorf("cleaning up expired locks: %w", err)
	}
	return nil
}

// AcquireLock attempts to claim an image for a holder. It returns true when
// the holder ends up owning a live lock: either a fresh one, or its own
// existing lock with a refreshed timestamp (re-entrant acquire doubles as
// the heartbeat). It returns false without side effects when another holder
// owns a live lock.
//
// The whole check-then-claim runs in one transaction, and the unique index
// on filename breaks insert races: of two concurrent first-time acquirers
// exactly one create succeeds, the loser observes the duplicate key and
// reports the lock as held.
func (ds *DataStore) AcquireLock(filename, holderID string, ttl time.Duration) (bool, error) {
	if filename == "" || holderID == "" {
		return false, errors.Newf("filename and holder id must not be empty").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	acquired := false
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		if err := cleanupExpiredLocks(tx, ttl); err != nil {
			return err
		}

		var lock ImageLock
		err := tx.Where("filename = ?", filename).First(&lock).Error
		switch {
		case err == nil:
			if lock.HolderID != holderID {
				// Live lock held by someone else
				return nil
			}
			// Re-entrant acquire, refresh the timestamp
			if err := tx.Model(&lock).Update("locked_at", time.Now()).Error; err != nil {
				return fmt.Errorf("refreshing lock: %w", err)
			}
			acquired = true
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			createErr := tx.Create(&ImageLock{
				Filename: filename,
				HolderID: holderID,
				LockedAt: time.Now(),
			}).Error
			if createErr != nil {
				if errors.Is(createErr, gorm.ErrDuplicatedKey) {
					// Lost the race to a concurrent acquirer
					return nil
				}
				return fmt.Errorf("creating lock: %w", createErr)
			}
			acquired = true
			return nil
		default:
			return fmt.Errorf("looking up lock: %w", err)
		}
	})
	if err != nil {
		return false, errors.New(err).
			Component("datastore").
			Category(errors.CategoryLock).
			FileContext(filename).
			Build()
	}
	return acquired, nil
}

// ReleaseLock deletes the lock only when currently held by holderID. The
// boolean result reports whether a row was actually removed; releasing a
// lock the caller never held is a no-op, not an error.
func (ds *DataStore) ReleaseLock(filename, holderID string) (bool, error) {
	result := ds.DB.
		Where("filename = ? AND holder_id = ?", filename, holderID).
		Delete(&ImageLock{})
	if result.Error != nil {
		return false, fmt.Errorf("releasing lock for %s: %w", filename, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ReleaseAllLocks deletes every lock held by holderID and returns how many
// were removed. Used when a reviewer's session ends.
func (ds *DataStore) ReleaseAllLocks(holderID string) (int64, error) {
	result := ds.DB.Where("holder_id = ?", holderID).Delete(&ImageLock{})
	if result.Error != nil {
		return 0, fmt.Errorf("releasing locks for holder %s: %w", holderID, result.Error)
	}
	return result.RowsAffected, nil
}

// GetLockInfo returns the live lock for a filename, or nil when the image
// is unlocked. Expired locks are cleaned up as a side effect.
func (ds *DataStore) GetLockInfo(filename string, ttl time.Duration) (*ImageLock, error) {
	if err := cleanupExpiredLocks(ds.DB, ttl); err != nil {
		return nil, err
	}

	var lock ImageLock
	err := ds.DB.Where("filename = ?", filename).First(&lock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting lock info for %s: %w", filename, err)
	}
	return &lock, nil
}

// LockedFilenames returns a map of live-locked filenames to their holders.
func (ds *DataStore) LockedFilenames(ttl time.Duration) (map[string]string, error) {
	if err := cleanupExpiredLocks(ds.DB, ttl); err != nil {
		return nil, err
	}

	var locks []ImageLock
	if err := ds.DB.Find(&locks).Error; err != nil {
		return nil, fmt.Errorf("getting locked filenames: %w", err)
	}
	held := make(map[string]string, len(locks))
	for i := range locks {
		held[locks[i].Filename] = locks[i].HolderID
	}
	return held, nil
}
