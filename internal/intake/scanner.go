// Package intake lists the images waiting in the holding area that are
// still eligible for labeling.
package intake

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
)

// Image is one intake directory entry eligible for labeling.
type Image struct {
	Filename  string
	Predicted bool   // a pending prediction exists for this image
	LockedBy  string // holder id of a live foreign lock, empty when claimable
}

// Scanner lists intake images, filtering out everything already labeled
// or discarded.
type Scanner struct {
	ds       datastore.Interface
	settings *conf.Settings
}

// NewScanner creates a scanner over the intake directory.
func NewScanner(settings *conf.Settings, ds datastore.Interface) *Scanner {
	return &Scanner{ds: ds, settings: settings}
}

// Scan returns the labelable images in the intake directory, sorted by
// filename. Files with an unrecognized extension, already-labeled
// originals and discarded images are skipped. Images locked by a holder
// other than holderID carry that holder's id.
func (s *Scanner) Scan(holderID string) ([]Image, error) {
	entries, err := os.ReadDir(s.settings.Intake.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("reading intake directory: %w", err)
	}

	labeled, err := s.ds.LabeledOriginalFilenames()
	if err != nil {
		return nil, err
	}
	discarded, err := s.ds.DiscardedFilenames()
	if err != nil {
		return nil, err
	}
	predicted, err := s.ds.PredictedFilenames()
	if err != nil {
		return nil, err
	}
	locked, err := s.ds.LockedFilenames(s.settings.Locks.TTL)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !s.acceptedExtension(name) {
			continue
		}
		if _, ok := labeled[name]; ok {
			continue
		}
		if _, ok := discarded[name]; ok {
			continue
		}

		image := Image{Filename: name}
		_, image.Predicted = predicted[name]
		if holder, ok := locked[name]; ok && holder != holderID {
			image.LockedBy = holder
		}
		images = append(images, image)
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Filename < images[j].Filename
	})
	return images, nil
}

func (s *Scanner) acceptedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range s.settings.Intake.Extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
