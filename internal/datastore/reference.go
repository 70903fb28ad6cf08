package datastore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// referenceEntry is one row of a reference data file.
type referenceEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LoadReferenceFiles seeds the aircraft type and airline reference tables
// from JSON files in dir. Missing files are skipped so a deployment can
// ship either, both or neither. Codes already present keep their stored
// name.
func LoadReferenceFiles(ds Interface, dir string) error {
	if dir == "" {
		return nil
	}

	if err := loadReferenceFile(filepath.Join(dir, "aircraft_types.json"), ds.AddAircraftType); err != nil {
		return err
	}
	return loadReferenceFile(filepath.Join(dir, "airlines.json"), ds.AddAirline)
}

func loadReferenceFile(path string, add func(code, name string) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading reference file %s: %w", path, err)
	}

	var entries []referenceEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing reference file %s: %w", path, err)
	}

	for _, entry := range entries {
		if entry.Code == "" {
			continue
		}
		if err := add(entry.Code, entry.Name); err != nil {
			return fmt.Errorf("storing reference entry %s: %w", entry.Code, err)
		}
	}
	return nil
}
