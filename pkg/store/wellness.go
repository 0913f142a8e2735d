package store

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// WellnessLog stores completed check-ins as a JSON array snapshot.
type WellnessLog struct {
	path string
	mu   sync.Mutex
}

// NewWellnessLog creates a wellness log backed by the file at path.
func NewWellnessLog(path string) (*WellnessLog, error) {
	if path == "" {
		return nil, fmt.Errorf("wellness log path cannot be empty")
	}
	return &WellnessLog{path: path}, nil
}

// Append adds a check-in entry and rewrites the snapshot atomically.
func (w *WellnessLog) Append(entry WellnessEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("wellness entry id cannot be empty")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := readSnapshot[WellnessEntry](w.path)
	if err != nil {
		return err
	}

	entries = append(entries, entry)

	if err := writeSnapshot(w.path, entries); err != nil {
		return err
	}

	log.Info().Str("entryId", entry.ID).Str("date", entry.Date).Msg("Wellness entry logged")
	return nil
}

// All returns every logged entry.
func (w *WellnessLog) All() ([]WellnessEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return readSnapshot[WellnessEntry](w.path)
}
