package store

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// CaseFile stores fraud cases as a JSON array snapshot addressable by id.
type CaseFile struct {
	path string
	mu   sync.Mutex
}

// DefaultCases returns the starter set a fresh install is seeded with.
func DefaultCases() []CaseRecord {
	return []CaseRecord{
		{ID: "case-1001", CustomerName: "Asha Verma", VerificationCode: "4242", Status: "pending"},
		{ID: "case-1002", CustomerName: "Rohan Mehta", VerificationCode: "7316", Status: "pending"},
		{ID: "case-1003", CustomerName: "Priya Nair", VerificationCode: "9058", Status: "pending"},
	}
}

// NewCaseFile creates a case store backed by the file at path.
func NewCaseFile(path string) (*CaseFile, error) {
	if path == "" {
		return nil, fmt.Errorf("case file path cannot be empty")
	}
	return &CaseFile{path: path}, nil
}

// Seed writes the given cases when the store is empty. Used at startup
// so a fresh install has cases to verify against.
func (c *CaseFile) Seed(cases []CaseRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := readSnapshot[CaseRecord](c.path)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	return writeSnapshot(c.path, cases)
}

// Lookup finds a case by id.
func (c *CaseFile) Lookup(id string) (CaseRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cases, err := readSnapshot[CaseRecord](c.path)
	if err != nil {
		return CaseRecord{}, false, err
	}

	for _, record := range cases {
		if record.ID == id {
			return record, true, nil
		}
	}
	return CaseRecord{}, false, nil
}

// UpdateStatus overwrites the status of the case with the given id,
// rewriting the full snapshot atomically.
func (c *CaseFile) UpdateStatus(id, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cases, err := readSnapshot[CaseRecord](c.path)
	if err != nil {
		return err
	}

	found := false
	for i := range cases {
		if cases[i].ID == id {
			cases[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("case %s not found", id)
	}

	if err := writeSnapshot(c.path, cases); err != nil {
		return err
	}

	log.Info().Str("caseId", id).Str("status", status).Msg("Case status updated")
	return nil
}
