package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/uhyunpark/tickreplay/pkg/sim"
)

type NopJournal struct{}

func NewNopJournal() *NopJournal { return &NopJournal{} }

func (j *NopJournal) Append(_ string, _ sim.OwnFill) error { return nil }

// journalLine is the on-disk shape of one FileJournal entry.
type journalLine struct {
	RunID string      `json:"runId"`
	Fill  sim.OwnFill `json:"fill"`
}

// FileJournal appends one JSON object per fill to a file.
type FileJournal struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileJournal(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{f: f}, nil
}

func (j *FileJournal) Append(runID string, fill sim.OwnFill) error {
	line, err := encodeJSON(journalLine{RunID: runID, Fill: fill})
	if err != nil {
		return fmt.Errorf("failed to marshal journal line: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := fmt.Fprintln(j.f, string(line)); err != nil {
		return fmt.Errorf("failed to append journal: %w", err)
	}
	return nil
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}

var _ Journal = (*NopJournal)(nil)
var _ Journal = (*FileJournal)(nil)
