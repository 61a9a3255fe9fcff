package compare

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"
)

// Selection is a voter's choice on a comparison panel.
type Selection string

const (
	SelectionA       Selection = "A"
	SelectionB       Selection = "B"
	SelectionSame    Selection = "Same"
	SelectionUnknown Selection = "Unknown"
)

// WinnerFor maps a selection to the logged winner column.
func WinnerFor(sel Selection, modelA, modelB string) string {
	switch sel {
	case SelectionA:
		return modelA
	case SelectionB:
		return modelB
	case SelectionSame:
		return "Draw"
	default:
		return "N/A"
	}
}

// Entry is one resolved vote.
type Entry struct {
	Timestamp       time.Time
	SourceChannelID string
	MessageID       string
	ModelA          string
	ModelB          string
	Selected        Selection
	WinnerModel     string
}

var csvHeader = []string{
	"Timestamp", "SourceChannelID", "MessageID",
	"ModelA", "ModelB", "Selected", "WinnerModel",
}

// VoteLog is an append-only CSV file, one row per resolved vote. The
// header row is written when the file is created or empty.
type VoteLog struct {
	mu   sync.Mutex
	path string
}

func NewVoteLog(path string) *VoteLog {
	return &VoteLog{path: path}
}

func (l *VoteLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening vote log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat vote log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("writing vote log header: %w", err)
		}
	}

	record := []string{
		e.Timestamp.Format(time.RFC3339),
		e.SourceChannelID,
		e.MessageID,
		e.ModelA,
		e.ModelB,
		string(e.Selected),
		e.WinnerModel,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("writing vote log entry: %w", err)
	}

	w.Flush()
	return w.Error()
}
