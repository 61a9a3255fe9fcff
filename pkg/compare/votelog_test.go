package compare

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestVoteLogWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votes.csv")
	log := NewVoteLog(path)

	ts := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, log.Append(Entry{
		Timestamp:       ts,
		SourceChannelID: "ja-1",
		MessageID:       "m1",
		ModelA:          "model-one",
		ModelB:          "model-two",
		Selected:        SelectionA,
		WinnerModel:     "model-one",
	}))
	require.NoError(t, log.Append(Entry{
		Timestamp:       ts.Add(time.Minute),
		SourceChannelID: "ja-1",
		MessageID:       "m2",
		ModelA:          "model-two",
		ModelB:          "model-one",
		Selected:        SelectionSame,
		WinnerModel:     "Draw",
	}))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"2026-08-31T12:00:00Z", "ja-1", "m1",
		"model-one", "model-two", "A", "model-one",
	}, rows[1])
	assert.Equal(t, "Draw", rows[2][6])
}

func TestVoteLogAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votes.csv")

	log := NewVoteLog(path)
	require.NoError(t, log.Append(Entry{Timestamp: time.Now(), Selected: SelectionB, WinnerModel: "m2"}))

	// A fresh handle on the same file must not repeat the header.
	log2 := NewVoteLog(path)
	require.NoError(t, log2.Append(Entry{Timestamp: time.Now(), Selected: SelectionUnknown, WinnerModel: "N/A"}))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
}

func TestTallySummary(t *testing.T) {
	tally := NewTally()
	assert.Equal(t, "No comparison votes recorded.", tally.Summary())

	tally.Record(SelectionA, "model-one", "model-two")
	tally.Record(SelectionB, "model-one", "model-two")
	tally.Record(SelectionA, "model-two", "model-one")
	tally.Record(SelectionSame, "model-one", "model-two")
	tally.Record(SelectionUnknown, "model-one", "model-two")

	assert.Equal(t, 1, tally.Wins("model-one"))
	assert.Equal(t, 2, tally.Wins("model-two"))
	assert.Equal(t, 5, tally.Total())
	assert.Contains(t, tally.Summary(), "Comparison votes: 5")
	assert.Contains(t, tally.Summary(), "model-two: 2 wins")
	assert.Contains(t, tally.Summary(), "draws: 1, no preference: 1")
}
