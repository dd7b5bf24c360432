package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/importer"
)

func TestWriteOutputWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timetable.csv")
	rows := []importer.AssignmentRow{{SessionID: "c1", Day: "Monday", StartPeriod: 1, EndPeriod: 1, Section: "X-A", Subject: "MA1", Faculty: "T01", Room: "Room 1", Kind: "lecture"}}

	require.NoError(t, writeOutput(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "c1,Monday,0,1,1,X-A,MA1,T01,Room 1,lecture"))
}

func TestWriteOutputReportsCreateError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "timetable.csv")

	err := writeOutput(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}

func TestFirstSeed(t *testing.T) {
	assert.Equal(t, int64(7), firstSeed(0, 7, 9))
	assert.Equal(t, int64(3), firstSeed(3, 7, 9))
	assert.Zero(t, firstSeed(0, 0))
}
