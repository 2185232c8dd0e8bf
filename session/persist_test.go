package session

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/facecap/face"
)

func snapWith(sec int, scores map[string]map[string]float64) Snapshot {
	return Snapshot{
		Timestamp:       time.Date(2026, 1, 2, 3, 4, sec, 0, time.UTC),
		CheekDistances:  map[string]float64{"LEFT_CHEEK": 0.1, "RIGHT_CHEEK": 0.2},
		Blendshapes:     scores,
		LandmarkRegions: map[string][]face.Point{"NOSE": {{X: 0.5, Y: 0.5}}},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportLateChannelGetsColumn(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings") // created on demand
	x := NewFileExporter(dir, []string{"LEFT_CHEEK", "RIGHT_CHEEK"})

	base := map[string]map[string]float64{"MOUTH": {"jawOpen": 0.3}}
	s := &Session{
		ID:        "s1",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC),
		Snapshots: []Snapshot{
			snapWith(1, base),
			snapWith(2, base),
			snapWith(3, map[string]map[string]float64{"MOUTH": {"jawOpen": 0.4}, "OTHER": {"X": 0.9}}),
			snapWith(4, base),
			snapWith(5, base),
		},
	}

	p, err := x.Export(s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "session_20260102_030405_678.json"), p.JSON)
	assert.Equal(t, filepath.Join(dir, "session_20260102_030405_678_blendshapes.csv"), p.CSV)

	rows := readCSV(t, p.CSV)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"timestamp", "LEFT_CHEEK_dist", "RIGHT_CHEEK_dist", "X", "jawOpen"}, rows[0])
	for i, row := range rows[1:] {
		require.Len(t, row, 5)
		assert.Equal(t, "0.1", row[1])
		assert.Equal(t, "0.2", row[2])
		if i == 2 {
			assert.Equal(t, "0.9", row[3])
			assert.Equal(t, "0.4", row[4])
			continue
		}
		assert.Equal(t, "0.0", row[3], "row %d reports 0.0 for the late channel", i+1)
		assert.Equal(t, "0.3", row[4])
	}
	assert.Equal(t, "2026-01-02T03:04:01Z", rows[1][0])
}

func TestExportJSONKeepsGrouping(t *testing.T) {
	x := NewFileExporter(t.TempDir(), nil)
	x.now = func() time.Time { return time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC) }
	s := &Session{
		ID:        "abc",
		StartedAt: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC),
		Snapshots: []Snapshot{snapWith(1, map[string]map[string]float64{"EYE": {"eyeBlinkLeft": 0.7}})},
	}
	p, err := x.Export(s)
	require.NoError(t, err)

	raw, err := os.ReadFile(p.JSON)
	require.NoError(t, err)
	var got PersistBundle
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "abc", got.SessionID)
	assert.True(t, got.ExportedAt.Equal(x.now()))
	require.Len(t, got.Snapshots, 1)
	assert.Equal(t, 0.7, got.Snapshots[0].Blendshapes["EYE"]["eyeBlinkLeft"])
	assert.Equal(t, 0.5, got.Snapshots[0].LandmarkRegions["NOSE"][0].X)

	rows := readCSV(t, p.CSV)
	assert.Equal(t, []string{"timestamp", "eyeBlinkLeft"}, rows[0])
}

func TestExportNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	x := NewFileExporter(dir, nil)
	s := &Session{ID: "a", StartedAt: time.Now(), Snapshots: []Snapshot{snapWith(1, nil)}}

	_, err := x.Export(s)
	require.NoError(t, err)
	_, err = x.Export(s)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestExportUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	x := NewFileExporter(filepath.Join(file, "sub"), nil)
	_, err := x.Export(&Session{StartedAt: time.Now(), Snapshots: []Snapshot{snapWith(1, nil)}})
	require.Error(t, err)
}

func TestChannelsUnionSorted(t *testing.T) {
	got := Channels([]Snapshot{
		{Blendshapes: map[string]map[string]float64{"B": {"zeta": 1}, "A": {"alpha": 1}}},
		{Blendshapes: map[string]map[string]float64{"A": {"alpha": 1, "mid": 0}}},
	})
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, got)
}

func TestFormatFloatKeepsDecimalPoint(t *testing.T) {
	cases := map[float64]string{
		0:      "0.0",
		1:      "1.0",
		0.5:    "0.5",
		0.1726: "0.1726",
		-2:     "-2.0",
	}
	for in, want := range cases {
		assert.Equal(t, want, formatFloat(in), "in=%v", in)
	}
}
