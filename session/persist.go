package session

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PersistBundle is the JSON document written per session.
type PersistBundle struct {
	SessionID  string     `json:"session_id"`
	StartedAt  time.Time  `json:"started_at"`
	ExportedAt time.Time  `json:"exported_at"`
	Snapshots  []Snapshot `json:"snapshots"`
}

// FileExporter writes session_<stamp>.json and session_<stamp>_blendshapes.csv
// under Dir. The stamp is the session start time.
type FileExporter struct {
	Dir string
	// AuxRegions become <REGION>_dist columns after the timestamp.
	AuxRegions []string
	now        func() time.Time
}

func NewFileExporter(dir string, auxRegions []string) *FileExporter {
	return &FileExporter{Dir: dir, AuxRegions: auxRegions, now: time.Now}
}

// Stamp formats t for file names, to the millisecond.
func Stamp(t time.Time) string {
	return fmt.Sprintf("%s_%03d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Millisecond))
}

func (x *FileExporter) Export(s *Session) (Paths, error) {
	if err := os.MkdirAll(x.Dir, 0o755); err != nil {
		return Paths{}, err
	}
	base := filepath.Join(x.Dir, "session_"+Stamp(s.StartedAt))
	p := Paths{JSON: base + ".json", CSV: base + "_blendshapes.csv"}

	bundle := PersistBundle{
		SessionID:  s.ID,
		StartedAt:  s.StartedAt,
		ExportedAt: x.now(),
		Snapshots:  s.Snapshots,
	}
	if err := writeJSON(p.JSON, bundle); err != nil {
		return Paths{}, err
	}
	if err := x.writeCSV(p.CSV, s.Snapshots); err != nil {
		// a session is written whole or not at all
		os.Remove(p.JSON)
		return Paths{}, err
	}
	return p, nil
}

// create refuses to overwrite an existing file.
func create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// discard closes and removes a file create made but could not finish.
func discard(f *os.File, err error) error {
	f.Close()
	os.Remove(f.Name())
	return err
}

func writeJSON(path string, v any) error {
	f, err := create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return discard(f, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// Channels is the sorted union of channel names across all snapshots.
func Channels(snaps []Snapshot) []string {
	seen := map[string]struct{}{}
	for _, s := range snaps {
		for _, items := range s.Blendshapes {
			for name := range items {
				seen[name] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Header is the CSV header for snaps: timestamp, auxiliary columns, channels.
func (x *FileExporter) Header(channels []string) []string {
	h := make([]string, 0, 1+len(x.AuxRegions)+len(channels))
	h = append(h, "timestamp")
	for _, r := range x.AuxRegions {
		h = append(h, r+"_dist")
	}
	return append(h, channels...)
}

func (x *FileExporter) writeCSV(path string, snaps []Snapshot) error {
	// the column set is fixed before the first row is written
	channels := Channels(snaps)

	f, err := create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(x.Header(channels)); err != nil {
		return discard(f, err)
	}
	for _, s := range snaps {
		flat := s.Flat()
		row := make([]string, 0, 1+len(x.AuxRegions)+len(channels))
		row = append(row, s.Timestamp.Format(time.RFC3339Nano))
		for _, r := range x.AuxRegions {
			row = append(row, formatFloat(s.CheekDistances[r]))
		}
		for _, n := range channels {
			row = append(row, formatFloat(flat[n]))
		}
		if err := w.Write(row); err != nil {
			return discard(f, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return discard(f, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// formatFloat writes the shortest exact decimal, keeping a ".0" on whole
// numbers so every score column reads as a float.
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
