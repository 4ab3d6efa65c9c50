package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ddebug/internal/diag"
	"ddebug/internal/observ"
	"ddebug/internal/reduce"
)

// schemaVersion is bumped whenever Report changes incompatibly.
const schemaVersion uint16 = 1

// Report is the persisted session record written by --report.
type Report struct {
	Schema    uint16    `json:"schema" msgpack:"schema"`
	Session   string    `json:"session" msgpack:"session"`
	Tool      string    `json:"tool" msgpack:"tool"`
	Target    string    `json:"target" msgpack:"target"`
	Signature string    `json:"signature" msgpack:"signature"`
	Command   []string  `json:"command" msgpack:"command"`
	Finished  time.Time `json:"finished" msgpack:"finished"`

	StopReason string         `json:"stop_reason" msgpack:"stop_reason"`
	Partial    bool           `json:"partial" msgpack:"partial"`
	Minimal    bool           `json:"minimal" msgpack:"minimal"`
	Passes     int            `json:"passes" msgpack:"passes"`
	Decisions  int            `json:"decisions" msgpack:"decisions"`
	Verdicts   map[string]int `json:"verdicts" msgpack:"verdicts"`
	CacheHits  uint64         `json:"cache_hits" msgpack:"cache_hits"`
	Builds     uint64         `json:"builds" msgpack:"builds"`
	Removed    []uint32       `json:"removed" msgpack:"removed"`
	Removable  int            `json:"removable" msgpack:"removable"`

	OriginalBytes int `json:"original_bytes" msgpack:"original_bytes"`
	FinalBytes    int `json:"final_bytes" msgpack:"final_bytes"`
	OriginalLines int `json:"original_lines" msgpack:"original_lines"`
	FinalLines    int `json:"final_lines" msgpack:"final_lines"`

	Retained []RetainedEntry `json:"retained,omitempty" msgpack:"retained,omitempty"`
	Timings  *observ.Report  `json:"timings,omitempty" msgpack:"timings,omitempty"`
	Text     string          `json:"text" msgpack:"text"`
}

type RetainedEntry struct {
	Label string   `json:"label" msgpack:"label"`
	Users []string `json:"users" msgpack:"users"`
}

// Meta carries the parts of a Report that the Result does not know.
type Meta struct {
	Tool      string
	Target    string
	Signature diag.Signature
	Command   []string
	Timer     *observ.Timer
}

// New assembles a Report from a session result.
func New(res *reduce.Result, meta Meta) *Report {
	rep := &Report{
		Schema:        schemaVersion,
		Session:       res.SessionID,
		Tool:          meta.Tool,
		Target:        meta.Target,
		Signature:     meta.Signature.String(),
		Command:       meta.Command,
		Finished:      time.Now().UTC(),
		StopReason:    res.StopReason.String(),
		Partial:       res.Partial,
		Minimal:       res.Minimal,
		Passes:        res.Passes,
		Decisions:     res.Trials,
		Verdicts:      make(map[string]int, len(res.Verdicts)),
		CacheHits:     res.Cache.Hits,
		Builds:        res.Cache.Invocations + 1,
		Removable:     res.Removable,
		OriginalBytes: res.OriginalBytes,
		FinalBytes:    res.FinalBytes,
		OriginalLines: res.OriginalLines,
		FinalLines:    res.FinalLines,
		Text:          res.Text,
	}
	for v, n := range res.Verdicts {
		rep.Verdicts[v.String()] = n
	}
	rep.Removed = make([]uint32, len(res.Removed))
	for i, id := range res.Removed {
		rep.Removed[i] = uint32(id)
	}
	for _, r := range res.Retained {
		rep.Retained = append(rep.Retained, RetainedEntry{Label: r.Label, Users: r.Users})
	}
	if meta.Timer != nil {
		tr := meta.Timer.Report()
		rep.Timings = &tr
	}
	return rep
}

// Write stores rep at path: JSON when path ends in ".json", msgpack
// otherwise.
func Write(path string, rep *Report) error {
	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(rep, "", "  ")
		data = append(data, '\n')
	} else {
		data, err = msgpack.Marshal(rep)
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return WriteFileAtomic(path, data, 0o644)
}

// Read loads a report written by Write.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rep := new(Report)
	if isJSON(path) {
		err = json.Unmarshal(data, rep)
	} else {
		err = msgpack.Unmarshal(data, rep)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: decode report: %w", path, err)
	}
	if rep.Schema != schemaVersion {
		return nil, fmt.Errorf("%s: report schema %d, want %d", path, rep.Schema, schemaVersion)
	}
	return rep, nil
}

// WriteFileAtomic replaces path through a temp file in the same directory,
// so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, ".ddebug-tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmp)
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
