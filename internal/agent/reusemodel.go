package agent

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"bitbucket.org/creachadair/stringset"
)

// reuseModelMagic tags the persisted reuse-model file (spec.md §6.3).
var reuseModelMagic = [4]byte{'R', 'U', 'S', 'E'}

// maxReuseModelBytes rejects implausibly large or truncated files on load
// (spec.md §6.3 "reject files above 100 MiB or empty").
const maxReuseModelBytes = 100 * 1024 * 1024

// ReuseModel is the cross-run "what activity did this action lead to"
// table: a map from an action's composite hash to an activity → visit
// count table (spec.md §3 "Reuse-model entries", §6.3).
type ReuseModel struct {
	mu      sync.Mutex
	entries map[uint64]map[string]uint32
}

// NewReuseModel returns an empty model.
func NewReuseModel() *ReuseModel {
	return &ReuseModel{entries: make(map[uint64]map[string]uint32)}
}

// Contains reports whether hash has any recorded entries.
func (m *ReuseModel) Contains(hash uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[hash]
	return ok
}

// Increment records that the action with the given composite hash was
// followed by landing on activity, inserting a fresh entry with count 1
// if this is the first observation (spec.md §4.4 "Reuse model update").
func (m *ReuseModel) Increment(hash uint64, activity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.entries[hash]
	if !ok {
		row = make(map[string]uint32)
		m.entries[hash] = row
	}
	row[activity]++
}

// PNewActivity returns the fraction of hash's recorded visit-weight whose
// activity key is absent from visited (spec.md §4.4 strategy 2: "the
// fraction of visit-weight in the reuse-model entry of a whose
// activity-key is not in graph.visited_activities").
func (m *ReuseModel) PNewActivity(hash uint64, visited stringset.Set) float64 {
	m.mu.Lock()
	row, ok := m.entries[hash]
	if !ok {
		m.mu.Unlock()
		return 0
	}
	cp := make(map[string]uint32, len(row))
	for k, v := range row {
		cp[k] = v
	}
	m.mu.Unlock()

	var total, novel uint32
	for activity, count := range cp {
		total += count
		if !visited.Contains(activity) {
			novel += count
		}
	}
	if total == 0 {
		return 0
	}
	return float64(novel) / float64(total)
}

// Stats reports the number of recorded action-hash entries and the number
// of distinct activity names appearing across all of them, for the CLI's
// "reuse-model inspect" subcommand.
func (m *ReuseModel) Stats() (entries, activities int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	for _, row := range m.entries {
		for activity := range row {
			seen[activity] = struct{}{}
		}
	}
	return len(m.entries), len(seen)
}

// Save serializes m to path atomically: write to path+".tmp", then rename
// (spec.md §4.4 "Background persistence", §6.3).
func (m *ReuseModel) Save(path string) error {
	m.mu.Lock()
	entries := make(map[uint64]map[string]uint32, len(m.entries))
	for h, row := range m.entries {
		cp := make(map[string]uint32, len(row))
		for k, v := range row {
			cp[k] = v
		}
		entries[h] = cp
	}
	m.mu.Unlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("agent: create temp reuse-model file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := writeReuseModel(w, entries); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("agent: write reuse-model: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("agent: flush reuse-model: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("agent: close reuse-model temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("agent: rename reuse-model into place: %w", err)
	}
	return nil
}

func writeReuseModel(w io.Writer, entries map[uint64]map[string]uint32) error {
	if _, err := w.Write(reuseModelMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for hash, row := range entries {
		if err := binary.Write(w, binary.LittleEndian, hash); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(row))); err != nil {
			return err
		}
		for activity, times := range row {
			if err := binary.Write(w, binary.LittleEndian, uint16(len(activity))); err != nil {
				return err
			}
			if _, err := io.WriteString(w, activity); err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, times); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadReuseModel parses a reuse-model file written by Save. An empty or
// over-sized file is rejected (spec.md §6.3); callers treat that as a
// PersistenceError and keep whatever model they already have.
func LoadReuseModel(path string) (*ReuseModel, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("agent: empty reuse-model file %s", path)
	}
	if info.Size() > maxReuseModelBytes {
		return nil, fmt.Errorf("agent: reuse-model file %s exceeds %d bytes", path, maxReuseModelBytes)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("agent: reading reuse-model magic: %w", err)
	}
	if magic != reuseModelMagic {
		return nil, fmt.Errorf("agent: bad reuse-model magic %v", magic)
	}

	var numEntries uint32
	if err := binary.Read(r, binary.LittleEndian, &numEntries); err != nil {
		return nil, err
	}

	m := NewReuseModel()
	for i := uint32(0); i < numEntries; i++ {
		var hash uint64
		if err := binary.Read(r, binary.LittleEndian, &hash); err != nil {
			return nil, err
		}
		var numTargets uint32
		if err := binary.Read(r, binary.LittleEndian, &numTargets); err != nil {
			return nil, err
		}
		row := make(map[string]uint32, numTargets)
		for j := uint32(0); j < numTargets; j++ {
			var nameLen uint16
			if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
				return nil, err
			}
			buf := make([]byte, nameLen)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			var times uint32
			if err := binary.Read(r, binary.LittleEndian, &times); err != nil {
				return nil, err
			}
			row[string(buf)] = times
		}
		m.entries[hash] = row
	}
	return m, nil
}

// gumbelPerturb applies the Gumbel-max trick used by selection strategies 2
// and 4: q -= ln(-ln(u)) for a fresh uniform sample u in (0,1]
// (spec.md §4.4).
func gumbelPerturb(q float64, u float64) float64 {
	if u <= 0 {
		u = math.SmallestNonzeroFloat64
	}
	if u > 1 {
		u = 1
	}
	return q - math.Log(-math.Log(u))
}

// ensureDir makes sure path's parent directory exists, used before the
// first Save of a fresh agent (spec.md §4.4 persistence, applied
// defensively since the configured path may point at an unwritten dir).
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
