package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"stonedelve.sim/internal/sim/grid"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 captures everything needed to resume a world deterministically,
// including in-flight path intents. Derived state is deliberately absent: the
// path cache, mood and the occupancy layer are rebuilt or recomputed after
// restore.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed     int64 `json:"seed"`
	TickRate int   `json:"tick_rate_hz"`

	Grid grid.Layers `json:"grid"`

	Agents     []AgentV1     `json:"agents"`
	Resources  []ResourceV1  `json:"resources"`
	Stockpiles []StockpileV1 `json:"stockpiles"`
	Relations  []RelationV1  `json:"relations,omitempty"`

	Counters CountersV1 `json:"counters"`

	ConnectivityWarnings uint64 `json:"connectivity_warnings,omitempty"`
}

type CountersV1 struct {
	NextEntity uint64 `json:"next_entity"`
}

type AgentV1 struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Pos  [3]int `json:"pos"`

	Needs  map[string]float64 `json:"needs"`
	Health float64            `json:"health"`
	Stamina float64           `json:"stamina"`
	Trauma  float64           `json:"trauma"`
	Stress  float64           `json:"stress"`

	SkillLevels []int     `json:"skill_levels"`
	SkillExp    []float64 `json:"skill_exp"`

	Inventory map[string]int `json:"inventory,omitempty"`
	Capacity  int            `json:"capacity"`

	Intent            *IntentV1         `json:"intent,omitempty"`
	Cooldowns         map[string]uint64 `json:"cooldowns,omitempty"`
	UnreachableStreak int               `json:"unreachable_streak,omitempty"`
}

// IntentV1 is an in-flight movement intent. Persisting it keeps a restored
// world in lockstep with the live one that exported it: an agent mid-path
// resumes at the same step cursor with the same banked progress.
type IntentV1 struct {
	Need     string   `json:"need"`
	TargetID uint64   `json:"target_id,omitempty"`
	Goal     [3]int   `json:"goal"`
	Steps    [][3]int `json:"steps"`
	Cursor   int      `json:"cursor"`
	Progress float64  `json:"progress"`
	Epoch    uint64   `json:"epoch"`
	Stalled  int      `json:"stalled,omitempty"`
}

type ResourceV1 struct {
	ID     uint64  `json:"id"`
	Kind   string  `json:"kind"`
	Pos    [3]int  `json:"pos"`
	Qty    int     `json:"qty"`
	Target *[3]int `json:"target,omitempty"`
}

type StockpileV1 struct {
	ID       uint64         `json:"id"`
	Pos      [3]int         `json:"pos"`
	Capacity int            `json:"capacity"`
	Items    map[string]int `json:"items,omitempty"`
}

type RelationV1 struct {
	A        uint64 `json:"a"`
	B        uint64 `json:"b"`
	Affinity int    `json:"affinity"`
}

func Write(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	// The header rides as a plain JSON line so tooling can peek at version
	// and tick without decoding the body.
	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func Read(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the gob body carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != 1 {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// PeekHeader reads only the JSON header line of a snapshot file.
func PeekHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
