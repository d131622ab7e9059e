package world

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"stonedelve.sim/internal/persistence/snapshot"
	"stonedelve.sim/internal/sim/catalogs"
	"stonedelve.sim/internal/sim/grid"
	"stonedelve.sim/internal/sim/path"
	"stonedelve.sim/internal/sim/spatial"
	"stonedelve.sim/internal/sim/tuning"
)

type EntityID = spatial.EntityID

type Config struct {
	ID   string
	Seed int64
}

// World is the single explicit simulation context: it owns the voxel grid,
// the spatial index, the path engine and every entity component table. All
// state must be accessed only from the simulation goroutine; external
// callers go through Run's control channels or drive Step themselves from
// one goroutine.
type World struct {
	cfg  Config
	tune tuning.Tuning
	cats *catalogs.Catalogs

	grid  *grid.Grid
	index *spatial.Index
	paths *path.Engine

	tick atomic.Uint64

	agents     map[EntityID]*Agent
	resources  map[EntityID]*Resource
	stockpiles map[EntityID]*Stockpile
	relations  map[pairKey]int

	nextEntity uint64

	// Destroyed ids collected during a tick; swept in the lifecycle phase so
	// destruction never invalidates in-tick iteration.
	tombstones []EntityID

	// Control channels (Run mode). Drained at tick boundaries except for
	// read-only queries, which execute as they arrive.
	spawnCh chan spawnReq
	editCh  chan editReq
	queryCh chan func(*World)
	stop    chan struct{}

	speedMilli atomic.Int64

	connectivityWarnings uint64

	log *logrus.Logger

	tickLogger   TickLogger
	snapshotSink chan<- snapshot.SnapshotV1
}

// TickLogger receives one entry per tick (persistence/log, indexdb).
type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick   uint64  `json:"tick"`
	Agents int     `json:"agents"`
	Epoch  uint64  `json:"epoch"`
	StepMS float64 `json:"step_ms"`
	Digest string  `json:"digest"`

	Spawns []SpawnSpec    `json:"spawns,omitempty"`
	Edits  []RecordedEdit `json:"edits,omitempty"`
}

type RecordedEdit struct {
	Pos      [3]int `json:"pos"`
	Material string `json:"material"`
}

func New(cfg Config, tune tuning.Tuning, cats *catalogs.Catalogs, g *grid.Grid) *World {
	w := &World{
		cfg:  cfg,
		tune: tune,
		cats: cats,

		grid:  g,
		index: spatial.New(tune.SpatialBucket),
		paths: path.NewEngine(tune.PathCacheCapacity, tune.PathMaxExpansions),

		agents:     map[EntityID]*Agent{},
		resources:  map[EntityID]*Resource{},
		stockpiles: map[EntityID]*Stockpile{},
		relations:  map[pairKey]int{},

		spawnCh: make(chan spawnReq, 64),
		editCh:  make(chan editReq, 64),
		queryCh: make(chan func(*World), 64),
		stop:    make(chan struct{}),

		log: logrus.StandardLogger(),
	}
	w.speedMilli.Store(1000)
	return w
}

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) Seed() int64         { return w.cfg.Seed }
func (w *World) Tick() uint64        { return w.tick.Load() }
func (w *World) Grid() *grid.Grid    { return w.grid }
func (w *World) Paths() *path.Engine { return w.paths }

func (w *World) SetLogger(l *logrus.Logger) {
	if l != nil {
		w.log = l
	}
}

func (w *World) SetTickLogger(tl TickLogger)                   { w.tickLogger = tl }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) allocID() EntityID {
	w.nextEntity++
	return EntityID(w.nextEntity)
}

// DT is the fixed simulated timestep in seconds.
func (w *World) DT() float64 {
	return 1.0 / float64(w.tune.TickRateHz)
}
