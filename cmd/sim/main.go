package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"stonedelve.sim/internal/persistence/indexdb"
	persistlog "stonedelve.sim/internal/persistence/log"
	"stonedelve.sim/internal/persistence/snapshot"
	"stonedelve.sim/internal/sim/catalogs"
	"stonedelve.sim/internal/sim/tuning"
	"stonedelve.sim/internal/sim/world"
	"stonedelve.sim/internal/worldfile"
)

func main() {
	var (
		worldID    = flag.String("world", "fortress_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (fresh worlds only)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")

		worldFile = flag.String("worldfile", "", "path to a world file json (default: generated demo world)")
		demoW     = flag.Int("demo_w", 48, "demo world width")
		demoH     = flag.Int("demo_h", 48, "demo world height")
		demoD     = flag.Int("demo_d", 4, "demo world depth (z-levels)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to resume from (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume from latest snapshot in data dir when -snapshot is empty")

		disableDB = flag.Bool("disable_db", false, "disable the sqlite index")
		speed     = flag.Float64("speed", 1.0, "initial simulation speed multiplier")
		ticks     = flag.Uint64("ticks", 0, "headless mode: step N ticks and exit (0 = run the realtime loop)")
		logLevel  = flag.String("log_level", "info", "logrus level (debug, info, warn, error)")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(*logLevel); err == nil {
		logger.SetLevel(lvl)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("tuning not found (%s); using defaults", tp)
			tune = tuning.Default()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Warnf("record catalogs: %v", err)
		}
	}

	w, err := buildWorld(logger, tune, cats, worldDir, *worldID, *seed, *worldFile, *snapPath, *loadLatest, *demoW, *demoH, *demoD)
	if err != nil {
		logger.Fatalf("build world: %v", err)
	}
	w.SetLogger(logger)

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	if idx != nil {
		w.SetTickLogger(teeTickLogger{tickLog, idx})
	} else {
		w.SetTickLogger(tickLog)
	}

	// Snapshot sink: compression and disk writes happen off the sim
	// goroutine.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	var snapWG sync.WaitGroup
	snapWG.Add(1)
	go func() {
		defer snapWG.Done()
		for snap := range snapCh {
			path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("snap-%012d.zst", snap.Header.Tick))
			if err := snapshot.Write(path, snap); err != nil {
				logger.Errorf("write snapshot: %v", err)
				continue
			}
			logger.WithField("tick", snap.Header.Tick).Info("snapshot written")
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
		}
	}()
	w.SetSnapshotSink(snapCh)

	if *ticks > 0 {
		// Headless: deterministic batch run.
		for i := uint64(0); i < *ticks; i++ {
			w.Step()
		}
		logger.WithFields(logrus.Fields{
			"tick":   w.Tick(),
			"digest": w.Digest(),
			"agents": w.AgentCount(),
		}).Info("headless run complete")
		final := w.Export()
		path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("snap-%012d.zst", final.Header.Tick))
		if err := snapshot.Write(path, final); err != nil {
			logger.Errorf("write final snapshot: %v", err)
		}
		close(snapCh)
		snapWG.Wait()
		return
	}

	if err := w.SetSimulationSpeed(*speed); err != nil {
		logger.Fatalf("set speed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.WithFields(logrus.Fields{
		"world":  w.ID(),
		"seed":   w.Seed(),
		"tick":   w.Tick(),
		"agents": w.AgentCount(),
	}).Info("simulation starting")

	err = w.Run(ctx)
	close(snapCh)
	snapWG.Wait()
	if err != nil && err != context.Canceled {
		logger.Fatalf("run: %v", err)
	}
	logger.Info("simulation stopped")
}

func buildWorld(logger *logrus.Logger, tune tuning.Tuning, cats *catalogs.Catalogs,
	worldDir, worldID string, seed int64, worldFile, snapPath string, loadLatest bool,
	demoW, demoH, demoD int) (*world.World, error) {

	resume := strings.TrimSpace(snapPath)
	if resume == "" && loadLatest {
		resume = latestSnapshot(worldDir)
	}
	if resume != "" {
		logger.WithField("path", resume).Info("resuming from snapshot")
		snap, err := snapshot.Read(resume)
		if err != nil {
			return nil, err
		}
		return world.Restore(snap, tune, cats)
	}

	if worldFile != "" {
		f, err := worldfile.Load(worldFile)
		if err != nil {
			return nil, err
		}
		return worldfile.Build(f, tune, cats)
	}

	logger.WithField("seed", seed).Info("generating demo world")
	return worldfile.Build(worldfile.Demo(worldID, seed, demoW, demoH, demoD), tune, cats)
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "snap-") && strings.HasSuffix(e.Name(), ".zst") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1])
}

// teeTickLogger fans tick entries out to the JSONL log and the sqlite index.
type teeTickLogger struct {
	jsonl *persistlog.TickLogger
	idx   *indexdb.SQLiteIndex
}

func (t teeTickLogger) WriteTick(e world.TickLogEntry) error {
	_ = t.idx.WriteTick(e)
	return t.jsonl.WriteTick(e)
}
