package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dxengine/engine/internal/config"
	"github.com/dxengine/engine/internal/core/event"
	"github.com/dxengine/engine/internal/data"
	"github.com/dxengine/engine/internal/persist"
	"github.com/dxengine/engine/internal/scripting"
	"github.com/dxengine/engine/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            dxengine  scene host           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main host logic ───────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	// 3. Optional profiling of the whole run
	if stop := startProfile(cfg.Profile); stop != nil {
		defer stop()
	}

	// 4. Entity manager
	mgr := world.NewEntityManager(log,
		world.WithSeed(cfg.Engine.Seed),
		world.WithAnimatedLights(cfg.Engine.AnimateLights),
	)
	event.Subscribe(mgr.Bus(), func(e event.EntitiesDestroyed) {
		log.Debug("entities destroyed", zap.Int("count", len(e.IDs)))
	})
	event.Subscribe(mgr.Bus(), func(e event.SceneLoaded) {
		log.Debug("scene loaded", zap.Int("entities", e.Entities))
	})

	// 5. Snapshot store
	var repo *persist.SceneRepo
	if cfg.Database.Enabled {
		printSection("Database")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		repo = persist.NewSceneRepo(db)
		fmt.Println()
	}

	// 6. Scene
	printSection("Scene")
	source, err := loadScene(mgr, cfg, repo)
	if err != nil {
		return err
	}
	printOK(source)
	printStat("entities", mgr.Len())
	printStat("named", mgr.Name().Len())
	printStat("lights", mgr.Light().Len())

	// 7. Scripts
	if cfg.Scene.ScriptPath != "" {
		engine := scripting.NewEngine(mgr, log)
		defer engine.Close()
		if err := runScripts(engine, cfg.Scene.ScriptPath); err != nil {
			return fmt.Errorf("scripts: %w", err)
		}
		if engine.HasUpdate() {
			mgr.Register(scripting.NewScriptSystem(engine, log))
		}
		printStat("entities after scripts", mgr.Len())
	}
	fmt.Println()

	// 8. Frame loop
	printSection("Running")
	if cfg.Engine.Frames > 0 {
		printReady(fmt.Sprintf("%d frames, dt %.4fs", cfg.Engine.Frames, cfg.Engine.DeltaTime))
	} else {
		printReady(fmt.Sprintf("until interrupted, dt %.4fs", cfg.Engine.DeltaTime))
	}
	fmt.Println()

	frames := runFrames(mgr, cfg.Engine, log)
	log.Info("frame loop stopped", zap.Int("frames", frames), zap.Int("entities", mgr.Len()))
	mgr.Name().LogAllNames()

	// 9. Save
	return saveScene(mgr, cfg, repo, log)
}

// loadScene fills mgr from, in order of preference, the binary scene at
// load_path, the latest database snapshot, or the YAML description.
func loadScene(mgr *world.EntityManager, cfg *config.Config, repo *persist.SceneRepo) (string, error) {
	if p := cfg.Scene.LoadPath; p != "" {
		if err := mgr.Deserialize(p); err != nil {
			return "", fmt.Errorf("load scene %s: %w", p, err)
		}
		return "binary scene " + p, nil
	}

	if repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		snap, err := repo.Latest(ctx, cfg.Database.SnapshotName)
		switch {
		case err == nil:
			if err := mgr.UnmarshalBinary(snap.Data); err != nil {
				return "", fmt.Errorf("snapshot %s: %w", snap.ID, err)
			}
			return fmt.Sprintf("snapshot %s (%s)", snap.Name, snap.CreatedAt.Format(time.DateTime)), nil
		case !errors.Is(err, persist.ErrNoSnapshot):
			return "", err
		}
	}

	if p := cfg.Scene.YAMLPath; p != "" {
		scene, err := data.LoadScene(p)
		if err != nil {
			return "", err
		}
		if _, err := world.SpawnScene(mgr, scene); err != nil {
			return "", err
		}
		return "scene description " + p, nil
	}
	return "empty scene", nil
}

func runScripts(engine *scripting.Engine, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return engine.LoadDir(path)
	}
	return engine.RunFile(path)
}

// runFrames updates mgr until the frame budget is used up or a signal
// arrives. Frames are paced by a ticker only in real time mode.
func runFrames(mgr *world.EntityManager, cfg config.EngineConfig, log *zap.Logger) int {
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	var tick <-chan time.Time
	if cfg.RealTime {
		ticker := time.NewTicker(cfg.Frame())
		defer ticker.Stop()
		tick = ticker.C
	}

	total := cfg.TotalTimeStart
	frames := 0
	for cfg.Frames == 0 || frames < cfg.Frames {
		if tick != nil {
			select {
			case <-tick:
			case sig := <-shutdownCh:
				log.Info("shutdown signal", zap.String("signal", sig.String()))
				return frames
			}
		} else {
			select {
			case sig := <-shutdownCh:
				log.Info("shutdown signal", zap.String("signal", sig.String()))
				return frames
			default:
			}
		}
		total += cfg.DeltaTime
		mgr.Update(total, cfg.DeltaTime)
		frames++
	}
	return frames
}

func saveScene(mgr *world.EntityManager, cfg *config.Config, repo *persist.SceneRepo, log *zap.Logger) error {
	if p := cfg.Scene.SavePath; p != "" {
		if err := mgr.Serialize(p); err != nil {
			return fmt.Errorf("save scene %s: %w", p, err)
		}
		printOK("saved " + p)
	}
	if repo == nil {
		return nil
	}
	blob, err := mgr.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := repo.Save(ctx, cfg.Database.SnapshotName, blob)
	if err != nil {
		return err
	}
	printOK(fmt.Sprintf("snapshot %s stored", snap.ID))
	if history, err := repo.List(ctx, cfg.Database.SnapshotName); err == nil {
		printStat("snapshots of "+cfg.Database.SnapshotName, len(history))
	} else {
		log.Warn("list snapshots", zap.Error(err))
	}
	return nil
}

func startProfile(cfg config.ProfileConfig) func() {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfileAllocs
	default:
		return nil
	}
	p := profile.Start(mode, profile.ProfilePath(cfg.Dir), profile.NoShutdownHook, profile.Quiet)
	return p.Stop
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
