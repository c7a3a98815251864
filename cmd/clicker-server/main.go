// Package main is the entry point for the Cosmic Clicker game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/state"
	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
	"github.com/MRamiBalles/CosmicClicker/server/internal/infra/cache"
	"github.com/MRamiBalles/CosmicClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/CosmicClicker/server/internal/network"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/config"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/metrics"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")
	preset := flag.String("preset", "", "Tuning preset: default, stress or low")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	dbPath := flag.String("db", "", `SQLite path (overrides config, "-" keeps saves in memory)`)
	flag.Parse()

	log.Println("[COSMIC-SERVER] Initializing Cosmic Clicker Authoritative Server...")
	appLogger := logger.NewLogger()

	cfg, err := loadConfig(*configPath, *preset)
	if err != nil {
		appLogger.Error("Failed to load config: " + err.Error())
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	switch *dbPath {
	case "":
	case "-":
		cfg.DBPath = ""
	default:
		cfg.DBPath = *dbPath
	}
	appLogger.Infof("Using %q preset", cfg.Preset)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		appLogger.Error("Failed to load catalog: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		saves    storage.SaveRepository = storage.NewMemorySaveRepository()
		recapper network.Recapper
		eventLog *events.EventLog
	)
	if cfg.DBPath != "" {
		appLogger.Infof("Initializing SQLite database %q...", cfg.DBPath)
		db, err := storage.InitSQLite(cfg.DBPath)
		if err != nil {
			appLogger.Error("Failed to initialize SQLite: " + err.Error())
			os.Exit(1)
		}
		defer db.Close()
		configurePool(db, cfg)

		saves = storage.NewSQLiteSaveRepository(db)
		analytics := storage.NewSQLiteAnalyticsRepository(db)
		recapper = storage.NewReconstructor(analytics)
		eventLog = events.NewEventLog(storage.NewEventPersister(analytics, cfg.SaveSlot, cfg.PersistTimeout))
		eventLog.OnPersistError(func(e events.AnalyticsEvent, err error) {
			appLogger.Warnf("Failed to persist %s event %s: %v", e.Type, e.ID, err)
		})
	} else {
		appLogger.Warn("No database configured; saves live in memory only.")
		eventLog = events.NewEventLog(nil)
	}

	appLogger.Info("Restoring save slot " + cfg.SaveSlot + "...")
	s := restore(ctx, saves, cat, cfg.SaveSlot, appLogger)

	bonuses := cache.NewBonusCache(cat, cfg.BonusCacheSize)
	sim := engine.NewSimulation(cat, s,
		engine.WithBonusFunc(bonuses.Get),
		engine.WithLogger(appLogger),
	)
	sim.StageOfflineGains(time.Now())

	store := &saver{repo: saves, slot: cfg.SaveSlot, logger: appLogger}
	gameEngine := engine.NewEngine(sim, eventLog, appLogger,
		engine.WithCommandBuffer(cfg.CommandBuffer),
		engine.OnReset(func() {
			bonuses.Purge()
			store.Delete()
		}),
	)
	store.engine = gameEngine

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(gameEngine, eventLog, network.NewHubConfig(cfg), appLogger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewStateAPI(gameEngine, appLogger).RegisterRoutes(mux)
	network.NewAnalyticsHandler(gameEngine, recapper, cfg.SaveSlot, appLogger).RegisterRoutes(mux)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-gameEngine.Done():
			http.Error(w, "engine stopped", http.StatusServiceUnavailable)
		default:
			w.Write([]byte("ok"))
		}
	})
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return gameEngine.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return hub.RunViewBroadcaster(gctx) })
	g.Go(func() error { return hub.RunEventPoller(gctx) })
	g.Go(func() error { return store.Run(gctx, cfg.AutosaveInterval) })
	g.Go(func() error { return watchTuning(gctx, cfg, appLogger) })
	g.Go(func() error {
		log.Printf("[COSMIC-SERVER] HTTP API & WS Server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Println("[COSMIC-SERVER] Server running. Press Ctrl+C to exit.")
	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped: " + err.Error())
	}

	log.Println("[COSMIC-SERVER] Shutting down...")
	// The engine has flushed pending credits; persist the final state.
	store.Save()
	eventLog.Wait()
}

func loadConfig(path, preset string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		if preset != "" && preset != cfg.Preset {
			return nil, errors.New("-preset conflicts with the preset named in -config")
		}
		return cfg, nil
	}
	return config.FromPreset(preset)
}

func loadCatalog(path string) (*economy.Catalog, error) {
	if path == "" {
		return economy.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return economy.LoadCatalog(data)
}

func configurePool(db *sql.DB, cfg *config.Config) {
	if cfg.DBPath == ":memory:" {
		return
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
}

func restore(ctx context.Context, repo storage.SaveRepository, cat *economy.Catalog, slot string, log *logger.Logger) *state.GameState {
	rec, err := repo.Load(ctx, slot)
	if errors.Is(err, storage.ErrNoSave) {
		log.Info("No previous save. Starting a fresh game.")
		return state.New(cat)
	}
	if err != nil {
		log.Error("Failed to load save, starting fresh: " + err.Error())
		return state.New(cat)
	}
	s, err := state.Restore(cat, rec.Data)
	if err != nil {
		log.Warn("Save is malformed, starting fresh: " + err.Error())
		return s
	}
	log.Infof("Restored save v%d from %s (%s)", rec.Version, humanize.Time(rec.SavedAt), humanize.Bytes(uint64(len(rec.Data))))
	return s
}

// watchTuning logs tuning recommendations derived from live metrics once a minute.
func watchTuning(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rec := config.Analyze(metrics.Get().Snapshot())
			if len(rec.Notes) == 0 {
				continue
			}
			tuned := config.ApplyRecommendations(cfg, rec)
			for _, note := range rec.Notes {
				log.Warn(note)
			}
			log.Warnf("Suggested buffers: command=%d send=%d db_open=%d",
				tuned.CommandBuffer, tuned.ClientSendBuffer, tuned.DBMaxOpenConns)
		}
	}
}
