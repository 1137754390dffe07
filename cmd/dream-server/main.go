// Package main is the entry point for the Dream Sprite session server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/infra/storage"
	"github.com/MRamiBalles/DreamSprite/server/internal/network"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/config"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/metrics"
	"github.com/MRamiBalles/DreamSprite/server/internal/scenario"
)

// SQLitePersisterAdapter translates journal events to storage rows.
type SQLitePersisterAdapter struct {
	repo *storage.SQLiteEventRepository
}

func (a *SQLitePersisterAdapter) Append(event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	return a.repo.Append(context.Background(), storage.JournalEvent{
		ID:        event.ID,
		SessionID: event.SessionID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		Phase:     event.Phase,
		Payload:   payload,
	})
}

func main() {
	appLogger := logger.NewLogger()
	appLogger.Info("Initializing Dream Sprite session server...")

	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load config: " + err.Error())
		os.Exit(1)
	}

	sc, err := scenario.LoadOrDefault(cfg.ScenarioPath)
	if err != nil {
		appLogger.Error("Failed to load scenario: " + err.Error())
		os.Exit(1)
	}

	var (
		db        *sql.DB
		persister events.EventPersister
		eventRepo *storage.SQLiteEventRepository
		summaries *storage.SQLiteSummaryRepository
	)
	if cfg.DBPath != "" {
		appLogger.Info("Initializing SQLite journal '" + cfg.DBPath + "'...")
		db, err = storage.InitSQLite(cfg.DBPath, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
		if err != nil {
			appLogger.Error("Failed to initialize SQLite: " + err.Error())
			os.Exit(1)
		}
		defer db.Close()
		eventRepo = storage.NewSQLiteEventRepository(db)
		summaries = storage.NewSQLiteSummaryRepository(db)
		persister = &SQLitePersisterAdapter{repo: eventRepo}
	} else {
		appLogger.Warn("No DB path configured; the journal stays in memory")
	}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(persister)
	eventLog.OnPersist(func(latency time.Duration, err error) {
		metrics.Get().RecordEventWrite(latency, err)
		if err != nil {
			appLogger.Error("Journal write failed: " + err.Error())
		}
	})

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	appLogger.Info("Bootstrapping Engine...")
	dreamEngine := engine.NewEngine(eventLog, appLogger, sc.Setup(),
		engine.WithRand(rand.New(rand.NewSource(seed))),
		engine.WithActionBuffer(cfg.ActionBuffer),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dreamEngine.Start(ctx)

	if cfg.WatchScenario && cfg.ScenarioPath != "" {
		watchScenario(ctx, cfg.ScenarioPath, dreamEngine, appLogger)
	}

	var (
		storeRepo   storage.EventRepository
		summaryRepo storage.SummaryRepository
	)
	if eventRepo != nil {
		storeRepo, summaryRepo = eventRepo, summaries
	}
	journal := network.NewJournalHandler(eventLog, dreamEngine.SessionID(), storeRepo, summaryRepo, appLogger)

	// Session summary refresh routine
	if summaryRepo != nil {
		go func() {
			refresh := time.NewTicker(5 * time.Second)
			defer refresh.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-refresh.C:
					if err := journal.RefreshSummary(ctx); err != nil {
						appLogger.Warn("Session summary refresh failed: " + err.Error())
					}
				}
			}
		}()
	}

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(dreamEngine, appLogger, network.HubConfig{
		BroadcastBuffer:   cfg.BroadcastBuffer,
		ClientSendBuffer:  cfg.ClientSendBuffer,
		MaxClients:        cfg.MaxClients,
		MinActionInterval: cfg.MinActionInterval,
	})
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog, cfg.JournalPollInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewSessionAPI(dreamEngine, appLogger).RegisterRoutes(mux)
	journal.RegisterRoutes(mux)
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		appLogger.Info("HTTP API & WS Server listening on " + cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server failed: " + err.Error())
			cancel()
		}
	}()

	appLogger.Info("Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down with " + strconv.Itoa(hub.ClientCount()) + " clients connected...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	dreamEngine.Close()
	if err := journal.RefreshSummary(shutdownCtx); err != nil {
		appLogger.Warn("Final session summary failed: " + err.Error())
	}
}

// watchScenario hot-reloads the scenario file. Changes made mid-round wait
// for the session to return to Awake.
func watchScenario(ctx context.Context, path string, eng *engine.Engine, log *logger.Logger) {
	w, err := scenario.Watch(path)
	if err != nil {
		log.Error("Scenario watcher disabled: " + err.Error())
		return
	}
	log.Info("Watching scenario " + path)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case sc, ok := <-w.Updates:
				if !ok {
					return
				}
				applied, err := eng.Reconfigure(ctx, sc.Setup())
				if err != nil {
					log.Error("Scenario reload failed: " + err.Error())
					continue
				}
				if applied {
					log.Info("Scenario reloaded: " + sc.Name)
				} else {
					log.Info("Scenario reload queued until the session is awake: " + sc.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("Scenario file rejected: " + err.Error())
			}
		}
	}()
}
