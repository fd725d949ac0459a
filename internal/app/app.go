package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/senya-a11/HelperTutor/internal/config"
	"github.com/senya-a11/HelperTutor/internal/homework"
	"github.com/senya-a11/HelperTutor/internal/lesson"
	"github.com/senya-a11/HelperTutor/internal/lives"
	"github.com/senya-a11/HelperTutor/internal/notify"
	"github.com/senya-a11/HelperTutor/internal/scheduler"
	"github.com/senya-a11/HelperTutor/internal/store"
	"github.com/senya-a11/HelperTutor/internal/telegram"
)

type App struct {
	cfg config.Config
	log *zap.Logger
	bot *tgbotapi.BotAPI

	repo  store.Repo
	sched *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting helper-tutor bot",
		zap.Int64("tutorID", a.cfg.TutorID),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready", zap.String("path", a.cfg.DBPath))

	loc := a.cfg.DefaultLocation()
	ledger := lives.NewLedger(repo)
	hwService := homework.NewService(repo, ledger)
	lessonService := lesson.NewService(repo, ledger)

	router := telegram.NewRouter(a.bot, a.log, repo, hwService, lessonService, ledger, a.cfg.TutorID, loc)
	dispatcher := notify.NewDispatcher(router, a.log)
	sweeper := scheduler.NewSweeper(repo, ledger, dispatcher, a.log, loc)
	jobs := scheduler.NewJobStore()
	planner := scheduler.NewPlanner(loc)
	a.sched = scheduler.New(repo, jobs, planner, dispatcher, sweeper, a.log)
	router.SetRecompute(func(ctx context.Context) {
		if err := a.sched.Recompute(ctx, time.Now().UTC()); err != nil {
			a.log.Error("recompute failed", zap.Error(err))
		}
	})

	// Rebuild the reminder set from persisted state before serving anything.
	if err := a.sched.Recompute(ctx, time.Now().UTC()); err != nil {
		a.log.Error("startup recompute failed", zap.Error(err))
		return err
	}

	httpSrv := a.newHTTPServer()
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.sched.Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) newHTTPServer() *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/stats", func(w http.ResponseWriter, req *http.Request) {
		st, err := a.repo.Counts(req.Context(), time.Now().UTC())
		if err != nil {
			http.Error(w, "stats unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			store.Stats
			PendingJobs int `json:"pending_jobs"`
		}{st, a.sched.PendingJobs()})
	})
	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
