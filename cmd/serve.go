package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/kidquest/internal/api"
	"github.com/abhisek/kidquest/internal/config"
	"github.com/abhisek/kidquest/internal/contentgen"
	"github.com/abhisek/kidquest/internal/llm"
	"github.com/abhisek/kidquest/internal/lock"
	"github.com/abhisek/kidquest/internal/logger"
	"github.com/abhisek/kidquest/internal/metrics"
	"github.com/abhisek/kidquest/internal/pool"
	"github.com/abhisek/kidquest/internal/progression"
	"github.com/abhisek/kidquest/internal/random"
	"github.com/abhisek/kidquest/internal/session"
	"github.com/abhisek/kidquest/internal/store"
	"github.com/abhisek/kidquest/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the exercise engine HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cmd)
	},
}

func serve(ctx context.Context, cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Engine settings hot-reload only when a config file was named.
	var engineCfg config.Source = config.Static(cfg.Engine)
	if cfgPath != "" {
		w, err := config.Watch(cfgPath, log)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		engineCfg = w
	}

	shutdownTracing, err := telemetry.Init(ctx, cfg.Tracing, version, nil, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	provider, err := llm.NewProvider(ctx, cfg.LLM, st.EventRepo(), log)
	configured := err == nil
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		log.Warn("LLM provider not configured, serving from the existing pool only")
		// Hint and lesson calls still land in the request log, as failures.
		provider = llm.WithLogging(llm.Unconfigured(), "none", st.EventRepo(), log)
	case err != nil:
		return fmt.Errorf("init LLM provider: %w", err)
	default:
		log.Info("LLM provider ready", zap.String("provider", cfg.LLM.Provider), zap.String("model", provider.ModelID()))
	}

	gen := contentgen.New(provider, contentgen.DefaultConfig(), random.New(), log)
	var poolGen pool.Generator
	if configured {
		poolGen = gen
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	mgr := pool.NewManager(pool.Deps{
		Skills:    st.SkillRepo(),
		Students:  st.StudentRepo(),
		Progress:  st.ProgressRepo(),
		Exercises: st.ExerciseRepo(),
		Attempts:  st.AttemptRepo(),
	}, poolGen, engineCfg, random.New(), log)

	prog := progression.New(progression.Deps{
		Skills:   st.SkillRepo(),
		Progress: st.ProgressRepo(),
		Reviews:  st.ReviewRepo(),
		Answers:  st.AnswerRepo(),
	}, mgr, locker, engineCfg, log)

	sessions := session.New(session.Deps{
		Sessions:  st.SessionRepo(),
		Skills:    st.SkillRepo(),
		Students:  st.StudentRepo(),
		Exercises: st.ExerciseRepo(),
	}, prog, mgr, gen, engineCfg, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := api.NewRouter(&api.Handler{
		Pool:        mgr,
		Progression: prog,
		Sessions:    sessions,
		Hints:       gen,
		Skills:      st.SkillRepo(),
		Students:    st.StudentRepo(),
		Exercises:   st.ExerciseRepo(),
		Reviews:     st.ReviewRepo(),
		Health:      st,
		Config:      engineCfg,
	}, reg, cfg.Tracing.ServiceName, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("db", dbPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// newLocker returns the Redis lock when an address is configured and the
// in-process lock otherwise.
func newLocker(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (lock.Locker, func(), error) {
	if cfg.Addr == "" {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	log.Info("using redis answer lock", zap.String("addr", cfg.Addr))
	return lock.NewRedis(client, cfg.LockTTL), func() { _ = client.Close() }, nil
}
