package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/analysis"
	"github.com/hackgods/clinic-management/internal/api"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/auth"
	"github.com/hackgods/clinic-management/internal/config"
	"github.com/hackgods/clinic-management/internal/db"
	"github.com/hackgods/clinic-management/internal/llm"
	"github.com/hackgods/clinic-management/internal/message"
	"github.com/hackgods/clinic-management/internal/notify"
	"github.com/hackgods/clinic-management/internal/prescription"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/specialty"
	"github.com/hackgods/clinic-management/internal/user"
)

var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s clinic_tz=%s", cfg.Env, cfg.HTTPPort, cfg.ClinicTZ)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 30*time.Second)
	pgPool, err := db.Open(pgCtx, cfg.PostgresDSN, cfg.MigrateOnStart)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	activities := activity.NewRecorder(activity.NewPgRepository(pgPool))
	notifier := notify.NewNotifier(notify.NewMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}), cfg.ClinicName, cfg.MailTimeout)
	ai := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.OpenAIKey,
		ChatModel:   cfg.OpenAIModelChat,
		VisionModel: cfg.OpenAIModelVision,
		Timeout:     cfg.LLMTimeout,
	})
	if cfg.OpenAIKey == "" {
		log.Println("OPENAI_API_KEY not set, triage and analyses will answer 502")
	}

	users := user.NewService(user.NewPgRepository(pgPool), activities)
	authSvc := auth.NewService(
		users,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		redisclient.NewRedisCodeStore(rdb, cfg.ResetCodeTTL),
		notifier,
		activities,
		cfg.ResetCodeTTL,
	)
	appointments := appointment.NewService(appointment.Deps{
		Repo:        appointment.NewPgRepository(pgPool),
		Users:       users,
		Locker:      redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		SweepLocker: redisclient.NewRedisLocker(rdb, cfg.SweepLockTTL),
		Notifier:    notifier,
		Activity:    activities,
		Location:    cfg.Location(),
	})
	prescriptions := prescription.NewService(prescription.NewPgRepository(pgPool), users, notifier, activities)
	messages := message.NewService(message.NewPgRepository(pgPool), users, redisclient.NewRedisRelay(rdb), activities)
	triage := specialty.NewService(ai, users, specialty.NewPgRepository(pgPool))
	analyses := analysis.NewService(ai, analysis.NewPgRepository(pgPool), prescriptions)

	router := api.NewRouter(api.RouterConfig{
		Auth:          authSvc,
		Users:         users,
		Appointments:  appointments,
		Prescriptions: prescriptions,
		Messages:      messages,
		Triage:        triage,
		Analyses:      analyses,
		Activities:    activities,
		PgPool:        pgPool,
		Redis:         rdb,
		Location:      cfg.Location(),
		Env:           cfg.Env,
		Version:       version,
		CORSOrigins:   cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.SweepInProcess {
		go runSweeper(rootCtx, appointments, cfg.WorkerInterval)
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown error: %v", err)
	}
}

// runSweeper is the in-process variant of status-worker. The Redis lock
// keeps it from overlapping with a standalone worker.
func runSweeper(ctx context.Context, svc *appointment.Service, interval time.Duration) {
	log.Printf("in-process status sweep every %s", interval)
	sweep := func() {
		runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		if n, err := svc.SweepPast(runCtx); err != nil {
			log.Printf("status sweep error: %v", err)
		} else if n > 0 {
			log.Printf("status sweep marked %d rendez-vous as past", n)
		}
	}

	sweep()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
