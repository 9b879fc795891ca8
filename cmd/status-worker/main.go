package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/clinic-management/internal/activity"
	"github.com/hackgods/clinic-management/internal/appointment"
	"github.com/hackgods/clinic-management/internal/config"
	"github.com/hackgods/clinic-management/internal/db"
	"github.com/hackgods/clinic-management/internal/notify"
	redisclient "github.com/hackgods/clinic-management/internal/redis"
	"github.com/hackgods/clinic-management/internal/user"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("status-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running status worker in env=%s interval=%s clinic_tz=%s", cfg.Env, cfg.WorkerInterval, cfg.ClinicTZ)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

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
	svc := appointment.NewService(appointment.Deps{
		Repo:        appointment.NewPgRepository(pgPool),
		Users:       user.NewService(user.NewPgRepository(pgPool), activities),
		Locker:      redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		SweepLocker: redisclient.NewRedisLocker(rdb, cfg.SweepLockTTL),
		Notifier:    notify.NewNotifier(notify.LogMailer{}, cfg.ClinicName, cfg.MailTimeout),
		Activity:    activities,
		Location:    cfg.Location(),
	})

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping status worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	n, err := svc.SweepPast(runCtx)
	if err != nil {
		log.Printf("status sweep error: %v", err)
		return
	}
	log.Printf("status sweep complete in %s, %d rendez-vous marked past", time.Since(start), n)
}
