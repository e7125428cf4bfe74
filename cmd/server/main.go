package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/ignite/send-governor/internal/admission"
	"github.com/ignite/send-governor/internal/alert"
	"github.com/ignite/send-governor/internal/api"
	"github.com/ignite/send-governor/internal/config"
	"github.com/ignite/send-governor/internal/outcomes"
	"github.com/ignite/send-governor/internal/pkg/distlock"
	"github.com/ignite/send-governor/internal/repository/postgres"
	"github.com/ignite/send-governor/internal/reputation"
	"github.com/ignite/send-governor/internal/sendlog"
	"github.com/ignite/send-governor/internal/tier"
	"github.com/ignite/send-governor/internal/usage"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Send Governor (cmd/server/main.go)                       ║")
	log.Println("║  Adaptive sending-rate admission engine                   ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	if cfg.Database.URL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancelPing()
		log.Fatalf("Database ping failed (host %s): %v", extractHost(cfg.Database.URL), err)
	}
	cancelPing()
	log.Printf("Database connected (host %s)", extractHost(cfg.Database.URL))

	// Usage counters: Redis when configured, in-process otherwise.
	var windows usage.Store
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		pctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			cancel()
			log.Fatalf("Redis ping failed: %v", err)
		}
		cancel()
		windows = usage.NewRedisStore(rdb)
		log.Println("Usage counters: redis")
	} else {
		windows = usage.NewMemoryStore()
		log.Println("Usage counters: in-process (single node only)")
	}

	tiers, err := tier.NewPolicy(cfg.Tiers)
	if err != nil {
		log.Fatalf("Invalid tier policy: %v", err)
	}

	accounts := postgres.NewAccountRepo(db)
	records := postgres.NewReputationRepo(db)
	attempts := postgres.NewSendLogRepo(db)
	alertRepo := postgres.NewAlertRepo(db)

	engine := reputation.NewEngine(accounts, records, attempts, tiers, cfg.Reputation)

	logSvc := sendlog.NewService(attempts, engine, cfg.Sendlog.RecalcEvery)
	logSvc.SetLockFactory(func(key string) sendlog.Lock {
		return distlock.NewLock(rdb, db, key, 30*time.Second)
	})

	var notifier alert.Notifier
	if cfg.Alerts.SES.Enabled {
		n, err := alert.NewSESNotifier(context.Background(), cfg.Alerts.SES.SESConfig)
		if err != nil {
			log.Fatalf("Failed to init SES notifier: %v", err)
		}
		notifier = n
		log.Println("Alert notifier: ses")
	} else {
		notifier = alert.NewSMTPNotifier(cfg.Alerts.SMTP)
		log.Println("Alert notifier: smtp")
	}
	alerts := alert.NewEmitter(alertRepo, notifier)

	ctrl := admission.NewController(accounts, windows, tiers, engine, alerts, admission.Config{
		WarnRemainingFraction: cfg.Admission.WarnRemainingFraction,
		StorageTimeout:        cfg.Admission.StorageTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var consumer *outcomes.Consumer
	if cfg.Outcomes.QueueURL != "" {
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Outcomes.Region),
		}
		if cfg.Outcomes.AccessKey != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.Outcomes.AccessKey, cfg.Outcomes.SecretKey, "")))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		consumer = outcomes.NewConsumer(sqs.NewFromConfig(awsCfg), cfg.Outcomes.QueueURL, logSvc)
		consumer.Start(ctx)
	}

	handlers := api.NewHandlers(ctrl, logSvc, alerts)
	router := api.SetupRoutes(handlers, cfg.Server.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Listening on http://%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	if consumer != nil {
		consumer.Stop()
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	db.Close()
	if rdb != nil {
		rdb.Close()
	}
	log.Println("Stopped")
}
