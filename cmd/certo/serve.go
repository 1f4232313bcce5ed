package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	accountpkg "certo/internal/account"
	achievementhandler "certo/internal/achievement/handler"
	achievementservice "certo/internal/achievement/service"
	achievementstore "certo/internal/achievement/store"
	credentialhandler "certo/internal/credential/handler"
	credentialservice "certo/internal/credential/service"
	credentialstore "certo/internal/credential/store"
	"certo/internal/jwttoken"
	"certo/internal/platform/config"
	"certo/internal/platform/httpserver"
	"certo/internal/platform/kafka"
	"certo/internal/platform/logger"
	"certo/internal/platform/metrics"
	platformpg "certo/internal/platform/postgres"
	platformredis "certo/internal/platform/redis"
	profilehandler "certo/internal/profile/handler"
	profileservice "certo/internal/profile/service"
	profilestore "certo/internal/profile/store"
	revocationcache "certo/internal/revocation/cache"
	revocationhandler "certo/internal/revocation/handler"
	revocationservice "certo/internal/revocation/service"
	revocationstore "certo/internal/revocation/store"
	httptransport "certo/internal/transport/http"
	"certo/internal/vc/signing"
	"certo/internal/vc/verify"
	"certo/pkg/platform/audit"
	"certo/pkg/platform/tx"
)

const auditTopic = "certo.audit.events"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Stores: postgres when configured, memory otherwise.
	var (
		profileStore     profilestore.Store
		achievementStore achievementstore.Store
		credStore        credentialstore.Store
		evidenceStore    credentialstore.EvidenceStore
		statusStore      revocationstore.Store
		accountStore     accountpkg.Store
		runner           tx.Runner = tx.NoopRunner{}
		healthChecks               = map[string]httptransport.HealthChecker{}
	)
	if cfg.DatabaseURL != "" {
		db, err := platformpg.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		profileStore = profilestore.NewPostgres(db)
		achievementStore = achievementstore.NewPostgres(db)
		credStore = credentialstore.NewPostgres(db)
		evidenceStore = credentialstore.NewPostgresEvidence(db)
		statusStore = revocationstore.NewPostgres(db)
		accountStore = accountpkg.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		healthChecks["postgres"] = db.PingContext
		log.Info("using postgres stores")
	} else {
		profileStore = profilestore.NewMemory()
		achievementStore = achievementstore.NewMemory()
		credStore = credentialstore.NewMemory()
		evidenceStore = credentialstore.NewMemoryEvidence()
		statusStore = revocationstore.NewMemory()
		accountStore = accountpkg.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Redis-backed revocation cache when configured.
	var redisClient *platformredis.Client
	if cfg.RedisURL != "" {
		client, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			return err
		}
		redisClient = client
		defer redisClient.Close()
		healthChecks["redis"] = redisClient.Health
		log.Info("revocation cache enabled")
	}

	// Audit sink: Kafka when configured, memory otherwise.
	var auditPub audit.Publisher = audit.NewMemoryPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer producer.Close()
		topicCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := producer.EnsureTopic(topicCtx, auditTopic, 3); err != nil {
			cancel()
			return err
		}
		cancel()
		auditPub = audit.NewKafkaPublisher(producer, auditTopic)
		log.Info("audit events publishing to kafka", "topic", auditTopic)
	}

	// Signing key. Absence is logged, not fatal: issuance falls back to
	// placeholder proofs and verification reports them unsigned.
	key, err := signing.LoadSigningKey(cfg.SigningKeyB64)
	if err != nil {
		log.Warn("signing key unavailable, credentials will carry placeholder proofs", "error", err.Error())
	}
	signer := signing.New(key, log)

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "certo")

	profileSvc := profileservice.New(profileStore, signer, auditPub, log, cfg.BaseURL)
	achievementSvc := achievementservice.New(achievementStore)
	provisioner := accountpkg.NewProvisioner(accountStore, auditPub, log)
	revocationCache := revocationcache.New(redisClient, revocationcache.DefaultTTL, log)
	revocationSvc := revocationservice.New(statusStore, revocationCache, auditPub, log)

	credentialSvc := credentialservice.New(credentialservice.Deps{
		Store:    credStore,
		Evidence: evidenceStore,
		Profiles: profileSvc,
		Catalog:  achievementSvc,
		Accounts: provisioner,
		Status:   revocationSvc,
		Signer:   signer,
		Runner:   runner,
		Audit:    auditPub,
		Metrics:  m,
		Logger:   log,
		BaseURL:  cfg.BaseURL,
	})

	verifier := verify.New(credentialSvc, signing.NewProfileKeyResolver(profileSvc, signer), auditPub, m, log, cfg.ProofMaxAge)
	external := verify.NewExternalValidator(profileSvc, log)

	router := httptransport.NewRouter(httptransport.Config{
		Logger:   log,
		Metrics:  m,
		Registry: registry,
		Handlers: []httptransport.Registrar{
			credentialhandler.New(credentialSvc, verifier, external, log, jwtService),
			profilehandler.New(profileSvc, log, jwtService),
			achievementhandler.New(achievementSvc, log, jwtService),
			revocationhandler.New(revocationSvc, credentialSvc, log, jwtService),
		},
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting certo", "addr", cfg.Addr, "base_url", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
