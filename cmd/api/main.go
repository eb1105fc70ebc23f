package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/verenigingen/backend/internal/boekhouden"
	"github.com/verenigingen/backend/internal/config"
	"github.com/verenigingen/backend/internal/handler"
	"github.com/verenigingen/backend/internal/logging"
	"github.com/verenigingen/backend/internal/middleware"
	"github.com/verenigingen/backend/internal/repository"
	"github.com/verenigingen/backend/internal/service/chapter"
	"github.com/verenigingen/backend/internal/service/mandate"
	"github.com/verenigingen/backend/internal/service/payment"
	"github.com/verenigingen/backend/internal/service/sepa"
	"github.com/verenigingen/backend/internal/service/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("verenigingen-api", cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewPostgresDB(ctx, cfg.DatabaseURL, repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	mandateRepo := repository.NewMandateRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	mappingRepo := repository.NewLedgerMappingRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	entryRepo := repository.NewPaymentEntryRepository(db)
	runRepo := repository.NewImportRunRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	ddRepo := repository.NewDirectDebitRepository(db)

	resolver := payment.NewAccountResolver(mappingRepo, accountRepo,
		payment.Defaults{
			BankAccount:       cfg.DefaultBankAccount,
			CashAccount:       cfg.DefaultCashAccount,
			ReceivableAccount: cfg.DefaultReceivableAccount,
			PayableAccount:    cfg.DefaultPayableAccount,
		},
		cfg.DescPatterns(),
	)
	paymentSvc := payment.NewHandler(entryRepo, invoiceRepo, resolver, db)
	boardSvc := chapter.NewService(chapterRepo, db)
	mandateSvc := mandate.NewService(mandateRepo, memberRepo, db)
	batchSvc := sepa.NewService(ddRepo, db)

	boekhoudenClient := boekhouden.NewClient(cfg.BoekhoudenURL, cfg.BoekhoudenToken)
	runner := sync.NewRunner(boekhoudenClient, runRepo, paymentSvc,
		time.Duration(cfg.SyncIntervalS)*time.Second)
	go runner.Start(ctx)

	jwtExpiry := time.Duration(cfg.JWTExpiryHours) * time.Hour
	healthHandler := handler.NewHealthHandler(db)
	authHandler := handler.NewAuthHandler(userRepo, cfg.JWTSecret, jwtExpiry)
	memberHandler := handler.NewMemberHandler(memberRepo)
	chapterHandler := handler.NewChapterHandler(boardSvc, chapterRepo)
	mandateHandler := handler.NewMandateHandler(mandateSvc)
	paymentHandler := handler.NewPaymentHandler(entryRepo, paymentSvc)
	syncHandler := handler.NewSyncHandler(runner)
	ledgerHandler := handler.NewLedgerHandler(mappingRepo, accountRepo)
	ddHandler := handler.NewDirectDebitHandler(batchSvc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	protected := http.NewServeMux()
	protected.HandleFunc("POST /api/v1/members", memberHandler.Create)
	protected.HandleFunc("GET /api/v1/members", memberHandler.List)
	protected.HandleFunc("GET /api/v1/members/{id}", memberHandler.Get)
	protected.HandleFunc("PATCH /api/v1/members/{id}/status", memberHandler.UpdateStatus)
	protected.HandleFunc("GET /api/v1/members/{id}/mandates", mandateHandler.ListForMember)
	protected.HandleFunc("PATCH /api/v1/members/{id}/bank-details", mandateHandler.UpdateBankDetails)

	protected.HandleFunc("POST /api/v1/mandates", mandateHandler.Create)
	protected.HandleFunc("POST /api/v1/mandates/{id}/cancel", mandateHandler.Cancel)

	protected.HandleFunc("POST /api/v1/chapters", chapterHandler.Create)
	protected.HandleFunc("GET /api/v1/chapters/{id}", chapterHandler.Get)
	protected.HandleFunc("GET /api/v1/chapters/{id}/board", chapterHandler.ListBoard)
	protected.HandleFunc("GET /api/v1/chapters/{id}/members", chapterHandler.ListMembers)
	protected.HandleFunc("POST /api/v1/chapters/{id}/board", chapterHandler.AddBoardMember)
	protected.HandleFunc("POST /api/v1/chapters/{id}/board/remove", chapterHandler.RemoveBoardMember)
	protected.HandleFunc("POST /api/v1/chapters/{id}/board/transition", chapterHandler.TransitionRole)
	protected.HandleFunc("POST /api/v1/volunteers", chapterHandler.CreateVolunteer)
	protected.HandleFunc("GET /api/v1/volunteers/{id}/assignments", chapterHandler.ListAssignments)

	protected.HandleFunc("GET /api/v1/payment-entries", paymentHandler.List)
	protected.HandleFunc("GET /api/v1/payment-entries/{id}", paymentHandler.Get)
	protected.HandleFunc("POST /api/v1/payment-entries/{id}/cancel", paymentHandler.Cancel)

	protected.HandleFunc("POST /api/v1/imports", syncHandler.TriggerImport)
	protected.HandleFunc("GET /api/v1/imports/latest", syncHandler.LatestRun)
	protected.HandleFunc("GET /api/v1/imports/{id}", syncHandler.GetRun)

	protected.HandleFunc("POST /api/v1/dd-batches", ddHandler.Create)
	protected.HandleFunc("GET /api/v1/dd-batches", ddHandler.List)
	protected.HandleFunc("GET /api/v1/dd-batches/{id}", ddHandler.Get)
	protected.HandleFunc("POST /api/v1/dd-batches/{id}/submit", ddHandler.Submit)

	protected.HandleFunc("GET /api/v1/ledger-mappings", ledgerHandler.ListMappings)
	protected.HandleFunc("PUT /api/v1/ledger-mappings", ledgerHandler.UpsertMapping)

	authed := middleware.Auth(cfg.JWTSecret)(
		middleware.Idempotency(idempotencyRepo)(protected),
	)
	mux.Handle("/api/v1/", authed)

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
