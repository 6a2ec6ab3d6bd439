package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/smartlib/library-api/internal/config"
	"github.com/smartlib/library-api/internal/database"
	"github.com/smartlib/library-api/internal/handler"
	"github.com/smartlib/library-api/internal/middleware"
	"github.com/smartlib/library-api/internal/policy"
	"github.com/smartlib/library-api/internal/queue"
	"github.com/smartlib/library-api/internal/repository"
	"github.com/smartlib/library-api/internal/router"
	"github.com/smartlib/library-api/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	rules := policy.Circulation{
		DailyFineCents:  uint32(cfg.DailyFineCents),
		StudentLimit:    cfg.StudentLimit,
		StudentLoanDays: cfg.StudentLoanDays,
		StaffLoanDays:   cfg.StaffLoanDays,
		GraceDays:       cfg.GraceDays,
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	books := repository.NewBookRepo(db)
	txns := repository.NewTransactionRepo(db)
	fines := repository.NewFineRepo(db)
	reservations := repository.NewReservationRepo(db)
	clearances := repository.NewClearanceRepo(db)
	semesters := repository.NewSemesterRepo(db)

	// Services.
	publish := func(ctx context.Context, ev queue.FineAssessedEvent) {
		// Broker trouble must not fail the desk operation; the
		// publisher already logged the error.
		_ = queue.PublishFineAssessed(ctx, ev)
	}
	ledger := &service.LedgerService{
		DB:           db,
		Books:        books,
		Users:        users,
		Txns:         txns,
		Reservations: reservations,
		Fines:        fines,
		Rules:        rules,
		Publish:      publish,
	}
	fineSvc := &service.FineService{DB: db, Fines: fines, Txns: txns, Books: books}
	clearanceSvc := &service.ClearanceService{
		DB: db, Txns: txns, Fines: fines, Clearances: clearances, Rules: rules,
	}
	reservationSvc := &service.ReservationService{DB: db, Books: books, Reservations: reservations}

	// Handlers.
	authH := &handler.AuthHandler{Cfg: cfg, Users: users, Tokens: tokens}
	catalogH := &handler.CatalogHandler{Books: books}
	circH := &handler.CirculationHandler{Ledger: ledger, Txns: txns, Semesters: semesters}
	fineH := &handler.FineHandler{Svc: fineSvc, Fines: fines}
	clearanceH := &handler.ClearanceHandler{Svc: clearanceSvc, Clearances: clearances, Semesters: semesters}
	reservationH := &handler.ReservationHandler{Svc: reservationSvc, Reservations: reservations, Semesters: semesters}
	semesterH := &handler.SemesterHandler{DB: db, Semesters: semesters}
	userH := &handler.UserHandler{Users: users}

	e := echo.New()
	e.HideBanner = true

	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, limiter)
	router.RegisterPublic(e, catalogH, cache)
	router.RegisterStaff(e, circH, fineH, clearanceH, reservationH, userH, cfg.JWTSecret)
	router.RegisterBorrower(e, circH, fineH, clearanceH, reservationH, cfg.JWTSecret)
	router.RegisterLibrarian(e, catalogH, semesterH, cfg.JWTSecret)

	// Background consumer writes assessed fines to the audit log.
	go func() {
		if err := queue.StartFineConsumer(); err != nil {
			log.Printf("fine consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
