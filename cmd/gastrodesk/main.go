package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/gastrodesk/internal/events"
	"github.com/Skotchmaster/gastrodesk/internal/httpserver"
	"github.com/Skotchmaster/gastrodesk/internal/models"
	"github.com/Skotchmaster/gastrodesk/internal/repo"
	"github.com/Skotchmaster/gastrodesk/internal/search"
	"github.com/Skotchmaster/gastrodesk/internal/service"
	"github.com/Skotchmaster/gastrodesk/pkg/config"
	pkgdb "github.com/Skotchmaster/gastrodesk/pkg/db"
	"github.com/Skotchmaster/gastrodesk/pkg/logging"
	"github.com/Skotchmaster/gastrodesk/pkg/middleware/auth"
	"github.com/Skotchmaster/gastrodesk/pkg/middleware/csrf"
	loggingmw "github.com/Skotchmaster/gastrodesk/pkg/middleware/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.MustLoad()
	loc, _ := cfg.Location()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := pkgdb.Migrate(db, models.All()...); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	r := &repo.GormRepo{DB: db}

	orderSvc := &service.OrderService{Orders: r, Dishes: r}
	menuSvc := &service.MenuService{Store: r}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		orderSvc.Events = producer
		menuSvc.Events = producer
		logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	}

	if cfg.ESURL != "" {
		esCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		idx, err := newDishIndex(esCtx, cfg)
		cancel()
		if err != nil {
			logger.Error("search disabled", "error", err)
		} else {
			menuSvc.Index = idx
		}
	}

	authSvc := &service.AuthService{
		Users:         r,
		Tokens:        r,
		JWTSecret:     cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	if err := authSvc.EnsureManager(ctx, cfg.BootstrapUsername, cfg.BootstrapPassword); err != nil {
		log.Fatalf("bootstrap manager: %v", err)
	}
	userSvc := &service.UserService{Users: r}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLoggerWithConfig(loggingmw.Config{
		Logger:        logger,
		Skipper:       loggingmw.SkipPrefixes("/health"),
		UserKey:       auth.CtxUserID,
		SlowThreshold: 2 * time.Second,
	}))
	e.Use(echomw.CORS())
	e.Use(echomw.Secure())
	if cfg.CSRFEnabled {
		e.Use(csrf.Middleware(csrf.Config{
			Secure:            cfg.CookieSecure,
			EnforceSameOrigin: true,
			SkipPaths:         []string{"/api/v1/auth/login"},
		}))
	}

	httpserver.Register(e, &httpserver.Deps{
		Auth:      &httpserver.AuthHTTP{Svc: authSvc, Users: userSvc},
		Users:     &httpserver.UsersHTTP{Svc: userSvc, Auth: authSvc},
		Menu:      &httpserver.MenuHTTP{Svc: menuSvc},
		Orders:    &httpserver.OrdersHTTP{Svc: orderSvc, Location: loc},
		Reports:   &httpserver.ReportsHTTP{Svc: &service.ReportService{Orders: r, Location: loc}},
		JWTSecret: cfg.JWTAccessSecret,
		Ready:     func(ctx context.Context) error { return ping(ctx, db) },
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Printf("gastrodesk listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}
	if err := pkgdb.Close(db); err != nil {
		log.Printf("db close error: %v", err)
	}

	log.Println("gastrodesk stopped")
}

func newDishIndex(ctx context.Context, cfg config.Config) (*search.DishIndex, error) {
	client, err := search.NewClient(ctx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
	if err != nil {
		return nil, err
	}
	idx := &search.DishIndex{ES: client, Index: cfg.ESIndex}
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
