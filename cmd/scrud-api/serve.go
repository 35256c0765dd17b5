package main

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
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/scrud-api/api/swagger"
	"github.com/noah-isme/scrud-api/internal/handler"
	"github.com/noah-isme/scrud-api/internal/middleware"
	"github.com/noah-isme/scrud-api/internal/repository"
	"github.com/noah-isme/scrud-api/internal/service"
	"github.com/noah-isme/scrud-api/pkg/cache"
	"github.com/noah-isme/scrud-api/pkg/config"
	"github.com/noah-isme/scrud-api/pkg/database"
	"github.com/noah-isme/scrud-api/pkg/jobs"
	"github.com/noah-isme/scrud-api/pkg/live"
	"github.com/noah-isme/scrud-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/scrud-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/scrud-api/pkg/middleware/requestid"
	"github.com/noah-isme/scrud-api/pkg/storage"
)

const (
	shutdownTimeout     = 10 * time.Second
	transcriptSweepTick = time.Hour
	transcriptRetryWait = 2 * time.Second
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the transcript workers",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if migrateOnStart {
		if _, err := database.Migrate(ctx, db, logr); err != nil {
			return err
		}
	}

	var rdb *redis.Client
	if cfg.GradeCache.Enabled || cfg.Transcripts.Enabled {
		if rdb, err = cache.NewRedis(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
	}

	app, err := buildApp(cfg, logr, db, rdb)
	if err != nil {
		return err
	}
	defer app.grades.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if app.queue != nil {
		g.Go(func() error { return app.queue.Run(gctx) })
		g.Go(func() error {
			sweepTranscripts(gctx, app.transcripts)
			return nil
		})
	}

	err = g.Wait()
	logr.Info("server stopped")
	return err
}

type application struct {
	router      *gin.Engine
	grades      *service.GradeService
	transcripts *service.TranscriptService
	queue       *jobs.Queue
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, rdb *redis.Client) (*application, error) {
	hub := live.NewHub(logr)
	metrics := service.NewMetricsService()
	if err := metrics.TrackHub(hub); err != nil {
		return nil, err
	}
	validate := validator.New()

	students := repository.NewStudentRepository(db, hub)
	teachers := repository.NewTeacherRepository(db, hub)
	courses := repository.NewCourseRepository(db, hub)
	enrollments := repository.NewEnrollmentRepository(db, hub)

	var cacheRepo service.CacheRepository
	checks := map[string]handler.ReadinessCheck{"postgres": db.PingContext}
	if rdb != nil {
		redisRepo := repository.NewCacheRepository(rdb, logr)
		cacheRepo = redisRepo
		checks["redis"] = redisRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.GradeCache.TTL, logr, cfg.GradeCache.Enabled)

	authSvc := service.NewAuthService(students, teachers, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(students, courses, hub, logr)
	teacherSvc := service.NewTeacherService(teachers, hub, validate, logr)
	courseSvc := service.NewCourseService(courses, hub, validate, logr)
	assignmentSvc := service.NewCourseAssignmentService(courses, metrics, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollments, courses, hub, metrics, validate, logr)
	gradeSvc := service.NewGradeService(enrollments, cacheSvc, cfg.GradeCache.TTL, hub, logr)

	app := &application{grades: gradeSvc}
	if cfg.Transcripts.Enabled {
		files, err := storage.NewLocalStorage(cfg.Transcripts.StorageDir)
		if err != nil {
			return nil, err
		}
		signer := storage.NewSigner(cfg.Transcripts.SignedURLSecret, cfg.Transcripts.SignedURLTTL)
		jobStore := repository.NewTranscriptRepository(rdb, cfg.Transcripts.JobTTL)
		app.transcripts = service.NewTranscriptService(jobStore, students, gradeSvc, files, nil, signer, metrics, validate, logr,
			service.TranscriptConfig{ResultTTL: cfg.Transcripts.JobTTL})
		app.queue = jobs.NewQueue("transcripts", app.transcripts.Process, jobs.Config{
			Workers:    cfg.Transcripts.WorkerConcurrency,
			MaxRetries: cfg.Transcripts.WorkerRetries,
			RetryDelay: transcriptRetryWait,
			OnGiveUp:   app.transcripts.GiveUp,
			Logger:     logr,
		})
		app.transcripts.AttachQueue(app.queue)
	} else {
		app.transcripts = service.NewTranscriptService(nil, students, gradeSvc, nil, nil, nil, metrics, validate, logr, service.TranscriptConfig{})
	}

	routes := handler.Routes{
		Auth:        handler.NewAuthHandler(authSvc),
		Students:    handler.NewStudentHandler(studentSvc, enrollmentSvc, gradeSvc),
		Teachers:    handler.NewTeacherHandler(teacherSvc, courseSvc, enrollmentSvc),
		Courses:     handler.NewCourseHandler(courseSvc, assignmentSvc, enrollmentSvc),
		Enrollments: handler.NewEnrollmentHandler(enrollmentSvc, courseSvc),
		Transcripts: handler.NewTranscriptHandler(app.transcripts),
		Tokens:      authSvc,
	}
	app.router = newRouter(cfg, logr, metrics, routes, handler.NewMetricsHandler(metrics, checks))
	return app, nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, routes handler.Routes, ops *handler.MetricsHandler) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes.Register(r.Group(cfg.APIPrefix))
	return r
}

func sweepTranscripts(ctx context.Context, transcripts *service.TranscriptService) {
	ticker := time.NewTicker(transcriptSweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = transcripts.Sweep()
		}
	}
}
