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

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/docscan/internal/config"
	"github.com/xxxsen/docscan/internal/db"
	"github.com/xxxsen/docscan/internal/filestore"
	"github.com/xxxsen/docscan/internal/handler"
	"github.com/xxxsen/docscan/internal/job"
	"github.com/xxxsen/docscan/internal/middleware"
	"github.com/xxxsen/docscan/internal/recognition"
	_ "github.com/xxxsen/docscan/internal/recognition/tesseract"
	"github.com/xxxsen/docscan/internal/repo"
	"github.com/xxxsen/docscan/internal/schedule"
	"github.com/xxxsen/docscan/internal/service"
	"github.com/xxxsen/docscan/internal/session"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docscan",
		Short: "docscan backend server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docscan server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath, true)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(configPath, true)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}

	var auditUser string
	auditCmd := &cobra.Command{
		Use:   "audit-orphans",
		Short: "report versions left behind by interrupted saves",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath, false)
			if err != nil {
				return err
			}
			defer conn.Close()
			versions := service.NewVersionService(repo.NewStore(conn), cfg.Versioning.IsAtomic())
			orphans, err := versions.AuditOrphans(cmd.Context(), auditUser)
			if err != nil {
				return err
			}
			for _, o := range orphans {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tversion_rev=%d\tdoc_rev=%d\n",
					o.VersionID, o.DocumentID, o.UserID, o.Revision, o.DocRevision)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphan version(s)\n", len(orphans))
			return nil
		},
	}
	auditCmd.Flags().StringVar(&auditUser, "user", "", "limit the audit to one user id")

	rootCmd.AddCommand(runCmd, migrateCmd, auditCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(configPath string, migrate bool) (*config.Config, *sqlx.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if migrate {
		if err := db.ApplyMigrations(conn); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return cfg, conn, nil
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("engine", cfg.Recognition.Engine),
		zap.String("math", cfg.Recognition.Math),
		zap.Bool("atomic_save", cfg.Versioning.IsAtomic()),
	)

	store := repo.NewStore(conn)
	sessions := session.NewManager(cfg.Session.MaxSessions, time.Duration(cfg.Session.TTLMinutes)*time.Minute, cfg.List.DefaultPerPage)
	ttl := time.Hour * time.Duration(cfg.JWTTTLHours)

	engine, err := recognition.NewEngine(cfg.Recognition.Engine, cfg.Recognition.Languages)
	if err != nil {
		return fmt.Errorf("init recognition engine: %w", err)
	}
	engine = recognition.WrapLruCache(engine, cfg.Recognition.CacheSize, time.Duration(cfg.Recognition.CacheTTLSecs)*time.Second)
	math, err := recognition.NewMathRecognizer(cfg.Recognition.Math, cfg.Recognition.MathData)
	if err != nil {
		return fmt.Errorf("init math recognizer: %w", err)
	}
	gateway := recognition.NewGateway(engine, math, time.Duration(cfg.Recognition.TimeoutSecs)*time.Second)

	files, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	authService := service.NewAuthService(repo.NewUserRepo(conn), sessions, []byte(cfg.JWTSecret), ttl)
	documentService := service.NewDocumentService(store, cfg.Versioning.IsCascadeOnDelete())
	versionService := service.NewVersionService(store, cfg.Versioning.IsAtomic())
	listController := service.NewListController(store, cfg.List.DefaultPerPage)
	workspace := service.NewWorkspace(documentService, versionService, listController)
	scanService := service.NewScanService(gateway, files, cfg.FileStore.KeepScans)
	exportService := service.NewExportService(store)

	deps := handler.RouterDeps{
		Auth:            handler.NewAuthHandler(authService),
		Documents:       handler.NewDocumentHandler(workspace),
		Versions:        handler.NewVersionHandler(workspace),
		Recognition:     handler.NewRecognitionHandler(scanService, cfg.FileStore.MaxUploadBytes),
		Export:          handler.NewExportHandler(exportService),
		Files:           handler.NewFileHandler(files),
		Session:         handler.NewSessionHandler(),
		Sessions:        sessions,
		JWTSecret:       []byte(cfg.JWTSecret),
		RecognizeWindow: time.Duration(cfg.RateLimit.RecognizeWindowMs) * time.Millisecond,
	}

	web, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *schedule.CronScheduler
	if cfg.Audit.Enable {
		scheduler = schedule.NewCronScheduler()
		if err := scheduler.AddJob(job.NewOrphanAuditJob(versionService), cfg.Audit.Spec); err != nil {
			return fmt.Errorf("schedule orphan audit: %w", err)
		}
		scheduler.Start(ctx)
	}

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := web.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	if scheduler != nil {
		scheduler.Stop()
	}
	return nil
}
