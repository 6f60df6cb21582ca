package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/askarov/filevault/internal/auth"
	"github.com/askarov/filevault/internal/config"
	"github.com/askarov/filevault/internal/logger"
	"github.com/askarov/filevault/internal/objectstore"
	"github.com/askarov/filevault/internal/server"
	"github.com/askarov/filevault/internal/storage"
	"github.com/askarov/filevault/internal/vault"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logg, err := logger.Init()
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer logg.Sync()

	cfg, err := config.Load()
	if err != nil {
		logg.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store  vault.Store
		dbPool *pgxpool.Pool
	)
	switch cfg.Vault.StoreBackend {
	case "postgres":
		dbPool, err = storage.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logg.Fatal("connect postgres", zap.Error(err))
		}
		defer dbPool.Close()

		if err := storage.RunMigrations(ctx, cfg.Postgres); err != nil {
			logg.Fatal("run migrations", zap.Error(err))
		}
		store = vault.NewPostgresStore(dbPool)
	case "memory":
		store = vault.NewMemoryStore()
	}

	var (
		objects     objectstore.Client
		minioClient *minio.Client
	)
	switch cfg.Vault.ObjectBackend {
	case "minio":
		minioClient, err = storage.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			logg.Fatal("connect minio", zap.Error(err))
		}
		objects = objectstore.NewMinIOClient(minioClient, cfg.MinIO.Bucket)
	case "local":
		objects, err = objectstore.NewLocalClient(cfg.Vault.LocalDir)
		if err != nil {
			logg.Fatal("init local object store", zap.Error(err))
		}
	}

	authService := auth.NewService(server.NewAuthUserStore(store), cfg.Auth)
	vaultService := vault.NewService(store, objects, logg, cfg.Vault.QuotaBytes)

	router := server.NewRouter(server.Dependencies{
		Config:       cfg,
		DB:           dbPool,
		ObjectStore:  minioClient,
		AuthService:  authService,
		VaultService: vaultService,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logg.Info("filevault API listening", zap.String("address", cfg.Server.Address()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logg.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Error("shutdown error", zap.Error(err))
	}
}
