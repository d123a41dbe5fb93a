package common

import (
	"context"
	"log"
	"strings"

	"code-lottery-go/internal/api"
	"code-lottery-go/internal/database"
	"code-lottery-go/internal/filestore"
	"code-lottery-go/internal/membership"
	"code-lottery-go/internal/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	}
}

type Services struct {
	Store       *filestore.Store
	Audit       *database.Service
	Coordinator *api.Coordinator
	Cache       *membership.Cache
	Verifier    *membership.Verifier
	TestMode    bool
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the state file, the audit database and the
// membership cache, and builds the coordinator on top of them.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	mode, err := filestore.ParsePublishMode(cfg.Storage.PublishMode)
	if err != nil {
		return nil, err
	}

	order, err := cfg.Lottery.Order()
	if err != nil {
		return nil, err
	}

	// Taking the state file lock first keeps a second process from touching
	// anything else while the owner runs.
	zap.L().Info("Opening state file", zap.String("path", cfg.Storage.StatePath))
	stateStore, err := filestore.Open(cfg.Storage.StatePath, filestore.Options{PublishMode: mode})
	if err != nil {
		return nil, err
	}

	cache, err := membership.NewCache(membership.Options{
		Path:         cfg.Membership.CachePath,
		TTL:          cfg.Membership.TTL,
		TargetGroups: cfg.Membership.TargetGroups,
		FlushEvery:   cfg.Membership.FlushEvery,
		PublishMode:  mode,
	})
	if err != nil {
		_ = stateStore.Close()
		return nil, err
	}
	if err := cache.Load(); err != nil {
		_ = cache.Close()
		_ = stateStore.Close()
		return nil, err
	}

	auditService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		_ = cache.Close()
		_ = stateStore.Close()
		return nil, err
	}

	coordinator, err := api.Open(ctx, stateStore, auditService, api.Options{
		EscalationOrder: order,
		HistoryLimit:    cfg.Lottery.HistoryLimit,
	})
	if err != nil {
		auditService.Close()
		_ = cache.Close()
		_ = stateStore.Close()
		return nil, err
	}

	report := coordinator.LoadReport()
	for _, w := range report.Warnings {
		zap.L().Warn("State document repaired", zap.String("warning", w))
	}

	zap.L().Info("Services initialized",
		zap.Strings("target_groups", cache.Targets()),
		zap.Bool("skip_group_check", cfg.Membership.SkipCheck),
		zap.Bool("test_mode", cfg.Lottery.TestMode))

	return &Services{
		Store:       stateStore,
		Audit:       auditService,
		Coordinator: coordinator,
		Cache:       cache,
		Verifier:    membership.NewVerifier(cache, cfg.Membership.SkipCheck),
		TestMode:    cfg.Lottery.TestMode,
	}, nil
}

// Close releases the membership cache and closes the coordinator, which owns
// the state store and the audit database.
func (cs *Services) Close(ctx context.Context) {
	if cs.Cache != nil {
		if err := cs.Cache.Close(); err != nil {
			zap.L().Error("Failed to close membership cache", zap.Error(err))
		}
	}
	if cs.Coordinator != nil {
		if err := cs.Coordinator.Close(ctx); err != nil {
			zap.L().Error("Failed to close coordinator", zap.Error(err))
		}
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
