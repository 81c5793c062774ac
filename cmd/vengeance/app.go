package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/backup"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/config"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/crm"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/notify"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/opportunity"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/postgres"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/sqlite"
)

// dbFileName is the SQLite database under the data path.
const dbFileName = "vengeance.db"

// app bundles the objects every command needs.
type app struct {
	cfg    *config.Config
	store  storage.Store
	engine *engine.Engine
	backup *backup.Service // nil for postgres
}

// openApp loads configuration and builds the store and engine. The vector
// index is rebuilt so one-shot commands see existing memories.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, dbPath, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store}

	if dbPath != "" {
		a.backup, err = newBackupService(cfg, dbPath)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	opts, err := engineOptions(cfg, a.backup)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a.engine, err = engine.New(store, engineConfig(cfg), opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if cfg.Notify.EventsEnabled {
		a.engine.Subscribe(notify.NewEventWriter(cfg.Storage.DataPath).Observer())
	}

	if err := a.engine.Memory().Init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the engine and the store.
func (a *app) Close() {
	a.engine.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("failed to close store: %v", err)
	}
}

// openStore opens the configured backend. The returned path is the SQLite
// file, empty for postgres.
func openStore(cfg config.StorageConfig) (storage.Store, string, error) {
	switch cfg.StorageEngine {
	case "postgres":
		store, err := postgres.NewStore(cfg.PostgresDSN)
		if err != nil {
			return nil, "", fmt.Errorf("opening %s: %w", postgres.RedactDSN(cfg.PostgresDSN), err)
		}
		return store, "", nil
	default:
		if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
			return nil, "", fmt.Errorf("failed to create data directory: %w", err)
		}
		path := filepath.Join(cfg.DataPath, dbFileName)
		store, err := sqlite.NewStore(path)
		if err != nil {
			return nil, "", err
		}
		return store, path, nil
	}
}

// newBackupService builds the snapshot service for the SQLite file at dbPath.
func newBackupService(cfg *config.Config, dbPath string) (*backup.Service, error) {
	return backup.NewService(backup.Config{
		DBPath:    dbPath,
		BackupDir: cfg.Backup.BackupPath,
		Retention: backup.RetentionPolicy{
			Hourly:  cfg.Backup.BackupRetentionHourly,
			Daily:   cfg.Backup.BackupRetentionDaily,
			Weekly:  cfg.Backup.BackupRetentionWeekly,
			Monthly: cfg.Backup.BackupRetentionMonthly,
		},
		VerifyBackups: cfg.Backup.BackupVerify,
	})
}

func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.Config{
		DeviceID:            cfg.Engine.DeviceID,
		VectorDimensions:    cfg.Engine.VectorDimensions,
		HotCacheCost:        cfg.Engine.HotCacheCost,
		AcceptanceThreshold: cfg.Engine.AcceptanceThreshold,
		CleanupMaxAge:       cfg.Engine.CleanupMaxAge,
		SyncQueueSize:       cfg.Engine.SyncQueueSize,
		CleanupSchedule:     cfg.Engine.CleanupSchedule,
		SyncSchedule:        cfg.Engine.SyncSchedule,
	}
	if cfg.Backup.BackupEnabled {
		ec.BackupSchedule = cfg.Engine.BackupSchedule
	}
	return ec
}

func engineOptions(cfg *config.Config, svc *backup.Service) ([]engine.Option, error) {
	var opts []engine.Option

	vocab := cfg.Vocabulary
	if vocab.HesitationMarker != "" || len(vocab.PositivePhrases) > 0 {
		opts = append(opts, engine.WithExtractorOptions(
			opportunity.WithHesitation(vocab.HesitationMarker, vocab.PositivePhrases)))
	}
	if len(vocab.EnterpriseKeywords) > 0 {
		opts = append(opts, engine.WithEnterpriseKeywords(vocab.EnterpriseKeywords))
	}

	if cfg.CRM.BaseURL != "" {
		client, err := crm.NewClient(crm.Config{
			BaseURL:           cfg.CRM.BaseURL,
			Token:             cfg.CRM.Token,
			Timeout:           cfg.CRM.Timeout,
			RequestsPerSecond: cfg.CRM.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithRelationshipLookup(client))
	}

	if cfg.Backup.BackupEnabled {
		if svc == nil {
			log.Printf("backups are only supported for the sqlite engine; scheduled backup disabled")
		} else {
			opts = append(opts, engine.WithBackupJob(svc.Run))
		}
	}
	return opts, nil
}
