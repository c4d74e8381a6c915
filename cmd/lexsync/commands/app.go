// Package commands implements the lexsync CLI.
package commands

import (
	"database/sql"
	"time"

	"github.com/legalflow/lexsync/asaas"
	"github.com/legalflow/lexsync/billing"
	"github.com/legalflow/lexsync/config"
	"github.com/legalflow/lexsync/db"
	"github.com/legalflow/lexsync/errors"
	"github.com/legalflow/lexsync/intimacao"
	"github.com/legalflow/lexsync/jobstatus"
	"github.com/legalflow/lexsync/logger"
	"github.com/legalflow/lexsync/notify"
	"github.com/legalflow/lexsync/projudi"
	"github.com/legalflow/lexsync/runner"
)

// Default scheduling intervals, overridable per job via env or the
// persisted configuration.
const (
	defaultChargeSyncIntervalMS  = int64(5 * 60 * 1000)
	defaultProjudiSyncIntervalMS = int64(10 * 60 * 1000)
)

// app bundles the wired components shared by the CLI commands.
type app struct {
	cfg      *config.Config
	database *sql.DB
	store    *jobstatus.Store
	runners  map[string]*runner.Runner
}

// newApp loads configuration, opens and migrates the database, and wires
// both sync jobs behind their runners.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}

	log := logger.Named("lexsync")
	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	if err := db.Migrate(database, log); err != nil {
		database.Close()
		return nil, errors.Wrap(err, "migrate database")
	}

	store := jobstatus.NewStore(database)
	publisher := notify.NewLogPublisher(logger.Named("notify"))

	gateway := asaas.NewClient(asaas.Config{
		BaseURL: cfg.Asaas.BaseURL,
		APIKey:  cfg.Asaas.APIKey,
		Timeout: time.Duration(cfg.Asaas.TimeoutSeconds) * time.Second,
		Logger:  logger.Named("asaas"),
	})
	chargeSync := billing.NewSyncService(gateway, billing.NewStore(database), publisher, logger.Named("billing"))

	court := projudi.NewClient(projudi.Config{
		BaseURL:           cfg.Projudi.BaseURL,
		Username:          cfg.Projudi.Username,
		Password:          cfg.Projudi.Password,
		LoginPath:         cfg.Projudi.LoginPath,
		NotificationsPath: cfg.Projudi.NotificationsPath,
		Timeout:           time.Duration(cfg.Projudi.TimeoutSeconds) * time.Second,
		Logger:            logger.Named("projudi"),
	})
	courtFetch := intimacao.NewService(court, intimacao.NewStore(database), logger.Named("intimacao"))

	runners := map[string]*runner.Runner{
		jobstatus.JobChargeSync: runner.New(store, billing.NewJob(chargeSync), jobstatus.Defaults{
			IntervalMS: defaultChargeSyncIntervalMS,
		}),
		jobstatus.JobProjudiSync: runner.New(store, intimacao.NewJob(courtFetch), jobstatus.Defaults{
			IntervalMS: defaultProjudiSyncIntervalMS,
		}),
	}

	return &app{cfg: cfg, database: database, store: store, runners: runners}, nil
}

func (a *app) Close() {
	a.database.Close()
}
