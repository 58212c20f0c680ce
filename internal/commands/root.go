package commands

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/finch-money/finch/internal/config"
	"github.com/finch-money/finch/internal/database"
	"github.com/finch-money/finch/internal/database/repository"
	"github.com/finch-money/finch/internal/logger"
	"github.com/finch-money/finch/internal/pipeline"
	"github.com/finch-money/finch/internal/profile"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "finch",
		Short:   "CSV bank statement importer with a rules engine",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newRulesCommand())
	rootCmd.AddCommand(newBatchesCommand())

	return rootCmd
}

// app bundles everything a database-backed command needs.
type app struct {
	cfg      config.Config
	log      zerolog.Logger
	db       *sql.DB
	accounts *repository.AccountRepo
	txns     *repository.TransactionRepo
	rules    *repository.RuleRepo
	batches  *repository.ImportBatchRepo
	cats     *repository.CategoryRepo
	profiles *profile.Registry
}

func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.New()
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		log = log.Level(lvl)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	profiles, err := profile.LoadDir(cfg.Import.ProfilesDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		accounts: repository.NewAccountRepo(db),
		txns:     repository.NewTransactionRepo(db),
		rules:    repository.NewRuleRepo(db),
		batches:  repository.NewImportBatchRepo(db),
		cats:     repository.NewCategoryRepo(db),
		profiles: profiles,
	}, nil
}

func (a *app) close() {
	_ = a.db.Close()
}

func (a *app) coordinator() *pipeline.Coordinator {
	return &pipeline.Coordinator{
		Store:         a.txns,
		Updater:       a.txns,
		Accounts:      a.accounts,
		Rules:         a.rules,
		Batches:       a.batches,
		Workers:       a.cfg.Import.Workers,
		ChunkSize:     a.cfg.Import.ChunkSize,
		ProgressEvery: a.cfg.Import.ProgressEvery,
		Currency:      a.cfg.Import.Currency,
		Log:           a.log,
	}
}
