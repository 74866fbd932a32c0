package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/backup"
	"github.com/dvloznov/pocket-ledger/internal/config"
	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/infra/kvstore"
	"github.com/dvloznov/pocket-ledger/internal/infra/repository"
	"github.com/dvloznov/pocket-ledger/internal/logger"
	"github.com/dvloznov/pocket-ledger/internal/transactions"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	switch os.Args[1] {
	case "add":
		runAdd(cfg)
	case "list":
		runList(cfg)
	case "show":
		runShow(cfg)
	case "update":
		runUpdate(cfg)
	case "delete":
		runDelete(cfg)
	case "backup":
		runBackup(cfg)
	case "restore":
		runRestore(cfg)
	case "snapshots":
		runSnapshots(cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Pocket Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  add        Record a new transaction")
	fmt.Println("  list       List all transactions")
	fmt.Println("  show       Show one transaction by ID")
	fmt.Println("  update     Change fields of a transaction")
	fmt.Println("  delete     Delete a transaction by ID")
	fmt.Println("  backup     Write a snapshot of the ledger to GCS")
	fmt.Println("  restore    Load a snapshot from GCS into the ledger")
	fmt.Println("  snapshots  List snapshots stored in GCS")
	fmt.Println("  help       Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
	fmt.Println("\nEnvironment:")
	fmt.Printf("  %s, %s, %s, %s, %s, %s\n",
		config.EnvDataDir, config.EnvDBName, config.EnvBackupBucket, config.EnvBackupURL, config.EnvLogLevel, config.EnvLogFormat)
}

// session is what every command needs once flags are parsed.
type session struct {
	ctx  context.Context
	cfg  config.Config
	log  zerolog.Logger
	db   *kvstore.DB
	repo *repository.TransactionRepository
	svc  *transactions.Service
}

// newFlagSet returns a flag set with the flags shared by every command.
func newFlagSet(name string, cfg *config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding the ledger database")
	fs.StringVar(&cfg.DBName, "db", cfg.DBName, "Ledger database name")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	return fs
}

func open(cfg config.Config) *session {
	if err := cfg.Validate(); err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	format, _ := logger.ParseFormat(cfg.LogFormat)
	log := logger.NewWithOptions(os.Stderr, format, level)
	ctx := logger.WithContext(context.Background(), log)

	db := kvstore.New(cfg.StoreConfig())
	if err := db.Open(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger")
	}

	repo := repository.NewTransactionRepository(db)
	return &session{
		ctx:  ctx,
		cfg:  cfg,
		log:  log,
		db:   db,
		repo: repo,
		svc:  transactions.NewService(repo),
	}
}

func (s *session) close() {
	if err := s.db.Close(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close ledger")
	}
}

func (s *session) fatal(err error, msg string) {
	s.close()
	s.log.Fatal().Err(err).Msg(msg)
}

func runAdd(cfg config.Config) {
	fs := newFlagSet("add", &cfg)
	txType := fs.String("type", "outcome", "Transaction type: income or outcome")
	value := fs.String("value", "", "Amount, e.g. 12.50")
	currency := fs.String("currency", string(domain.USD), "Currency code")
	description := fs.String("description", "", "Description")
	date := fs.String("date", time.Now().Format(domain.DateFormat), "Date as YYYY-MM-DD")
	fs.Parse(os.Args[2:])

	s := open(cfg)
	defer s.close()

	in, err := createInput(*txType, *value, *currency, *description, *date)
	if err != nil {
		s.fatal(err, "Invalid transaction")
	}

	t, err := s.svc.CreateTransaction(s.ctx, in)
	if err != nil {
		s.fatal(err, "Failed to add transaction")
	}

	printTransaction(t)
}

func runList(cfg config.Config) {
	fs := newFlagSet("list", &cfg)
	fs.Parse(os.Args[2:])

	s := open(cfg)
	defer s.close()

	list, err := s.svc.GetAllTransactions(s.ctx)
	if err != nil {
		s.fatal(err, "Failed to list transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(list))
	income, outcome := decimal.Zero, decimal.Zero
	for i, t := range list {
		fmt.Printf("\n%d. %s\n", i+1, t.Description())
		fmt.Printf("   ID:     %s\n", t.ID())
		fmt.Printf("   Date:   %s\n", t.Date().Format(domain.DateFormat))
		fmt.Printf("   Type:   %s\n", t.Type())
		fmt.Printf("   Amount: %s\n", t.Amount().Format())

		if t.Type() == domain.Income {
			income = income.Add(t.Amount().Value())
		} else {
			outcome = outcome.Add(t.Amount().Value())
		}
	}

	fmt.Printf("\nIncome:  %s\n", income.StringFixed(2))
	fmt.Printf("Outcome: %s\n", outcome.StringFixed(2))
	fmt.Printf("Balance: %s\n\n", income.Sub(outcome).StringFixed(2))
}

func runShow(cfg config.Config) {
	fs := newFlagSet("show", &cfg)
	id := fs.String("id", "", "Transaction ID")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log := logger.New()
		log.Fatal().Msg("Error: --id is required")
	}

	s := open(cfg)
	defer s.close()

	t, err := s.svc.GetTransactionByID(s.ctx, *id)
	if err != nil {
		s.fatal(err, "Failed to get transaction")
	}

	printTransaction(t)
}

func runUpdate(cfg config.Config) {
	fs := newFlagSet("update", &cfg)
	id := fs.String("id", "", "Transaction ID")
	txType := fs.String("type", "", "New type: income or outcome")
	value := fs.String("value", "", "New amount")
	currency := fs.String("currency", "", "New currency code")
	description := fs.String("description", "", "New description")
	date := fs.String("date", "", "New date as YYYY-MM-DD")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log := logger.New()
		log.Fatal().Msg("Error: --id is required")
	}

	// Only flags given on the command line become part of the patch, so
	// -description "" still reaches validation.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	s := open(cfg)
	defer s.close()

	patch, err := buildPatch(set, *txType, *value, *currency, *description, *date)
	if err != nil {
		s.fatal(err, "Invalid update")
	}
	if patch.IsEmpty() {
		s.log.Warn().Str("transaction_id", *id).Msg("No fields given, saving the transaction unchanged")
	}

	t, err := s.svc.UpdateTransaction(s.ctx, *id, patch)
	if err != nil {
		s.fatal(err, "Failed to update transaction")
	}

	printTransaction(t)
}

func runDelete(cfg config.Config) {
	fs := newFlagSet("delete", &cfg)
	id := fs.String("id", "", "Transaction ID")
	fs.Parse(os.Args[2:])

	if *id == "" {
		log := logger.New()
		log.Fatal().Msg("Error: --id is required")
	}

	s := open(cfg)
	defer s.close()

	if err := s.svc.DeleteTransaction(s.ctx, *id); err != nil {
		s.fatal(err, "Failed to delete transaction")
	}

	fmt.Printf("Deleted transaction %s\n", *id)
}

func runBackup(cfg config.Config) {
	fs := newFlagSet("backup", &cfg)
	fs.StringVar(&cfg.BackupBucket, "bucket", cfg.BackupBucket, "GCS bucket name")
	fs.Parse(os.Args[2:])

	s := open(cfg)
	defer s.close()

	svc, objects := s.backupService()
	defer objects.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	name, err := svc.Backup(ctx)
	if err != nil {
		s.fatal(err, "Backup failed")
	}

	fmt.Printf("Snapshot written to gs://%s/%s\n", cfg.BackupBucket, name)
}

func runRestore(cfg config.Config) {
	fs := newFlagSet("restore", &cfg)
	fs.StringVar(&cfg.BackupBucket, "bucket", cfg.BackupBucket, "GCS bucket name")
	snapshot := fs.String("snapshot", "", "Snapshot object name (see 'cli snapshots')")
	fs.Parse(os.Args[2:])

	if *snapshot == "" {
		log := logger.New()
		log.Fatal().Msg("Error: --snapshot is required")
	}

	s := open(cfg)
	defer s.close()

	svc, objects := s.backupService()
	defer objects.Close()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	n, err := svc.Restore(ctx, *snapshot)
	if err != nil {
		s.fatal(err, "Restore failed")
	}

	fmt.Printf("Restored %d transactions from %s\n", n, *snapshot)
}

func runSnapshots(cfg config.Config) {
	fs := newFlagSet("snapshots", &cfg)
	fs.StringVar(&cfg.BackupBucket, "bucket", cfg.BackupBucket, "GCS bucket name")
	fs.Parse(os.Args[2:])

	s := open(cfg)
	defer s.close()

	svc, objects := s.backupService()
	defer objects.Close()

	list, err := svc.List(s.ctx)
	if err != nil {
		s.fatal(err, "Failed to list snapshots")
	}

	fmt.Printf("\n=== Snapshots in gs://%s (%d) ===\n", cfg.BackupBucket, len(list))
	for _, o := range list {
		fmt.Printf("%s  %8d bytes  %s\n", o.Created.Format(time.RFC3339), o.Size, o.Name)
	}
	fmt.Println()
}

func (s *session) backupService() (*backup.Service, *backup.GCSStore) {
	if s.cfg.BackupBucket == "" {
		s.fatal(fmt.Errorf("set --bucket or %s", config.EnvBackupBucket), "No backup bucket configured")
	}

	objects, err := backup.NewGCSStore(s.ctx, s.cfg.BackupBucket, s.cfg.BackupEndpoint)
	if err != nil {
		s.fatal(err, "Failed to create snapshot store")
	}

	return backup.NewService(objects, s.repo, s.repo, s.cfg.DBName), objects
}

func printTransaction(t *domain.Transaction) {
	fmt.Println("\n=== Transaction ===")
	fmt.Printf("ID:          %s\n", t.ID())
	fmt.Printf("Type:        %s\n", t.Type())
	fmt.Printf("Amount:      %s\n", t.Amount().Format())
	fmt.Printf("Description: %s\n", t.Description())
	fmt.Printf("Date:        %s\n", t.Date().Format(domain.DateFormat))
	fmt.Println()
}
