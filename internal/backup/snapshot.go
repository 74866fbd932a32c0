package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/infra/repository"
	"github.com/dvloznov/pocket-ledger/internal/logger"
	"github.com/dvloznov/pocket-ledger/internal/transactions"
	"github.com/google/uuid"
)

const (
	// SnapshotPrefix is the object name prefix of every snapshot.
	SnapshotPrefix = "snapshots/"

	snapshotFormat = 1
	nameTimeFormat = "20060102T150405Z"
)

// Snapshot is the JSON document written for one backup. Transactions are
// kept in the same layout as the local store.
type Snapshot struct {
	Format       int                            `json:"format"`
	Database     string                         `json:"database"`
	CreatedAt    time.Time                      `json:"created_at"`
	Transactions []repository.TransactionRecord `json:"transactions"`
}

// Service exports the local ledger to an ObjectStore and restores it back.
// It is a one-way copy: nothing is merged with remote state.
type Service struct {
	store  ObjectStore
	source RecordSource
	repo   transactions.Repository
	dbName string
	now    func() time.Time
}

// NewService wires the snapshot service.
func NewService(store ObjectStore, source RecordSource, repo transactions.Repository, dbName string) *Service {
	return &Service{
		store:  store,
		source: source,
		repo:   repo,
		dbName: dbName,
		now:    time.Now,
	}
}

// Backup writes a snapshot of every stored transaction and returns the
// object name.
func (s *Service) Backup(ctx context.Context) (string, error) {
	records, err := s.source.Records(ctx)
	if err != nil {
		return "", fmt.Errorf("Backup: reading records: %w", err)
	}
	if records == nil {
		records = []repository.TransactionRecord{}
	}

	createdAt := s.now().UTC()
	snap := Snapshot{
		Format:       snapshotFormat,
		Database:     s.dbName,
		CreatedAt:    createdAt,
		Transactions: records,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("Backup: encoding snapshot: %w", err)
	}

	name := fmt.Sprintf("%s%s-%s.json", SnapshotPrefix, createdAt.Format(nameTimeFormat), uuid.New().String())
	if err := s.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("Backup: writing %s: %w", name, err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("snapshot", name).Int("transactions", len(records)).Msg("Snapshot written")

	return name, nil
}

// Restore reads a snapshot and saves every transaction in it, keeping the
// original identities. Records are all decoded before the first write, so a
// corrupt snapshot changes nothing.
func (s *Service) Restore(ctx context.Context, name string) (int, error) {
	data, err := s.store.Get(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("Restore: reading %s: %w", name, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("Restore: decoding %s: %w", name, err)
	}
	if snap.Format != snapshotFormat {
		return 0, fmt.Errorf("Restore: unsupported snapshot format %d", snap.Format)
	}

	mapper := repository.TransactionMapper{}
	decoded := make([]*domain.Transaction, 0, len(snap.Transactions))
	for _, rec := range snap.Transactions {
		t, err := mapper.ToDomain(rec)
		if err != nil {
			return 0, fmt.Errorf("Restore: %w", err)
		}
		decoded = append(decoded, t)
	}

	for i, t := range decoded {
		if _, err := s.repo.Save(ctx, t); err != nil {
			return i, fmt.Errorf("Restore: saving %s: %w", t.ID(), err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info().Str("snapshot", name).Int("transactions", len(decoded)).Msg("Snapshot restored")

	return len(decoded), nil
}

// List returns the stored snapshots, newest first.
func (s *Service) List(ctx context.Context) ([]ObjectInfo, error) {
	objects, err := s.store.List(ctx, SnapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Name > objects[j].Name
	})
	return objects, nil
}
