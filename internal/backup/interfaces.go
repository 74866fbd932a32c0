package backup

import (
	"context"
	"time"

	"github.com/dvloznov/pocket-ledger/internal/infra/repository"
)

// ObjectStore is where snapshots are kept.
type ObjectStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ObjectInfo describes one stored snapshot.
type ObjectInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// RecordSource yields the at-rest transaction records to export.
type RecordSource interface {
	Records(ctx context.Context) ([]repository.TransactionRecord, error)
}
