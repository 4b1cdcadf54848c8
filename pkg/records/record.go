package records

import (
	"context"
	"time"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

// Record is one saved conversation.
type Record struct {
	ID        int64          `json:"id" yaml:"-"`
	SessionID string         `json:"session_id" yaml:"session_id"`
	SavedAt   time.Time      `json:"saved_at" yaml:"saved_at"`
	Messages  []chat.Message `json:"messages" yaml:"messages"`
}

// Summary is the listing view of a record.
type Summary struct {
	ID           int64
	SessionID    string
	SavedAt      time.Time
	MessageCount int
}

type Store interface {
	Save(ctx context.Context, r Record) (int64, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	Get(ctx context.Context, id int64) (Record, bool, error)
	Close() error
}
