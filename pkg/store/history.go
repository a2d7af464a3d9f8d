package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Revision is one saved version of the configuration document.
type Revision struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	// Summary describes the change that produced the revision.
	Summary  string `json:"summary,omitempty"`
	Document []byte `json:"document"`
}

// History records saved documents.
type History interface {
	// Record stores rev. An empty ID or zero timestamp is filled in.
	Record(ctx context.Context, rev *Revision) error
	// Revisions returns revisions newest first, without their documents.
	Revisions(ctx context.Context) ([]Revision, error)
	// Revision returns one revision including its document.
	Revision(ctx context.Context, id string) (*Revision, error)
	Close() error
}

func prepareRevision(rev *Revision) {
	if rev.ID == "" {
		rev.ID = uuid.NewString()
	}
	if rev.Timestamp.IsZero() {
		rev.Timestamp = time.Now().UTC()
	}
}

// MakeRevisionKey orders revisions by time, then id.
func MakeRevisionKey(rev *Revision) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", revisionPrefix, rev.Timestamp.UnixNano(), rev.ID))
}

// MakeRevisionIndexKey maps a revision id to its revision key.
func MakeRevisionIndexKey(id string) []byte {
	return []byte(revisionIndexPrefix + id)
}

const (
	revisionPrefix      = "revisions/"
	revisionIndexPrefix = "revision-ids/"
)
