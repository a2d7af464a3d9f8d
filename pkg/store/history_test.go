package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/types"
)

func historyImplementations(t *testing.T, limit int) map[string]History {
	t.Helper()
	badgerHistory, err := OpenBadgerHistory(filepath.Join(t.TempDir(), RevisionsDir), limit, log.NewTestLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = badgerHistory.Close() })
	return map[string]History{
		"memory": NewMemoryHistory(limit),
		"badger": badgerHistory,
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for name, h := range historyImplementations(t, 0) {
		t.Run(name, func(t *testing.T) {
			for i, summary := range []string{"first", "second", "third"} {
				rev := &Revision{Summary: summary, Timestamp: base.Add(time.Duration(i) * time.Minute), Document: []byte(summary)}
				require.NoError(t, h.Record(ctx, rev))
				assert.NotEmpty(t, rev.ID)
			}

			revs, err := h.Revisions(ctx)
			require.NoError(t, err)
			require.Len(t, revs, 3)
			assert.Equal(t, "third", revs[0].Summary)
			assert.Equal(t, "first", revs[2].Summary)

			got, err := h.Revision(ctx, revs[1].ID)
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), got.Document)

			_, err = h.Revision(ctx, "missing")
			assert.True(t, errors.Is(err, types.ErrNotFound))
		})
	}
}

func TestHistoryRetentionLimit(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for name, h := range historyImplementations(t, 2) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for i := 0; i < 4; i++ {
				rev := &Revision{Timestamp: base.Add(time.Duration(i) * time.Second), Document: []byte{byte(i)}}
				require.NoError(t, h.Record(ctx, rev))
				ids = append(ids, rev.ID)
			}

			revs, err := h.Revisions(ctx)
			require.NoError(t, err)
			require.Len(t, revs, 2)
			assert.Equal(t, ids[3], revs[0].ID)
			assert.Equal(t, ids[2], revs[1].ID)

			_, err = h.Revision(ctx, ids[0])
			assert.True(t, errors.Is(err, types.ErrNotFound))
		})
	}
}
