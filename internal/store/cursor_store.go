package store

import (
	"context"
	"fmt"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

// Cursor is the resumption checkpoint of the chain mirror
type Cursor struct {
	Chain             domain.Chain
	LastBlock         uint64
	ContinuationToken *string
}

// CursorStore defines the interface for storing and retrieving the mirror cursor
type CursorStore interface {
	// Load returns the persisted cursor, or one positioned at the configured start block
	Load(ctx context.Context, chain domain.Chain) (Cursor, error)
	// Save upserts the cursor; when tx is not nil the write joins that transaction
	Save(ctx context.Context, cursor Cursor, tx Store) error
	// Reset unconditionally moves the cursor of a chain to toBlock
	Reset(ctx context.Context, chain domain.Chain, toBlock uint64) error
}

type cursorStore struct {
	store      Store
	startBlock uint64
}

// NewCursorStore creates a new cursor store. A chain without a saved cursor starts
// at startBlock.
func NewCursorStore(store Store, startBlock uint64) CursorStore {
	return &cursorStore{store: store, startBlock: startBlock}
}

// Load returns the persisted cursor of a chain
func (c *cursorStore) Load(ctx context.Context, chain domain.Chain) (Cursor, error) {
	row, err := c.store.GetCursor(ctx, chain)
	if err != nil {
		return Cursor{}, fmt.Errorf("failed to load cursor: %w", err)
	}
	if row == nil {
		return Cursor{Chain: chain, LastBlock: c.startBlock}, nil
	}
	return Cursor{
		Chain:             row.Chain,
		LastBlock:         row.LastBlock,
		ContinuationToken: row.ContinuationToken,
	}, nil
}

// Save upserts the cursor
func (c *cursorStore) Save(ctx context.Context, cursor Cursor, tx Store) error {
	target := c.store
	if tx != nil {
		target = tx
	}
	return target.SaveCursor(ctx, schema.IndexerCursor{
		Chain:             cursor.Chain,
		LastBlock:         cursor.LastBlock,
		ContinuationToken: cursor.ContinuationToken,
	})
}

// Reset unconditionally moves the cursor of a chain
func (c *cursorStore) Reset(ctx context.Context, chain domain.Chain, toBlock uint64) error {
	return c.store.SaveCursor(ctx, schema.IndexerCursor{
		Chain:     chain,
		LastBlock: toBlock,
	})
}
