package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/akyairhashvil/timekeep/internal/models"
)

type TestDataBuilder struct {
	t   *testing.T
	ctx context.Context
	db  *Database
}

func NewTestDataBuilder(t *testing.T) *TestDataBuilder {
	t.Helper()
	ctx := context.Background()
	db := setupTestDB(t, ctx)
	return &TestDataBuilder{t: t, ctx: ctx, db: db}
}

func (b *TestDataBuilder) WithProject(p models.Project) *TestDataBuilder {
	b.t.Helper()
	if _, err := b.db.UpsertProject(b.ctx, p); err != nil {
		b.t.Fatalf("UpsertProject failed: %v", err)
	}
	return b
}

func (b *TestDataBuilder) WithSealedEntry(owner string, projectID int64, start time.Time, d time.Duration, source models.EntrySource, overrun bool) *TestDataBuilder {
	b.t.Helper()
	err := b.db.WithTx(b.ctx, func(tx *sql.Tx) error {
		id, err := insertEntryTx(b.ctx, tx, models.TimeEntry{OwnerID: owner, ProjectID: projectID, StartedAt: start, Source: source})
		if err != nil {
			return err
		}
		_, err = sealEntryTx(b.ctx, tx, id, Seal{StoppedAt: start.Add(d), Source: source, IsOverrun: overrun})
		return err
	})
	if err != nil {
		b.t.Fatalf("WithSealedEntry failed: %v", err)
	}
	return b
}

func (b *TestDataBuilder) Build() *Database {
	return b.db
}
