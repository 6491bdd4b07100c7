package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent claims the event id. It returns false when the id was
	// already recorded; the insert is a single atomic statement, so two
	// racing deliveries get exactly one true between them.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	// ClaimUnprocessed takes over dispatch of an existing unprocessed row.
	// The update only matches when no other delivery holds a claim newer
	// than staleBefore, so a redelivery and an in-flight dispatch cannot
	// both proceed.
	ClaimUnprocessed(ctx context.Context, db *gorm.DB, id snowflake.ID, now, staleBefore time.Time) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error
}
