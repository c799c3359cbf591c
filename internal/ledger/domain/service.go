package domain

import (
	"context"

	"gorm.io/gorm"
)

// Writer appends terminal payment outcomes to the ledger.
type Writer interface {
	// Record writes the entry inside tx. Non-terminal statuses and
	// duplicates are skipped; recorded reports whether a row was added.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (recorded bool, err error)
}
