package db

import (
	"context"

	"gorm.io/gorm/clause"
)

// EnsureBlocks inserts a row for every block height in blocks that does not
// exist yet. Existing rows keep their original time.
func (s *Store) EnsureBlocks(ctx context.Context, blocks []Block) error {
	if len(blocks) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "height"}},
			DoNothing: true,
		}).
		Create(&blocks).Error
}
