package db

import (
	"context"

	"gorm.io/gorm/clause"
)

// CodeIDsForKeys resolves symbolic code-key names to the code IDs recorded
// under them, implementing wasm.CodeRegistry.
func (s *Store) CodeIDsForKeys(ctx context.Context, keys ...string) ([]uint64, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var rows []WasmCodeKeyID
	err := s.db.WithContext(ctx).
		Where("code_key IN ?", keys).
		Order("code_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]uint64, 0, len(rows))
	seen := make(map[uint64]struct{}, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.CodeID]; ok {
			continue
		}
		seen[row.CodeID] = struct{}{}
		out = append(out, row.CodeID)
	}
	return out, nil
}

// UpsertCodeKeyIDs records code-key to code-ID pairs, ignoring duplicates.
// The wasm-code tracker worker is the writer.
func (s *Store) UpsertCodeKeyIDs(ctx context.Context, pairs []WasmCodeKeyID) error {
	if len(pairs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "code_key"},
				{Name: "code_id"},
			},
			DoNothing: true,
		}).
		Create(&pairs).Error
}
