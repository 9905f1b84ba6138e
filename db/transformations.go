package db

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/cosmos/wasm-indexer/types"
)

// UpsertTransformations persists derived rows with upsert semantics on
// (contract_address, name, block_height); a conflict overwrites the value.
// Persisted rows are joined to their contracts the same way state events
// are.
func (s *Store) UpsertTransformations(ctx context.Context, transformations []types.Transformation) ([]WasmStateEventTransformation, error) {
	if len(transformations) == 0 {
		return nil, nil
	}

	rows := make([]WasmStateEventTransformation, 0, len(transformations))
	for _, t := range transformations {
		rows = append(rows, WasmStateEventTransformation{
			ContractAddress: t.ContractAddress,
			Name:            t.Name,
			BlockHeight:     t.BlockHeight,
			Value:           t.Value,
		})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "contract_address"},
				{Name: "name"},
				{Name: "block_height"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}

	contracts := make(map[string]Contract)
	kept := make([]WasmStateEventTransformation, 0, len(rows))
	for _, row := range rows {
		contract, ok := contracts[row.ContractAddress]
		if !ok {
			loaded, err := s.GetContract(ctx, row.ContractAddress)
			if err != nil {
				return nil, err
			}
			if loaded == nil {
				s.logger.Error("dropping transformation for vanished contract", "address", row.ContractAddress, "name", row.Name, "height", row.BlockHeight)
				continue
			}
			contract = *loaded
			contracts[row.ContractAddress] = contract
		}

		joined := contract
		row.Contract = &joined
		kept = append(kept, row)
	}

	return kept, nil
}
