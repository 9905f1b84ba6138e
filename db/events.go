package db

import (
	"context"

	"gorm.io/gorm/clause"
)

// UpsertStateEvents bulk-inserts state events. On a
// (block_height, contract_address, key) conflict the value, parsed value
// and delete flag are overwritten, so re-exporting a block collapses to the
// latest write. Each persisted row is joined to its contract from the given
// in-memory set; on a miss a single lookup is performed and the set is
// extended. Rows whose contract is still absent are dropped.
func (s *Store) UpsertStateEvents(ctx context.Context, rows []WasmStateEvent, contracts map[string]Contract) ([]WasmStateEvent, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "block_height"},
				{Name: "contract_address"},
				{Name: "key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"value", "value_json", "delete"}),
		}).
		Create(&rows).Error
	if err != nil {
		return nil, err
	}

	return s.joinContracts(ctx, rows, contracts)
}

// GetStateEvents loads a contract's state events ordered by height then key.
func (s *Store) GetStateEvents(ctx context.Context, address string) ([]WasmStateEvent, error) {
	var rows []WasmStateEvent
	err := s.db.WithContext(ctx).
		Where("contract_address = ?", address).
		Order("block_height").
		Order("key").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) joinContracts(ctx context.Context, rows []WasmStateEvent, contracts map[string]Contract) ([]WasmStateEvent, error) {
	kept := make([]WasmStateEvent, 0, len(rows))
	for _, row := range rows {
		contract, ok := contracts[row.ContractAddress]
		if !ok {
			loaded, err := s.GetContract(ctx, row.ContractAddress)
			if err != nil {
				return nil, err
			}
			if loaded == nil {
				s.logger.Error("dropping state event for vanished contract", "address", row.ContractAddress, "height", row.BlockHeight)
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
