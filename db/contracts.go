package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cosmos/wasm-indexer/types"
	"github.com/cosmos/wasm-indexer/utils"
)

// UpsertContracts writes contract rows from lifecycle events. On address
// conflict the metadata fields are updated; instantiation fields keep the
// values of the first insert.
func (s *Store) UpsertContracts(ctx context.Context, events []types.ParsedWasmContractEvent) error {
	if len(events) == 0 {
		return nil
	}

	contracts := make([]Contract, 0, len(events))
	for _, event := range events {
		contracts = append(contracts, Contract{
			Address:                       event.Address,
			CodeID:                        event.CodeID,
			Admin:                         event.Admin,
			Creator:                       event.Creator,
			Label:                         event.Label,
			InstantiatedAtBlockHeight:     event.BlockHeight,
			InstantiatedAtBlockTimeUnixMs: event.BlockTimeUnixMs,
			InstantiatedAtBlockTimestamp:  utils.TimeFromUnixMs(event.BlockTimeUnixMs),
		})
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_id", "admin", "creator", "label"}),
		}).
		Create(&contracts).Error
}

// EnsureContracts inserts contract rows that do not exist yet and leaves
// existing rows untouched. Used to back-fill contract existence from state
// events before the lifecycle event has been seen.
func (s *Store) EnsureContracts(ctx context.Context, contracts []Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoNothing: true,
		}).
		Create(&contracts).Error
}

// GetContracts loads the contract rows for the given addresses.
func (s *Store) GetContracts(ctx context.Context, addresses []string) ([]Contract, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	var contracts []Contract
	err := s.db.WithContext(ctx).
		Where("address IN ?", addresses).
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// GetContract loads one contract row, returning nil when it does not exist.
func (s *Store) GetContract(ctx context.Context, address string) (*Contract, error) {
	var contract Contract
	err := s.db.WithContext(ctx).
		Where("address = ?", address).
		First(&contract).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

// UpdateContractCodeIDs sets the code ID of the given contracts, leaving
// every other column untouched.
func (s *Store) UpdateContractCodeIDs(ctx context.Context, codeIDs map[string]uint64) error {
	if len(codeIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for address, codeID := range codeIDs {
			err := tx.Model(&Contract{}).
				Where("address = ?", address).
				Update("code_id", codeID).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
