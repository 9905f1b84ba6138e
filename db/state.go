package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cosmos/wasm-indexer/types"
)

// GetIndexerState loads the singleton state row. Returns
// types.ErrStateNotInitialized when it does not exist.
func (s *Store) GetIndexerState(ctx context.Context) (*IndexerState, error) {
	var state IndexerState
	err := s.db.WithContext(ctx).
		Where("id = ?", indexerStateID).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrStateNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// EnsureIndexerState creates the singleton state row if it does not exist
// and returns it.
func (s *Store) EnsureIndexerState(ctx context.Context, chainID string) (*IndexerState, error) {
	state := IndexerState{ID: indexerStateID, ChainID: chainID}
	err := s.db.WithContext(ctx).
		Where(IndexerState{ID: indexerStateID}).
		FirstOrCreate(&state).Error
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// AdvanceWatermark raises the exported-wasm and latest-block pointers to at
// least height/timeMs. The update is monotonic: re-processing an older
// range never moves a pointer backwards. The singleton row must exist.
func (s *Store) AdvanceWatermark(ctx context.Context, height, timeMs uint64) (*IndexerState, error) {
	var state IndexerState

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ?", indexerStateID).First(&state).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrStateNotInitialized
		}
		if err != nil {
			return err
		}

		if height > state.LastWasmBlockHeightExported {
			state.LastWasmBlockHeightExported = height
		}
		if height > state.LatestBlockHeight {
			state.LatestBlockHeight = height
		}
		if timeMs > state.LatestBlockTimeUnixMs {
			state.LatestBlockTimeUnixMs = timeMs
		}

		return tx.Save(&state).Error
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}
