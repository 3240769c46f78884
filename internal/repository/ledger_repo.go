package repository

import (
	"context"

	"go-parts-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerRepository interface {
	Get(ctx context.Context) (*model.LedgerState, error)
	// Lock reads the ledger state and locks it until the end of the
	// surrounding transaction. Postings take a shared lock, month close an
	// exclusive one.
	Lock(ctx context.Context, exclusive bool) (*model.LedgerState, error)
	// Init creates the ledger state opened at period if none exists yet and
	// returns the stored state.
	Init(ctx context.Context, period model.Period) (*model.LedgerState, error)
	Save(ctx context.Context, state *model.LedgerState) error
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db}
}

func (r *ledgerRepo) Get(ctx context.Context) (*model.LedgerState, error) {
	var state model.LedgerState
	if err := r.db.WithContext(ctx).First(&state, model.LedgerStateID).Error; err != nil {
		return nil, translate(err)
	}
	return &state, nil
}

func (r *ledgerRepo) Lock(ctx context.Context, exclusive bool) (*model.LedgerState, error) {
	db := r.db.WithContext(ctx)
	if exclusive {
		db = forUpdate(db)
	} else {
		db = forShare(db)
	}

	var state model.LedgerState
	if err := db.First(&state, model.LedgerStateID).Error; err != nil {
		return nil, translate(err)
	}
	return &state, nil
}

func (r *ledgerRepo) Init(ctx context.Context, period model.Period) (*model.LedgerState, error) {
	state := model.LedgerState{
		ID:        model.LedgerStateID,
		OpenYear:  period.Year,
		OpenMonth: int(period.Month),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&state).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}

func (r *ledgerRepo) Save(ctx context.Context, state *model.LedgerState) error {
	state.ID = model.LedgerStateID
	return r.db.WithContext(ctx).Save(state).Error
}
