package model

import "time"

// LedgerStateID is the primary key of the single ledger state row.
const LedgerStateID uint = 1

// LedgerState records which month is currently open for postings. Every month
// before it is finalized.
type LedgerState struct {
	ID              uint       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	OpenYear        int        `gorm:"not null" json:"open_year"`
	OpenMonth       int        `gorm:"not null" json:"open_month"`
	LastFinalizedAt *time.Time `json:"last_finalized_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (s *LedgerState) OpenPeriod() Period {
	return Period{Year: s.OpenYear, Month: time.Month(s.OpenMonth)}
}

// Advance closes the open month and opens the next one.
func (s *LedgerState) Advance(at time.Time) {
	next := s.OpenPeriod().Next()
	s.OpenYear = next.Year
	s.OpenMonth = int(next.Month)
	s.LastFinalizedAt = &at
}
