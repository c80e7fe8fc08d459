package domain

import "time"

// Installment is a recurring monthly commitment from an installment purchase.
type Installment struct {
	ID           string
	UserID       string
	Description  string
	MonthlyValue float64 // > 0
	TotalMonths  int     // > 0
	DateAdded    time.Time
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

// Deleted reports whether the installment has been soft-deleted.
func (i *Installment) Deleted() bool {
	return i.DeletedAt != nil
}
