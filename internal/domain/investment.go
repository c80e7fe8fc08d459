package domain

import "time"

// AssetType is the closed set of investment asset classes.
type AssetType string

const (
	AssetStocks  AssetType = "stocks"
	AssetREIT    AssetType = "reit"
	AssetCrypto  AssetType = "crypto"
	AssetFunds   AssetType = "funds"
	AssetSavings AssetType = "savings"
	AssetOther   AssetType = "other"
)

// Valid reports whether the asset type is one of the closed set.
func (a AssetType) Valid() bool {
	switch a {
	case AssetStocks, AssetREIT, AssetCrypto, AssetFunds, AssetSavings, AssetOther:
		return true
	}
	return false
}

// Investment is a position held by a user: a quantity of an asset bought at
// a price, tracked against its current price and a target return.
type Investment struct {
	ID            string
	UserID        string
	Name          string
	AssetType     AssetType
	Amount        float64 // quantity held, > 0
	PurchasePrice float64 // unit price at purchase, > 0
	CurrentPrice  float64 // latest known unit price, > 0
	PurchaseDate  time.Time
	TargetReturn  float64 // desired return in percent
	Notes         string
	CreatedAt     time.Time
	DeletedAt     *time.Time
}

// Deleted reports whether the investment has been soft-deleted.
func (v *Investment) Deleted() bool {
	return v.DeletedAt != nil
}

// Invested returns the total amount paid for the position.
func (v *Investment) Invested() float64 {
	return v.Amount * v.PurchasePrice
}

// CurrentValue returns the position's value at the current price.
func (v *Investment) CurrentValue() float64 {
	return v.Amount * v.CurrentPrice
}
