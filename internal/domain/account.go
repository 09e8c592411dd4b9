package domain

import "fmt"

// AccountKind distinguishes the two account tables
type AccountKind string

const (
	KindMerchant AccountKind = "merchant"
	KindCustomer AccountKind = "customer"
)

// ParseAccountKind validates a kind name
func ParseAccountKind(s string) (AccountKind, error) {
	switch AccountKind(s) {
	case KindMerchant, KindCustomer:
		return AccountKind(s), nil
	}
	return "", fmt.Errorf("unknown account kind %q", s)
}

// Table returns the table backing the kind
func (k AccountKind) Table() string {
	return string(k) + "s"
}

// Merchant Model
type Merchant struct {
	ID      uint  `gorm:"primaryKey"`         // Primary key
	UserID  uint  `gorm:"uniqueIndex"`        // Foreign key to User, one-to-one
	Balance int64 `gorm:"not null;default:0"` // Balance in whole currency units
}

// Customer Model, same shape as Merchant
type Customer struct {
	ID      uint  `gorm:"primaryKey"`         // Primary key
	UserID  uint  `gorm:"uniqueIndex"`        // Foreign key to User, one-to-one
	Balance int64 `gorm:"not null;default:0"` // Balance in whole currency units
}

// Account is a kind-tagged row read from either account table
type Account struct {
	ID      uint        // Primary key within its table
	UserID  uint        // Owning identity
	Balance int64       // Current balance
	Kind    AccountKind `gorm:"-"` // Table the row was read from
}
