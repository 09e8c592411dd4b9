package domain

// Transaction Model, one row per completed purchase
type Transaction struct {
	ID         uint  `gorm:"primaryKey"`           // Primary key
	CustomerID uint  `gorm:"index;not null"`       // Paying customer account
	MerchantID uint  `gorm:"index;not null"`       // Credited merchant account
	Amount     int64 `gorm:"not null"`             // Purchase price
	CreatedAt  int64 `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
