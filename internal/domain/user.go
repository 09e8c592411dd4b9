package domain

// User Model, the authenticable identity behind every account
type User struct {
	ID          uint      `gorm:"primaryKey"`                                  // Primary key
	Username    string    `gorm:"size:255;uniqueIndex;not null"`               // Unique, case-sensitive username
	Password    string    `gorm:"not null"`                                    // bcrypt hash, never projected
	IsMerchant  bool      `gorm:"not null;default:false"`                      // Merchant role flag
	IsCustomer  bool      `gorm:"not null;default:false"`                      // Customer role flag
	IsActive    bool      `gorm:"not null;default:true"`                       // Inactive users cannot authenticate
	IsSuperuser bool      `gorm:"not null;default:false"`                      // Administrator, holds no role flag
	Merchant    *Merchant `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // Merchant account, if any
	Customer    *Customer `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"` // Customer account, if any
}

// IsStaff reports whether the user may perform administrative writes
func (u *User) IsStaff() bool {
	return u != nil && u.IsSuperuser
}

// Role returns the account kind this identity owns, if any
func (u *User) Role() (AccountKind, bool) {
	switch {
	case u == nil:
		return "", false
	case u.IsMerchant:
		return KindMerchant, true
	case u.IsCustomer:
		return KindCustomer, true
	}
	return "", false
}
