package account

import (
	"errors"
	"fmt"

	"billing_system/internal/domain"

	"gorm.io/gorm"
)

// UserView is the identity projection embedded in every account; the credential is never included
type UserView struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	IsMerchant  bool   `json:"is_merchant"`
	IsCustomer  bool   `json:"is_customer"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

// View is the projection returned for merchants and customers
type View struct {
	ID      uint     `json:"id"`
	User    UserView `json:"user"`
	Balance int64    `json:"balance"`
}

// NewUserView projects an identity
func NewUserView(u *domain.User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		IsMerchant:  u.IsMerchant,
		IsCustomer:  u.IsCustomer,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

// viewRow is one account joined with its identity
type viewRow struct {
	ID          uint
	UserID      uint
	Balance     int64
	Username    string
	IsMerchant  bool
	IsCustomer  bool
	IsActive    bool
	IsSuperuser bool
}

func (r viewRow) view() View {
	return View{
		ID: r.ID,
		User: UserView{
			ID:          r.UserID,
			Username:    r.Username,
			IsMerchant:  r.IsMerchant,
			IsCustomer:  r.IsCustomer,
			IsActive:    r.IsActive,
			IsSuperuser: r.IsSuperuser,
		},
		Balance: r.Balance,
	}
}

func viewQuery(tx *gorm.DB, kind domain.AccountKind) *gorm.DB {
	return tx.Table(kind.Table() + " AS a").
		Select("a.id, a.user_id, a.balance, u.username, u.is_merchant, u.is_customer, u.is_active, u.is_superuser").
		Joins("JOIN users u ON u.id = a.user_id")
}

func loadView(tx *gorm.DB, kind domain.AccountKind, id uint) (View, error) {
	var r viewRow
	res := viewQuery(tx, kind).Where("a.id = ?", id).Limit(1).Scan(&r)
	if res.Error != nil {
		return View{}, fmt.Errorf("load %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return View{}, domain.NotFound("%s %d not found", kind, id)
	}
	return r.view(), nil
}

func listViews(tx *gorm.DB, kind domain.AccountKind) ([]View, error) {
	var rows []viewRow
	if err := viewQuery(tx, kind).Order("a.id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Table(), err)
	}
	views := make([]View, len(rows))
	for i, r := range rows {
		views[i] = r.view()
	}
	return views, nil
}

// find loads the bare account row
func find(tx *gorm.DB, kind domain.AccountKind, id uint) (*domain.Account, error) {
	var acc domain.Account
	err := tx.Table(kind.Table()).Where("id = ?", id).Take(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("%s %d not found", kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", kind, err)
	}
	acc.Kind = kind
	return &acc, nil
}
