// Package account manages merchant and customer accounts. Both kinds share one
// implementation parameterised by domain.AccountKind.
package account

import (
	"context"
	"time"

	"billing_system/internal/authz"
	"billing_system/internal/domain"
	"billing_system/internal/events"
	"billing_system/internal/identity"
	"billing_system/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UpdateInput holds the writable fields of an account. Balance is required.
type UpdateInput struct {
	Balance  *int64
	IsActive *bool
}

// Service implements account CRUD with cached reads
type Service struct {
	db        *gorm.DB
	rdb       *redis.Client
	ttl       time.Duration
	publisher events.Publisher
}

// NewService builds the account service. rdb may be nil to disable caching.
func NewService(db *gorm.DB, rdb *redis.Client, ttl time.Duration, publisher events.Publisher) *Service {
	return &Service{db: db, rdb: rdb, ttl: ttl, publisher: publisher}
}

// List returns every account of the kind; an empty result is not an error
func (s *Service) List(ctx context.Context, kind domain.AccountKind) ([]View, error) {
	key := utils.AccountListKey(string(kind))
	var views []View
	if found, err := utils.GetCache(ctx, s.rdb, key, &views); err == nil && found {
		return views, nil
	}
	views, err := listViews(s.db.WithContext(ctx), kind)
	if err != nil {
		return nil, err
	}
	_ = utils.SetCache(ctx, s.rdb, key, views, s.ttl)
	return views, nil
}

// Get returns one account
func (s *Service) Get(ctx context.Context, kind domain.AccountKind, id uint) (View, error) {
	key := utils.AccountKey(string(kind), id)
	var v View
	if found, err := utils.GetCache(ctx, s.rdb, key, &v); err == nil && found {
		return v, nil
	}
	v, err := loadView(s.db.WithContext(ctx), kind, id)
	if err != nil {
		return View{}, err
	}
	_ = utils.SetCache(ctx, s.rdb, key, v, s.ttl)
	return v, nil
}

// Create provisions an identity of the kind's role and returns its new account.
// Only administrators may create accounts.
func (s *Service) Create(ctx context.Context, caller *domain.User, kind domain.AccountKind, username, password string) (View, error) {
	if err := authz.StaffOrReadOnly(caller, false); err != nil {
		return View{}, err
	}
	var v View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := identity.Provision(tx, identity.InputForKind(kind, username, password))
		if err != nil {
			return err
		}
		v = View{User: NewUserView(user)}
		switch {
		case user.Merchant != nil:
			v.ID, v.Balance = user.Merchant.ID, user.Merchant.Balance
		case user.Customer != nil:
			v.ID, v.Balance = user.Customer.ID, user.Customer.Balance
		}
		return nil
	})
	if err != nil {
		s.logFailure("create", kind, 0, err)
		return View{}, err
	}
	s.invalidate(ctx, kind, v.ID)
	events.Emit(ctx, s.publisher, events.AccountCreated, s.event(kind, v))
	logrus.WithFields(logrus.Fields{
		"kind":       kind,
		"account_id": v.ID,
		"user_id":    v.User.ID,
		"username":   v.User.Username,
		"created_by": caller.ID,
	}).Info("Account created")
	return v, nil
}

// Authorize checks that caller may mutate the account: not found first, then owner-or-admin
func (s *Service) Authorize(ctx context.Context, caller *domain.User, kind domain.AccountKind, id uint) error {
	acc, err := find(s.db.WithContext(ctx), kind, id)
	if err != nil {
		return err
	}
	return authz.OwnerOrAdmin(caller, acc.UserID)
}

// Update writes the balance and, for administrators, the activity flag
func (s *Service) Update(ctx context.Context, caller *domain.User, kind domain.AccountKind, id uint, in UpdateInput) (View, error) {
	var v View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := find(tx, kind, id)
		if err != nil {
			return err
		}
		if err := authz.OwnerOrAdmin(caller, acc.UserID); err != nil {
			return err
		}
		if in.IsActive != nil {
			if err := authz.Staff(caller); err != nil {
				return domain.Permission("only administrators may change is_active")
			}
		}
		if in.Balance == nil {
			return domain.Validation("balance: this field is required")
		}
		if err := tx.Table(kind.Table()).Where("id = ?", id).Update("balance", *in.Balance).Error; err != nil {
			return err
		}
		if in.IsActive != nil {
			if err := tx.Model(&domain.User{}).Where("id = ?", acc.UserID).Update("is_active", *in.IsActive).Error; err != nil {
				return err
			}
		}
		v, err = loadView(tx, kind, id)
		return err
	})
	if err != nil {
		s.logFailure("update", kind, id, err)
		return View{}, err
	}
	s.invalidate(ctx, kind, id)
	events.Emit(ctx, s.publisher, events.AccountUpdated, s.event(kind, v))
	logrus.WithFields(logrus.Fields{
		"kind":       kind,
		"account_id": id,
		"balance":    v.Balance,
		"is_active":  v.User.IsActive,
		"updated_by": caller.ID,
	}).Info("Account updated")
	return v, nil
}

// Delete removes the account and its identity
func (s *Service) Delete(ctx context.Context, caller *domain.User, kind domain.AccountKind, id uint) error {
	var v View
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		v, err = loadView(tx, kind, id)
		if err != nil {
			return err
		}
		if err := authz.OwnerOrAdmin(caller, v.User.ID); err != nil {
			return err
		}
		return identity.DeletePair(tx, v.User.ID)
	})
	if err != nil {
		s.logFailure("delete", kind, id, err)
		return err
	}
	s.invalidate(ctx, kind, id)
	events.Emit(ctx, s.publisher, events.AccountDeleted, s.event(kind, v))
	logrus.WithFields(logrus.Fields{
		"kind":       kind,
		"account_id": id,
		"user_id":    v.User.ID,
		"deleted_by": caller.ID,
	}).Info("Account deleted")
	return nil
}

// Invalidate drops cached projections of the given accounts and of the listings containing them
func Invalidate(ctx context.Context, rdb *redis.Client, kind domain.AccountKind, ids ...uint) {
	keys := []string{utils.AccountListKey(string(kind))}
	for _, id := range ids {
		keys = append(keys, utils.AccountKey(string(kind), id))
	}
	if err := utils.DeleteCache(ctx, rdb, keys...); err != nil {
		logrus.WithField("error", err.Error()).Warn("Cache invalidation failed")
	}
	if err := utils.DeletePrefix(ctx, rdb, utils.AdminUsersPrefix); err != nil {
		logrus.WithField("error", err.Error()).Warn("Cache invalidation failed")
	}
}

func (s *Service) invalidate(ctx context.Context, kind domain.AccountKind, id uint) {
	Invalidate(ctx, s.rdb, kind, id)
}

func (s *Service) event(kind domain.AccountKind, v View) events.AccountEvent {
	return events.AccountEvent{
		Kind:      string(kind),
		AccountID: v.ID,
		UserID:    v.User.ID,
		Username:  v.User.Username,
		Balance:   v.Balance,
	}
}

func (s *Service) logFailure(op string, kind domain.AccountKind, id uint, err error) {
	entry := logrus.WithFields(logrus.Fields{
		"op":         op,
		"kind":       kind,
		"account_id": id,
		"error":      err.Error(),
	})
	if domain.KindOf(err) != "" {
		entry.Info("Account request rejected")
		return
	}
	entry.Error("Account operation failed")
}
