// Package identity owns user records: credential hashing and verification,
// provisioning of the paired account, and deletion of the account pair.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"billing_system/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// HashCost is the bcrypt cost used for new credentials
var HashCost = bcrypt.DefaultCost

// bcrypt ignores everything past 72 bytes
const maxPasswordBytes = 72

// CreateInput describes a new identity
type CreateInput struct {
	Username   string
	Password   string
	IsMerchant bool
	IsCustomer bool
	Superuser  bool
}

// InputForKind builds the input of an identity holding the given account kind
func InputForKind(kind domain.AccountKind, username, password string) CreateInput {
	return CreateInput{
		Username:   username,
		Password:   password,
		IsMerchant: kind == domain.KindMerchant,
		IsCustomer: kind == domain.KindCustomer,
	}
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return domain.Validation("username: this field may not be blank")
	}
	if in.Password == "" {
		return domain.Validation("password: this field may not be blank")
	}
	if len(in.Password) > maxPasswordBytes {
		return domain.Validation("password: must be at most %d bytes", maxPasswordBytes)
	}
	switch {
	case in.Superuser && (in.IsMerchant || in.IsCustomer):
		return domain.Validation("superuser must not hold a merchant or customer role")
	case in.Superuser:
		return nil
	case in.IsMerchant && in.IsCustomer:
		return domain.Validation("identity must be either merchant or customer, not both")
	case !in.IsMerchant && !in.IsCustomer:
		return domain.Validation("identity must be either merchant or customer")
	}
	return nil
}

// Provision creates the identity and, for role holders, its account with balance 0.
// Both rows are written through tx, so the pair commits or rolls back together.
func Provision(tx *gorm.DB, in CreateInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var taken int64
	if err := tx.Model(&domain.User{}).Where("username = ?", in.Username).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken > 0 {
		return nil, domain.Validation("a user with that username already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Username:    in.Username,
		Password:    string(hash),
		IsMerchant:  in.IsMerchant,
		IsCustomer:  in.IsCustomer,
		IsActive:    true,
		IsSuperuser: in.Superuser,
	}
	if err := tx.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Validation("a user with that username already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	switch {
	case user.IsMerchant:
		var m domain.Merchant
		if err := tx.Where(domain.Merchant{UserID: user.ID}).FirstOrCreate(&m).Error; err != nil {
			return nil, fmt.Errorf("provision merchant: %w", err)
		}
		user.Merchant = &m
	case user.IsCustomer:
		var c domain.Customer
		if err := tx.Where(domain.Customer{UserID: user.ID}).FirstOrCreate(&c).Error; err != nil {
			return nil, fmt.Errorf("provision customer: %w", err)
		}
		user.Customer = &c
	}
	return &user, nil
}

// DeletePair removes the identity together with whichever account it owns
func DeletePair(tx *gorm.DB, userID uint) error {
	if err := tx.Where("user_id = ?", userID).Delete(&domain.Merchant{}).Error; err != nil {
		return fmt.Errorf("delete merchant: %w", err)
	}
	if err := tx.Where("user_id = ?", userID).Delete(&domain.Customer{}).Error; err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if err := tx.Delete(&domain.User{}, userID).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Service exposes identity operations over a database handle
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create provisions an identity in its own transaction
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = Provision(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     user.ID,
		"username":    user.Username,
		"is_merchant": user.IsMerchant,
		"is_customer": user.IsCustomer,
		"superuser":   user.IsSuperuser,
	}).Info("Identity created")
	return user, nil
}

// CreateSuperuser creates an administrator without any account
func (s *Service) CreateSuperuser(ctx context.Context, username, password string) (*domain.User, error) {
	return s.Create(ctx, CreateInput{Username: username, Password: password, Superuser: true})
}

// VerifyCredential returns the active identity matching the credentials
func (s *Service) VerifyCredential(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Unauthenticated("no active account found with the given credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil || !user.IsActive {
		return nil, domain.Unauthenticated("no active account found with the given credentials")
	}
	return &user, nil
}

// Get loads an identity with its account
func (s *Service) Get(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Preload("Merchant").Preload("Customer").Take(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// List returns one page of identities ordered by id, and the total count
func (s *Service) List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	var users []domain.User
	err := db.Preload("Merchant").Preload("Customer").
		Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// Delete removes an identity and its account, returning what was removed
func (s *Service) Delete(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Merchant").Preload("Customer").Take(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("user %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return DeletePair(tx, id)
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("Identity deleted")
	return &user, nil
}
