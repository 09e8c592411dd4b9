// Package purchase moves balance from the calling customer to a merchant.
package purchase

import (
	"context"
	"errors"
	"fmt"

	"billing_system/internal/account"
	"billing_system/internal/authz"
	"billing_system/internal/domain"
	"billing_system/internal/events"
	"billing_system/internal/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Result of a committed purchase
type Result struct {
	TransactionID   uint  `json:"transaction_id"`
	CustomerID      uint  `json:"customer_id"`
	MerchantID      uint  `json:"merchant_id"`
	Amount          int64 `json:"amount"`
	CustomerBalance int64 `json:"customer_balance"`
	MerchantBalance int64 `json:"merchant_balance"`
}

// Service executes purchases
type Service struct {
	db        *gorm.DB
	rdb       *redis.Client
	publisher events.Publisher
}

func NewService(db *gorm.DB, rdb *redis.Client, publisher events.Publisher) *Service {
	return &Service{db: db, rdb: rdb, publisher: publisher}
}

// Purchase debits the caller's own customer account and credits the merchant.
// customerAccountID is not used to pick the paying account: a customer can only spend
// from their own account.
func (s *Service) Purchase(ctx context.Context, caller *domain.User, customerAccountID, merchantID uint, price int64) (*Result, error) {
	if price < 0 {
		return nil, domain.Validation("price must be a non-negative integer")
	}
	if err := authz.AuthenticatedCustomer(caller); err != nil {
		return nil, err
	}

	var res Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer, merchant domain.Account
		// Lock order is always customer then merchant
		err := forUpdate(tx).Table(domain.KindCustomer.Table()).Where("user_id = ?", caller.ID).Take(&customer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("customer account not found")
		}
		if err != nil {
			return fmt.Errorf("lock customer: %w", err)
		}
		err = forUpdate(tx).Table(domain.KindMerchant.Table()).Where("id = ?", merchantID).Take(&merchant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFound("merchant %d not found", merchantID)
		}
		if err != nil {
			return fmt.Errorf("lock merchant: %w", err)
		}
		if customer.Balance < price {
			return domain.InsufficientFunds("insufficient funds: balance %d is below price %d", customer.Balance, price)
		}

		debit := tx.Table(domain.KindCustomer.Table()).
			Where("id = ? AND balance >= ?", customer.ID, price).
			Update("balance", gorm.Expr("balance - ?", price))
		if debit.Error != nil {
			return fmt.Errorf("debit customer: %w", debit.Error)
		}
		// A zero price leaves the row unchanged, which MySQL reports as zero rows affected
		if price > 0 && debit.RowsAffected == 0 {
			return domain.InsufficientFunds("insufficient funds: balance is below price %d", price)
		}
		if err := tx.Table(domain.KindMerchant.Table()).
			Where("id = ?", merchant.ID).
			Update("balance", gorm.Expr("balance + ?", price)).Error; err != nil {
			return fmt.Errorf("credit merchant: %w", err)
		}
		record := domain.Transaction{CustomerID: customer.ID, MerchantID: merchant.ID, Amount: price}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("record transaction: %w", err)
		}

		res = Result{
			TransactionID:   record.ID,
			CustomerID:      customer.ID,
			MerchantID:      merchant.ID,
			Amount:          price,
			CustomerBalance: customer.Balance - price,
			MerchantBalance: merchant.Balance + price,
		}
		return nil
	})
	if err != nil {
		entry := logrus.WithFields(logrus.Fields{
			"user_id":     caller.ID,
			"merchant_id": merchantID,
			"price":       price,
			"error":       err.Error(),
		})
		if domain.KindOf(err) != "" {
			entry.Info("Purchase rejected")
		} else {
			entry.Error("Purchase failed")
		}
		return nil, err
	}

	account.Invalidate(ctx, s.rdb, domain.KindCustomer, res.CustomerID)
	account.Invalidate(ctx, s.rdb, domain.KindMerchant, res.MerchantID)
	if err := utils.DeletePrefix(ctx, s.rdb, utils.AdminTransactionsPrefix); err != nil {
		logrus.WithField("error", err.Error()).Warn("Cache invalidation failed")
	}
	events.Emit(ctx, s.publisher, events.PurchaseCompleted, events.PurchaseEvent{
		TransactionID:   res.TransactionID,
		CustomerID:      res.CustomerID,
		MerchantID:      res.MerchantID,
		Amount:          res.Amount,
		CustomerBalance: res.CustomerBalance,
		MerchantBalance: res.MerchantBalance,
	})
	logrus.WithFields(logrus.Fields{
		"transaction_id":   res.TransactionID,
		"customer_id":      res.CustomerID,
		"merchant_id":      res.MerchantID,
		"amount":           price,
		"customer_balance": res.CustomerBalance,
	}).Info("Purchase transaction")
	return &res, nil
}

// forUpdate adds SELECT ... FOR UPDATE; SQLite has no row locks and serialises writers instead
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
