package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"billing_system/internal/db"
	"billing_system/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	HashCost = bcrypt.MinCost
}

func TestProvisionValidation(t *testing.T) {
	gdb := db.OpenTest(t)
	if _, err := Provision(gdb, InputForKind(domain.KindCustomer, "taken", "pw")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name string
		in   CreateInput
	}{
		{name: "empty username", in: CreateInput{Password: "pw", IsCustomer: true}},
		{name: "empty password", in: CreateInput{Username: "bob", IsCustomer: true}},
		{name: "long password", in: CreateInput{Username: "bob", Password: strings.Repeat("x", 73), IsCustomer: true}},
		{name: "duplicate username", in: CreateInput{Username: "taken", Password: "pw", IsMerchant: true}},
		{name: "no role", in: CreateInput{Username: "bob", Password: "pw"}},
		{name: "both roles", in: CreateInput{Username: "bob", Password: "pw", IsMerchant: true, IsCustomer: true}},
		{name: "superuser with role", in: CreateInput{Username: "bob", Password: "pw", IsCustomer: true, Superuser: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Provision(gdb, tt.in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	var users int64
	gdb.Model(&domain.User{}).Count(&users)
	if users != 1 {
		t.Fatalf("expected only the seeded user, got %d", users)
	}
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	gdb := db.OpenTest(t)
	if _, err := Provision(gdb, InputForKind(domain.KindCustomer, "alice", "pw")); err != nil {
		t.Fatalf("alice: %v", err)
	}
	if _, err := Provision(gdb, InputForKind(domain.KindCustomer, "Alice", "pw")); err != nil {
		t.Fatalf("Alice should be a distinct username: %v", err)
	}
}

func TestProvisionCreatesAccountWithZeroBalance(t *testing.T) {
	gdb := db.OpenTest(t)

	merchant, err := Provision(gdb, InputForKind(domain.KindMerchant, "shop", "pw"))
	if err != nil {
		t.Fatalf("provision merchant: %v", err)
	}
	if merchant.Merchant == nil || merchant.Merchant.Balance != 0 || merchant.Customer != nil {
		t.Fatalf("expected merchant account with zero balance, got %+v", merchant)
	}
	if merchant.Password == "pw" {
		t.Fatal("password stored in plaintext")
	}

	customer, err := Provision(gdb, InputForKind(domain.KindCustomer, "buyer", "pw"))
	if err != nil {
		t.Fatalf("provision customer: %v", err)
	}
	var stored domain.Customer
	if err := gdb.Where("user_id = ?", customer.ID).Take(&stored).Error; err != nil {
		t.Fatalf("customer row: %v", err)
	}
	if stored.ID != customer.Customer.ID || stored.Balance != 0 {
		t.Fatalf("unexpected customer row %+v", stored)
	}
}

func TestProvisionRollsBackWithTransaction(t *testing.T) {
	gdb := db.OpenTest(t)
	boom := errors.New("boom")

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if _, err := Provision(tx, InputForKind(domain.KindMerchant, "shop", "pw")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var users, merchants int64
	gdb.Model(&domain.User{}).Count(&users)
	gdb.Model(&domain.Merchant{}).Count(&merchants)
	if users != 0 || merchants != 0 {
		t.Fatalf("expected nothing persisted, got %d users and %d merchants", users, merchants)
	}
}

func TestSuperuserHasNoAccount(t *testing.T) {
	svc := NewService(db.OpenTest(t))
	admin, err := svc.CreateSuperuser(context.Background(), "root", "pw")
	if err != nil {
		t.Fatalf("create superuser: %v", err)
	}
	if !admin.IsStaff() || admin.IsMerchant || admin.IsCustomer || admin.Merchant != nil || admin.Customer != nil {
		t.Fatalf("unexpected superuser %+v", admin)
	}
}

func TestVerifyCredential(t *testing.T) {
	gdb := db.OpenTest(t)
	svc := NewService(gdb)
	ctx := context.Background()

	user, err := svc.Create(ctx, InputForKind(domain.KindCustomer, "alice", "s3cret"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.VerifyCredential(ctx, "alice", "s3cret")
	if err != nil || got.ID != user.ID {
		t.Fatalf("expected alice, got %+v (%v)", got, err)
	}

	for _, tc := range []struct{ username, password string }{
		{"alice", "wrong"},
		{"nobody", "s3cret"},
		{"ALICE", "s3cret"},
	} {
		if _, err := svc.VerifyCredential(ctx, tc.username, tc.password); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s/%s: expected unauthenticated, got %v", tc.username, tc.password, err)
		}
	}

	gdb.Model(&domain.User{}).Where("id = ?", user.ID).Update("is_active", false)
	if _, err := svc.VerifyCredential(ctx, "alice", "s3cret"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("inactive identity must not authenticate, got %v", err)
	}
}

func TestDeleteRemovesPair(t *testing.T) {
	gdb := db.OpenTest(t)
	svc := NewService(gdb)
	ctx := context.Background()

	user, err := svc.Create(ctx, InputForKind(domain.KindMerchant, "shop", "pw"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	deleted, err := svc.Delete(ctx, user.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Merchant == nil || deleted.Merchant.ID != user.Merchant.ID {
		t.Fatalf("expected deleted merchant to be reported, got %+v", deleted)
	}

	var users, merchants int64
	gdb.Model(&domain.User{}).Count(&users)
	gdb.Model(&domain.Merchant{}).Count(&merchants)
	if users != 0 || merchants != 0 {
		t.Fatalf("expected no orphans, got %d users and %d merchants", users, merchants)
	}

	if _, err := svc.Delete(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := svc.Get(ctx, user.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	svc := NewService(db.OpenTest(t))
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Create(ctx, InputForKind(domain.KindCustomer, name, "pw")); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	users, total, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(users) != 1 || users[0].Username != "c" {
		t.Fatalf("unexpected page: total=%d users=%+v", total, users)
	}
	if users[0].Customer == nil {
		t.Fatal("expected customer account to be preloaded")
	}
}
