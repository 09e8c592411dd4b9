package account

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"billing_system/internal/db"
	"billing_system/internal/domain"
	"billing_system/internal/events"
	"billing_system/internal/identity"
	"billing_system/internal/utils"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	identity.HashCost = bcrypt.MinCost
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return ""
	}
	return p.keys[len(p.keys)-1]
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	events *recordingPublisher
	admin  *domain.User
}

func newFixture(t *testing.T, rdb *redis.Client) *fixture {
	t.Helper()
	gdb := db.OpenTest(t)
	pub := &recordingPublisher{}
	admin, err := identity.Provision(gdb, identity.CreateInput{Username: "root", Password: "pw", Superuser: true})
	if err != nil {
		t.Fatalf("provision admin: %v", err)
	}
	return &fixture{db: gdb, svc: NewService(gdb, rdb, time.Minute, pub), events: pub, admin: admin}
}

func (f *fixture) create(t *testing.T, kind domain.AccountKind, username string, balance int64) (View, *domain.User) {
	t.Helper()
	ctx := context.Background()
	v, err := f.svc.Create(ctx, f.admin, kind, username, "pw")
	if err != nil {
		t.Fatalf("create %s: %v", username, err)
	}
	if balance != 0 {
		v, err = f.svc.Update(ctx, f.admin, kind, v.ID, UpdateInput{Balance: &balance})
		if err != nil {
			t.Fatalf("set balance of %s: %v", username, err)
		}
	}
	var owner domain.User
	if err := f.db.Take(&owner, v.User.ID).Error; err != nil {
		t.Fatalf("load owner: %v", err)
	}
	return v, &owner
}

func int64p(v int64) *int64 { return &v }
func boolp(v bool) *bool    { return &v }

func TestCreateRequiresStaff(t *testing.T) {
	f := newFixture(t, nil)
	_, customer := f.create(t, domain.KindCustomer, "buyer", 0)

	for _, caller := range []*domain.User{nil, customer} {
		_, err := f.svc.Create(context.Background(), caller, domain.KindMerchant, "shop", "pw")
		if !errors.Is(err, domain.ErrPermission) {
			t.Fatalf("expected permission error, got %v", err)
		}
	}
	var merchants int64
	f.db.Model(&domain.Merchant{}).Count(&merchants)
	if merchants != 0 {
		t.Fatalf("expected no merchants, got %d", merchants)
	}
}

func TestCreateProvisionsAccount(t *testing.T) {
	f := newFixture(t, nil)
	v, err := f.svc.Create(context.Background(), f.admin, domain.KindMerchant, "shop", "pw")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.ID == 0 || v.Balance != 0 || !v.User.IsMerchant || v.User.IsCustomer || !v.User.IsActive || v.User.IsSuperuser {
		t.Fatalf("unexpected view %+v", v)
	}
	if f.events.last() != events.AccountCreated {
		t.Fatalf("expected %s event, got %q", events.AccountCreated, f.events.last())
	}

	got, err := f.svc.Get(context.Background(), domain.KindMerchant, v.ID)
	if err != nil || got != v {
		t.Fatalf("expected %+v, got %+v (%v)", v, got, err)
	}

	if _, err := f.svc.Create(context.Background(), f.admin, domain.KindCustomer, "shop", "pw"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected duplicate username to be rejected, got %v", err)
	}
}

func TestListIsPerKind(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	views, err := f.svc.List(ctx, domain.KindMerchant)
	if err != nil || len(views) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", views, err)
	}

	f.create(t, domain.KindMerchant, "shop", 0)
	f.create(t, domain.KindCustomer, "buyer", 0)

	merchants, _ := f.svc.List(ctx, domain.KindMerchant)
	customers, _ := f.svc.List(ctx, domain.KindCustomer)
	if len(merchants) != 1 || merchants[0].User.Username != "shop" {
		t.Fatalf("unexpected merchants %+v", merchants)
	}
	if len(customers) != 1 || customers[0].User.Username != "buyer" {
		t.Fatalf("unexpected customers %+v", customers)
	}
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t, nil)
	if _, err := f.svc.Get(context.Background(), domain.KindCustomer, 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateOwnership(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	v, owner := f.create(t, domain.KindCustomer, "alice", 0)
	_, other := f.create(t, domain.KindCustomer, "mallory", 0)

	updated, err := f.svc.Update(ctx, owner, domain.KindCustomer, v.ID, UpdateInput{Balance: int64p(500)})
	if err != nil || updated.Balance != 500 {
		t.Fatalf("owner update: got %+v (%v)", updated, err)
	}

	_, err = f.svc.Update(ctx, other, domain.KindCustomer, v.ID, UpdateInput{Balance: int64p(0)})
	if !errors.Is(err, domain.ErrPermission) {
		t.Fatalf("expected permission error for other customer, got %v", err)
	}
	if _, err := f.svc.Update(ctx, nil, domain.KindCustomer, v.ID, UpdateInput{Balance: int64p(0)}); !errors.Is(err, domain.ErrPermission) {
		t.Fatalf("expected permission error for anonymous caller, got %v", err)
	}

	updated, err = f.svc.Update(ctx, f.admin, domain.KindCustomer, v.ID, UpdateInput{Balance: int64p(-5)})
	if err != nil || updated.Balance != -5 {
		t.Fatalf("admin may set any integer, got %+v (%v)", updated, err)
	}
	if f.events.last() != events.AccountUpdated {
		t.Fatalf("expected %s event, got %q", events.AccountUpdated, f.events.last())
	}
}

func TestUpdateErrorPrecedence(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	v, owner := f.create(t, domain.KindMerchant, "shop", 0)
	_, other := f.create(t, domain.KindMerchant, "rival", 0)

	tests := []struct {
		name   string
		caller *domain.User
		id     uint
		in     UpdateInput
		want   error
	}{
		{name: "absent beats everything", caller: other, id: 999, in: UpdateInput{}, want: domain.ErrNotFound},
		{name: "permission beats validation", caller: other, id: v.ID, in: UpdateInput{}, want: domain.ErrPermission},
		{name: "missing balance", caller: owner, id: v.ID, in: UpdateInput{}, want: domain.ErrValidation},
		{name: "owner cannot toggle is_active", caller: owner, id: v.ID, in: UpdateInput{Balance: int64p(1), IsActive: boolp(false)}, want: domain.ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(ctx, tt.caller, domain.KindMerchant, tt.id, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	got, _ := f.svc.Get(ctx, domain.KindMerchant, v.ID)
	if got.Balance != 0 || !got.User.IsActive {
		t.Fatalf("rejected updates must not mutate, got %+v", got)
	}
}

func TestAdminDeactivates(t *testing.T) {
	f := newFixture(t, nil)
	v, _ := f.create(t, domain.KindCustomer, "alice", 10)

	got, err := f.svc.Update(context.Background(), f.admin, domain.KindCustomer, v.ID, UpdateInput{Balance: int64p(10), IsActive: boolp(false)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.User.IsActive || got.Balance != 10 {
		t.Fatalf("expected inactive identity with balance 10, got %+v", got)
	}
}

func TestDeleteRemovesIdentity(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	v, owner := f.create(t, domain.KindCustomer, "alice", 0)
	_, other := f.create(t, domain.KindCustomer, "mallory", 0)

	if err := f.svc.Delete(ctx, other, domain.KindCustomer, v.ID); !errors.Is(err, domain.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if err := f.svc.Delete(ctx, owner, domain.KindCustomer, v.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if f.events.last() != events.AccountDeleted {
		t.Fatalf("expected %s event, got %q", events.AccountDeleted, f.events.last())
	}

	var users int64
	f.db.Model(&domain.User{}).Where("id = ?", owner.ID).Count(&users)
	if users != 0 {
		t.Fatal("identity survived account deletion")
	}
	if err := f.svc.Delete(ctx, f.admin, domain.KindCustomer, v.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIdentityDeletionRemovesAccount(t *testing.T) {
	f := newFixture(t, nil)
	v, owner := f.create(t, domain.KindMerchant, "shop", 0)

	if _, err := identity.NewService(f.db).Delete(context.Background(), owner.ID); err != nil {
		t.Fatalf("delete identity: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), domain.KindMerchant, v.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected account to be gone, got %v", err)
	}
}

func TestCachedReadsAreInvalidated(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	f := newFixture(t, rdb)
	ctx := context.Background()
	v, _ := f.create(t, domain.KindMerchant, "shop", 0)

	if _, err := f.svc.Get(ctx, domain.KindMerchant, v.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := f.svc.List(ctx, domain.KindMerchant); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !mr.Exists(utils.AccountKey("merchant", v.ID)) || !mr.Exists(utils.AccountListKey("merchant")) {
		t.Fatal("expected projections to be cached")
	}

	if _, err := f.svc.Update(ctx, f.admin, domain.KindMerchant, v.ID, UpdateInput{Balance: int64p(77)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists(utils.AccountKey("merchant", v.ID)) || mr.Exists(utils.AccountListKey("merchant")) {
		t.Fatal("expected cached projections to be dropped")
	}
	got, err := f.svc.Get(ctx, domain.KindMerchant, v.ID)
	if err != nil || got.Balance != 77 {
		t.Fatalf("expected fresh balance 77, got %+v (%v)", got, err)
	}
}
