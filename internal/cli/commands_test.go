package cli

import (
	"context"
	"testing"

	"github.com/FrankovDmutro/Store-inventory-system/internal/store/memory"
)

func TestSeedDemoIsIdempotent(t *testing.T) {
	repo = memory.New()
	t.Cleanup(func() { repo = nil })

	ctx := seedContext(context.Background())
	svc := newService()

	suppliers, err := seedSuppliers(ctx, svc, demoSuppliers)
	if err != nil {
		t.Fatalf("seed suppliers: %v", err)
	}
	if err := seedProducts(ctx, svc, demoProducts, suppliers); err != nil {
		t.Fatalf("seed products: %v", err)
	}

	// Second run must skip everything instead of failing on duplicates.
	suppliers, err = seedSuppliers(ctx, svc, demoSuppliers)
	if err != nil {
		t.Fatalf("re-seed suppliers: %v", err)
	}
	if err := seedProducts(ctx, svc, demoProducts, suppliers); err != nil {
		t.Fatalf("re-seed products: %v", err)
	}

	products, err := svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != len(demoProducts) {
		t.Fatalf("expected %d products after double seed, got %d", len(demoProducts), len(products))
	}

	all, err := svc.ListSuppliers(ctx)
	if err != nil {
		t.Fatalf("list suppliers: %v", err)
	}
	if len(all) != len(demoSuppliers) {
		t.Fatalf("expected %d suppliers after double seed, got %d", len(demoSuppliers), len(all))
	}
}

func TestSeedUsersRequiresPasswords(t *testing.T) {
	repo = memory.New()
	t.Cleanup(func() { repo = nil })

	t.Setenv("SEED_ADMIN_PASSWORD", "")
	if err := seedUsers(seedContext(context.Background())); err == nil {
		t.Fatal("expected error when SEED_ADMIN_PASSWORD is unset")
	}

	t.Setenv("SEED_ADMIN_PASSWORD", "super-secret-1")
	t.Setenv("SEED_MANAGER_PASSWORD", "super-secret-2")
	t.Setenv("SEED_CASHIER_PASSWORD", "super-secret-3")
	if err := seedUsers(seedContext(context.Background())); err != nil {
		t.Fatalf("seed users: %v", err)
	}
	// Replay skips existing accounts.
	if err := seedUsers(seedContext(context.Background())); err != nil {
		t.Fatalf("re-seed users: %v", err)
	}
}
