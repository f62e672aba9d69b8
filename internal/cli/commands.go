// Package cli provides the Cobra-based storectl admin tool: seeding of
// reference data, demo catalogs and user accounts, against postgres or the
// in-memory store for dry runs.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/FrankovDmutro/Store-inventory-system/internal/cache"
	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/service"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store/memory"
	pgstore "github.com/FrankovDmutro/Store-inventory-system/internal/store/postgres"
	"github.com/FrankovDmutro/Store-inventory-system/internal/util"
)

var (
	rootCmd = &cobra.Command{
		Use:   "storectl",
		Short: "Admin tool for the store inventory backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Tests inject repo directly.
			if repo != nil {
				return nil
			}
			if err := util.InitLogger(viper.GetString("env")); err != nil {
				return err
			}

			databaseURL := viper.GetString("database-url")
			if databaseURL == "" {
				fmt.Fprintln(os.Stderr, "no --database-url: seeding the ephemeral in-memory store (dry run)")
				repo = memory.New()
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			pg, err := pgstore.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			repo = pg
			return nil
		},
	}

	repo store.Repository
)

func newService() *service.Service {
	return service.New(repo, cache.NoopStockCache{}, decimal.Zero)
}

func seedContext(ctx context.Context) context.Context {
	return service.WithActor(ctx, domain.Actor{Username: "storectl", Role: domain.RoleAdmin})
}

type seedSupplier struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type seedProduct struct {
	Category      string `json:"category"`
	SupplierName  string `json:"supplier_name"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	PurchasePrice string `json:"purchase_price"`
	Quantity      string `json:"quantity"`
	ExpiryDate    string `json:"expiry_date"`
}

var demoSuppliers = []seedSupplier{
	{Name: "ACME Wholesale", Email: "orders@acme.example", Phone: "+380501112233"},
	{Name: "Beta Foods", Email: "sales@betafoods.example", Phone: "+380671234567"},
	{Name: "Clean & Co", Email: "hello@cleanco.example"},
}

var demoProducts = []seedProduct{
	{Category: "Food", SupplierName: "ACME Wholesale", SKU: "FOOD-APPLE", Name: "Apple", Price: "10.00", PurchasePrice: "5.00", Quantity: "50"},
	{Category: "Food", SupplierName: "Beta Foods", SKU: "FOOD-BREAD", Name: "Bread", Price: "18.00", PurchasePrice: "11.50", Quantity: "30"},
	{Category: "Food", SupplierName: "ACME Wholesale", SKU: "FOOD-CHEESE", Name: "Cheese 250g", Price: "95.00", PurchasePrice: "70.00", Quantity: "12.5"},
	{Category: "Drinks", SupplierName: "Beta Foods", SKU: "DRINK-MILK", Name: "Milk 1L", Price: "32.50", PurchasePrice: "24.00", Quantity: "24"},
	{Category: "Drinks", SupplierName: "Beta Foods", SKU: "DRINK-JUICE", Name: "Orange Juice", Price: "45.00", PurchasePrice: "31.00", Quantity: "18"},
	{Category: "Household", SupplierName: "Clean & Co", SKU: "HH-SOAP", Name: "Soap Bar", Price: "22.00", PurchasePrice: "14.00", Quantity: "40"},
	{Category: "Household", SupplierName: "Clean & Co", SKU: "HH-SPONGE", Name: "Sponge 5pk", Price: "28.00", PurchasePrice: "17.50", Quantity: "35"},
}

func loadSeedFile[T any](path string, fallback []T) ([]T, error) {
	if path == "" {
		return fallback, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("seed file is empty")
	}
	return out, nil
}

func seedSuppliers(ctx context.Context, svc *service.Service, entries []seedSupplier) (map[string]string, error) {
	existing, err := svc.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(existing))
	for _, sup := range existing {
		byName[sup.Name] = sup.ID
	}

	for _, entry := range entries {
		if _, ok := byName[entry.Name]; ok {
			fmt.Printf("supplier %q already present, skipping\n", entry.Name)
			continue
		}
		created, err := svc.CreateSupplier(ctx, domain.SupplierCreateRequest{
			Name:    entry.Name,
			Email:   entry.Email,
			Phone:   entry.Phone,
			Address: entry.Address,
		})
		if err != nil {
			return nil, fmt.Errorf("create supplier %q: %w", entry.Name, err)
		}
		byName[created.Name] = created.ID
		fmt.Printf("supplier %q created (%s)\n", created.Name, created.ID)
	}
	return byName, nil
}

func seedProducts(ctx context.Context, svc *service.Service, entries []seedProduct, suppliers map[string]string) error {
	categories, err := svc.ListCategories(ctx)
	if err != nil {
		return err
	}
	categoryByName := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryByName[c.Name] = c.ID
	}

	for _, entry := range entries {
		categoryID, ok := categoryByName[entry.Category]
		if !ok {
			created, err := svc.CreateCategory(ctx, entry.Category)
			if err != nil {
				return fmt.Errorf("create category %q: %w", entry.Category, err)
			}
			categoryID = created.ID
			categoryByName[created.Name] = created.ID
		}

		req := domain.ProductCreateRequest{
			CategoryID:    categoryID,
			SupplierID:    suppliers[entry.SupplierName],
			SKU:           entry.SKU,
			Name:          entry.Name,
			Price:         decimal.RequireFromString(entry.Price),
			PurchasePrice: decimal.RequireFromString(entry.PurchasePrice),
			InitialStock:  decimal.RequireFromString(entry.Quantity),
			ExpiryDate:    entry.ExpiryDate,
		}
		if _, err := svc.CreateProduct(ctx, req); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				fmt.Printf("product %s already present, skipping\n", entry.SKU)
				continue
			}
			return fmt.Errorf("create product %s: %w", entry.SKU, err)
		}
		fmt.Printf("product %s seeded\n", entry.SKU)
	}
	return nil
}

func seedUsers(ctx context.Context) error {
	accounts := []struct {
		username string
		envVar   string
		role     string
	}{
		{"admin", "SEED_ADMIN_PASSWORD", domain.RoleAdmin},
		{"manager", "SEED_MANAGER_PASSWORD", domain.RoleManager},
		{"cashier", "SEED_CASHIER_PASSWORD", domain.RoleCashier},
	}

	for _, account := range accounts {
		password := os.Getenv(account.envVar)
		if password == "" {
			return fmt.Errorf("%s must be set to seed the %s account", account.envVar, account.username)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		err = repo.CreateUser(ctx, domain.UserAccount{
			Username:  account.username,
			Password:  string(hash),
			Role:      account.role,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		})
		if errors.Is(err, store.ErrDuplicate) {
			fmt.Printf("user %q already present, skipping\n", account.username)
			continue
		}
		if err != nil {
			return fmt.Errorf("create user %q: %w", account.username, err)
		}
		fmt.Printf("user %q created with role %s\n", account.username, account.role)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("database-url", "", "postgres connection string")
	rootCmd.PersistentFlags().String("env", "development", "environment name for logging")
	_ = viper.BindPFlag("database-url", rootCmd.PersistentFlags().Lookup("database-url"))
	_ = viper.BindPFlag("env", rootCmd.PersistentFlags().Lookup("env"))
	viper.SetEnvPrefix("STORECTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	var supplierFile string
	seedSuppliersCmd := &cobra.Command{
		Use:   "seed-suppliers",
		Short: "Seed the supplier directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := loadSeedFile(supplierFile, demoSuppliers)
			if err != nil {
				return err
			}
			_, err = seedSuppliers(seedContext(cmd.Context()), newService(), entries)
			return err
		},
	}
	seedSuppliersCmd.Flags().StringVar(&supplierFile, "file", "", "JSON file with suppliers")
	rootCmd.AddCommand(seedSuppliersCmd)

	var productFile string
	seedProductsCmd := &cobra.Command{
		Use:   "seed-products",
		Short: "Seed the product catalog (creates missing categories and suppliers)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := seedContext(cmd.Context())
			svc := newService()

			entries, err := loadSeedFile(productFile, demoProducts)
			if err != nil {
				return err
			}
			suppliers, err := seedSuppliers(ctx, svc, demoSuppliers)
			if err != nil {
				return err
			}
			return seedProducts(ctx, svc, entries, suppliers)
		},
	}
	seedProductsCmd.Flags().StringVar(&productFile, "file", "", "JSON file with products")
	rootCmd.AddCommand(seedProductsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed-users",
		Short: "Seed the admin, manager and cashier accounts (passwords from SEED_*_PASSWORD)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seedUsers(seedContext(cmd.Context()))
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed-demo",
		Short: "Seed suppliers, catalog and user accounts in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := seedContext(cmd.Context())
			svc := newService()

			suppliers, err := seedSuppliers(ctx, svc, demoSuppliers)
			if err != nil {
				return err
			}
			if err := seedProducts(ctx, svc, demoProducts, suppliers); err != nil {
				return err
			}
			return seedUsers(ctx)
		},
	})
}

func Execute() error {
	return rootCmd.Execute()
}
