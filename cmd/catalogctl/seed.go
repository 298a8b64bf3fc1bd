package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"storefront/internal/catalog"
	"storefront/internal/logger"
	"storefront/internal/query"
	"storefront/internal/redis"
	"storefront/internal/shop"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	seedDryRun    bool
	redisAddr     string
	redisPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Upsert products from a YAML file",
	Long: `Reads a YAML document of the form

  products:
    - id: mug
      name: Enamel mug
      description: Holds coffee.
      images: [https://cdn.example.com/mug.jpg]
      metadata:
        price_usd: "12.50"
      active: true

and upserts every product. Products missing from the file are left alone.
With --redis-addr the storefront's cached product entries are dropped so
the new catalog is served immediately; otherwise they expire on their own.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedDryRun, "dry-run", false, "validate the file without writing")
	seedCmd.Flags().StringVar(&redisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "redis holding the storefront cache")
	seedCmd.Flags().StringVar(&redisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "redis password")
}

type seedFile struct {
	Products []catalog.Product `yaml:"products"`
}

// loadSeed decodes and validates a seed document. Unknown keys are
// rejected so typos like "price" do not silently drop data.
func loadSeed(r io.Reader) ([]catalog.Product, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f seedFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("seed: empty document")
		}
		return nil, fmt.Errorf("seed: decode: %w", err)
	}

	seen := make(map[string]bool, len(f.Products))
	for i, p := range f.Products {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("seed: product %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("seed: duplicate product id %q", p.ID)
		}
		seen[p.ID] = true
	}

	return f.Products, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	products, err := loadSeed(file)
	if err != nil {
		return err
	}

	if seedDryRun {
		logger.Info("seed file valid", map[string]any{"products": len(products)})
		return nil
	}

	database, err := openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	store := catalog.NewPostgresStore(database)
	inactive := 0
	for _, p := range products {
		if err := store.Upsert(cmd.Context(), p); err != nil {
			return fmt.Errorf("seed: upsert %s: %w", p.ID, err)
		}
		if !p.Active {
			inactive++
		}
	}

	logger.Info("catalog seeded", map[string]any{
		"products": len(products),
		"inactive": inactive,
	})

	if redisAddr == "" {
		logger.Warn("seed: no redis configured, cached products stay until they expire", nil)
		return nil
	}
	client, err := redis.New(cmd.Context(), redisAddr, redisPassword)
	if err != nil {
		return fmt.Errorf("seed: catalog written but cache not invalidated: %w", err)
	}
	defer client.Close()

	return invalidateCatalog(cmd.Context(), query.NewRedisBackend(client.Client), products)
}

// invalidateCatalog drops the cached list and every seeded product.
func invalidateCatalog(ctx context.Context, backend query.Backend, products []catalog.Product) error {
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	keys := shop.CatalogKeys(ids...)
	if err := query.New(backend, 0).Invalidate(ctx, keys...); err != nil {
		return fmt.Errorf("seed: invalidate cache: %w", err)
	}

	logger.Info("product cache invalidated", map[string]any{"keys": len(keys)})
	return nil
}
