// Package main seeds the operational store with a demo catalog and a few
// months of orders and sales, then aggregates the seeded range.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"stockbi/internal/app"
	"stockbi/internal/config"
	"stockbi/internal/core/id"
	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
	"stockbi/pkg/logger"
)

type demoProduct struct {
	name     string
	category string
	kind     product.Kind
	price    string
	cost     string
	restock  int64
}

var demoCatalog = []demoProduct{
	{"Green tea 100g", "Tea", product.KindGoods, "12.50", "6.20", 40},
	{"Black tea 100g", "Tea", product.KindGoods, "10.00", "4.80", 40},
	{"Ceramic mug", "Accessories", product.KindGoods, "9.90", "3.10", 25},
	{"Loose leaf filter", "Accessories", product.KindGoods, "4.50", "1.20", 60},
	{"Dried ginger", "Ingredients", product.KindIngredient, "3.00", "1.40", 80},
}

func main() {
	days := flag.Int("days", 90, "number of past days to fill")
	aggregate := flag.Bool("aggregate", true, "aggregate the seeded range afterwards")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config error: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: "info", Development: true, Service: "seed"})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.InMemory() {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := logger.WithLogger(context.Background(), log)
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	today := types.DateOf(time.Now())
	from := today.AddDate(0, 0, -*days)

	s := seeder{products: application.Products, ledger: application.Ledger, log: log}
	if err := s.run(ctx, from, today); err != nil {
		log.Fatalw("seed failed", "error", err)
	}

	if *aggregate {
		var jobs []aggregation.Job
		for _, kind := range []period.Kind{period.Day, period.Month} {
			jobs = append(jobs, aggregation.Backfill(aggregation.Classes, kind, from, today)...)
		}
		if err := application.Engine.RunAll(ctx, jobs); err != nil {
			log.Fatalw("aggregation failed", "error", err)
		}
		log.Infow("seeded range aggregated", "jobs", len(jobs))
	}
}

type seeder struct {
	products *product.Service
	ledger   *ledger.Service
	log      *logger.Logger
}

func (s seeder) run(ctx context.Context, from, to time.Time) error {
	categories := make(map[string]id.ID)
	for _, p := range demoCatalog {
		if _, ok := categories[p.category]; ok {
			continue
		}
		c, err := s.products.CreateCategory(ctx, p.category, nil)
		if err != nil {
			return fmt.Errorf("create category %q: %w", p.category, err)
		}
		categories[p.category] = c.ID
	}

	for i, demo := range demoCatalog {
		categoryID := categories[demo.category]
		p, err := s.products.Create(ctx, product.CreateInput{
			Name:       demo.name,
			CategoryID: &categoryID,
			Kind:       demo.kind,
			UnitPrice:  types.MustMoney(demo.price),
			IsVisible:  true,
		})
		if err != nil {
			return fmt.Errorf("create product %q: %w", demo.name, err)
		}

		sold, err := s.fill(ctx, p.ID, demo, i, from, to)
		if err != nil {
			return fmt.Errorf("fill %q: %w", demo.name, err)
		}
		s.log.Infow("product seeded", "name", demo.name, "code", p.InternalCode, "units_sold", sold)
	}
	return nil
}

// fill restocks every two weeks and, for sellable kinds, sells a small
// deterministic quantity on most days without exceeding what is on hand.
func (s seeder) fill(ctx context.Context, productID id.ID, demo demoProduct, offset int, from, to time.Time) (int64, error) {
	var onHand, sold int64
	price := types.MustMoney(demo.price)
	cost := types.MustMoney(demo.cost)

	for day, n := from, 0; !day.After(to); day, n = day.AddDate(0, 0, 1), n+1 {
		d := day
		if n%14 == 0 {
			if _, err := s.ledger.Save(ctx, ledger.SaveInput{
				Kind:         ledger.KindOrder,
				ProductID:    productID,
				SaleDate:     &d,
				DeliveryDate: &d,
				PaymentDate:  &d,
				Quantity:     demo.restock,
				UnitPrice:    cost,
			}); err != nil {
				return sold, err
			}
			onHand += demo.restock
		}

		if !demo.kind.Sellable() {
			continue
		}
		qty := int64((n+offset)%4 + 1)
		if (n+offset)%5 == 0 || qty > onHand {
			continue
		}
		if _, err := s.ledger.Save(ctx, ledger.SaveInput{
			Kind:        ledger.KindSale,
			ProductID:   productID,
			SaleDate:    &d,
			PaymentDate: &d,
			Quantity:    qty,
			UnitPrice:   price,
		}); err != nil {
			return sold, err
		}
		onHand -= qty
		sold += qty
	}
	return sold, nil
}
