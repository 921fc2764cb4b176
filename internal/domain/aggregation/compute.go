package aggregation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"stockbi/internal/core/id"
	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
)

// UncategorizedKey is the category bucket of products without a category.
const UncategorizedKey = "uncategorized"

// Dataset is the operational snapshot a run computes from.
type Dataset struct {
	Products     []*product.Product
	Categories   []*product.Category
	Transactions []*ledger.Transaction
}

// Compute turns a dataset into the rows of one (class, period) run.
// It is pure: equal inputs give byte-identical rows.
func Compute(job Job, ds *Dataset, mode MarginMode) ([]Row, error) {
	p := job.Period
	var metrics map[string]any

	switch job.Class {
	case ClassInventory:
		metrics = map[string]any{GlobalKey: ComputeInventory(ds, p)}
	case ClassQuality:
		metrics = map[string]any{GlobalKey: ComputeQuality(ds, p)}
	case ClassSales:
		metrics = map[string]any{GlobalKey: ComputeFlow(ds, p, ledger.KindSale, mode)}
	case ClassOrders:
		metrics = map[string]any{GlobalKey: ComputeFlow(ds, p, ledger.KindOrder, mode)}
	case ClassProduct:
		metrics = make(map[string]any, len(ds.Products))
		for _, m := range ComputeProducts(ds, p) {
			metrics[m.ProductID] = m
		}
	default:
		return nil, fmt.Errorf("unknown entity class %q", job.Class)
	}

	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(metrics[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %s metrics: %w", job.Class, err)
		}
		rows = append(rows, Row{
			Class:       job.Class,
			PeriodKind:  p.Kind,
			PeriodKey:   p.Key(),
			EntityKey:   k,
			PeriodStart: p.Start,
			PeriodEnd:   p.End,
			Metrics:     raw,
		})
	}
	return rows, nil
}

// ComputeInventory builds the global stock snapshot and the period flows.
func ComputeInventory(ds *Dataset, p period.Period) InventoryMetrics {
	m := InventoryMetrics{
		TotalStockValue:  types.Zero(),
		TotalRetailValue: types.Zero(),
		SalesValue:       types.Zero(),
		OrdersValue:      types.Zero(),
		Categories:       []CategoryMetrics{},
	}

	names := make(map[string]string, len(ds.Categories))
	for _, c := range ds.Categories {
		names[c.ID.String()] = c.Name
	}
	byCategory := make(map[string]*CategoryMetrics)

	for _, pr := range ds.Products {
		m.TotalProducts++
		if pr.StockQuantity > 0 {
			m.ProductsInStock++
		}
		m.TotalStockQuantity += pr.StockQuantity
		m.TotalStockValue = m.TotalStockValue.Add(pr.StockValue())
		m.TotalRetailValue = m.TotalRetailValue.Add(pr.RetailValue())

		key := UncategorizedKey
		if pr.CategoryID != nil {
			key = pr.CategoryID.String()
		}
		cm, ok := byCategory[key]
		if !ok {
			cm = &CategoryMetrics{
				CategoryKey: key,
				Name:        names[key],
				StockValue:  types.Zero(),
				RetailValue: types.Zero(),
			}
			byCategory[key] = cm
		}
		cm.ProductsCount++
		cm.StockQuantity += pr.StockQuantity
		cm.StockValue = cm.StockValue.Add(pr.StockValue())
		cm.RetailValue = cm.RetailValue.Add(pr.RetailValue())
	}

	keys := make([]string, 0, len(byCategory))
	for k := range byCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cm := byCategory[k]
		cm.StockValue = types.RoundAmount(cm.StockValue)
		cm.RetailValue = types.RoundAmount(cm.RetailValue)
		m.Categories = append(m.Categories, *cm)
	}

	m.TotalStockValue = types.RoundAmount(m.TotalStockValue)
	m.TotalRetailValue = types.RoundAmount(m.TotalRetailValue)
	m.AverageStockPerProduct = types.Ratio(
		types.FromQuantity(m.TotalStockQuantity), types.FromQuantity(m.TotalProducts), 2)

	for _, t := range ds.Transactions {
		counts := &m.Sales
		if t.Kind == ledger.KindOrder {
			counts = &m.Orders
		}
		countStatus(counts, t, p)

		if t.IsCancelled() || !types.InRange(t.SaleDate, p.Start, p.End) {
			continue
		}
		switch t.Kind {
		case ledger.KindSale:
			m.SoldUnits += t.Quantity
			m.SalesValue = m.SalesValue.Add(t.Total())
		case ledger.KindOrder:
			m.OrderedUnits += t.Quantity
			m.OrdersValue = m.OrdersValue.Add(t.Total())
		}
	}
	m.SalesValue = types.RoundAmount(m.SalesValue)
	m.OrdersValue = types.RoundAmount(m.OrdersValue)
	return m
}

// countStatus counts t when the date matching its status falls in p.
func countStatus(c *StatusCounts, t *ledger.Transaction, p period.Period) {
	switch t.Status {
	case ledger.StatusPending:
		if p.Contains(t.AnchorDate()) {
			c.Pending++
		}
	case ledger.StatusCancelled:
		if p.Contains(t.AnchorDate()) {
			c.Cancelled++
		}
	case ledger.StatusSold:
		if types.InRange(t.SaleDate, p.Start, p.End) {
			c.Sold++
		}
	case ledger.StatusDelivered:
		if types.InRange(t.DeliveryDate, p.Start, p.End) {
			c.Delivered++
		}
	case ledger.StatusPaid:
		if types.InRange(t.PaymentDate, p.Start, p.End) {
			c.Paid++
		}
	}
}

// ComputeProducts builds one rollup per product, ordered by product id.
func ComputeProducts(ds *Dataset, p period.Period) []ProductMetrics {
	type acc struct {
		sold, ordered int64
		value         decimal.Decimal
		customers     map[id.ID]struct{}
		suppliers     map[id.ID]struct{}
	}
	accs := make(map[id.ID]*acc, len(ds.Products))
	for _, pr := range ds.Products {
		accs[pr.ID] = &acc{
			value:     types.Zero(),
			customers: map[id.ID]struct{}{},
			suppliers: map[id.ID]struct{}{},
		}
	}

	for _, t := range ds.Transactions {
		a, ok := accs[t.ProductID]
		if !ok || t.IsCancelled() || !p.Contains(t.AnchorDate()) {
			continue
		}
		switch t.Kind {
		case ledger.KindSale:
			a.sold += t.Quantity
			a.value = a.value.Add(t.Total())
			if t.CounterpartyID != nil {
				a.customers[*t.CounterpartyID] = struct{}{}
			}
		case ledger.KindOrder:
			a.ordered += t.Quantity
			if t.CounterpartyID != nil {
				a.suppliers[*t.CounterpartyID] = struct{}{}
			}
		}
	}

	out := make([]ProductMetrics, 0, len(ds.Products))
	for _, pr := range ds.Products {
		a := accs[pr.ID]
		avgSale := types.Ratio(a.value, types.FromQuantity(a.sold), types.CostScale)
		margin := types.Zero()
		if !avgSale.IsZero() {
			margin = avgSale.Sub(pr.AveragePurchasePrice).
				Mul(decimal.NewFromInt(100)).
				DivRound(avgSale, 2)
		}
		out = append(out, ProductMetrics{
			ProductID:            pr.ID.String(),
			InternalCode:         pr.InternalCode,
			Name:                 pr.Name,
			StockQuantity:        pr.StockQuantity,
			AveragePurchasePrice: pr.AveragePurchasePrice,
			StockValue:           types.RoundAmount(pr.StockValue()),
			UnitsSold:            a.sold,
			SalesValue:           types.RoundAmount(a.value),
			AverageSalePrice:     avgSale,
			MarginPercent:        margin,
			UnitsOrdered:         a.ordered,
			SuppliersCount:       int64(len(a.suppliers)),
			CustomersCount:       int64(len(a.customers)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// ComputeQuality counts catalog gaps (point in time) and transactions of
// the period with missing references.
func ComputeQuality(ds *Dataset, p period.Period) QualityMetrics {
	var m QualityMetrics
	for _, pr := range ds.Products {
		if pr.CategoryID == nil {
			m.ProductsMissingCategory++
		}
		noImage, noDesc := !pr.HasImage(), !pr.HasDescription()
		if noImage {
			m.ProductsMissingImage++
		}
		if noDesc {
			m.ProductsMissingDescription++
		}
		if noImage && noDesc {
			m.ProductsMissingBoth++
		}
	}

	for _, t := range ds.Transactions {
		if !p.Contains(t.AnchorDate()) {
			continue
		}
		switch t.Kind {
		case ledger.KindSale:
			if t.CounterpartyID == nil {
				m.SalesMissingCustomer++
			}
		case ledger.KindOrder:
			if t.CounterpartyID == nil {
				m.OrdersMissingSupplier++
			}
			if t.SupplierProductCode == nil || *t.SupplierProductCode == "" {
				m.OrdersMissingSupplierCode++
			}
		}
	}
	return m
}

// ComputeFlow summarizes transactions of one kind anchored in p.
// Cancelled transactions only show up in the status counts.
func ComputeFlow(ds *Dataset, p period.Period, kind ledger.Kind, mode MarginMode) FlowMetrics {
	costs := make(map[id.ID]decimal.Decimal, len(ds.Products))
	for _, pr := range ds.Products {
		costs[pr.ID] = pr.AveragePurchasePrice
	}

	m := FlowMetrics{TotalValue: types.Zero()}
	var (
		active                []*ledger.Transaction
		deliveryDays, payDays int64
		deliveryRows, payRows int64
	)
	counterparties := map[id.ID]struct{}{}

	for _, t := range ds.Transactions {
		if t.Kind != kind || !p.Contains(t.AnchorDate()) {
			continue
		}
		switch t.Status {
		case ledger.StatusPending:
			m.Status.Pending++
		case ledger.StatusSold:
			m.Status.Sold++
		case ledger.StatusDelivered:
			m.Status.Delivered++
		case ledger.StatusPaid:
			m.Status.Paid++
		case ledger.StatusCancelled:
			m.Status.Cancelled++
			continue
		}

		active = append(active, t)
		m.TransactionsCount++
		m.Units += t.Quantity
		m.TotalValue = m.TotalValue.Add(t.Total())
		if t.CounterpartyID != nil {
			counterparties[*t.CounterpartyID] = struct{}{}
		}
		if t.SaleDate != nil && t.DeliveryDate != nil {
			deliveryDays += types.DaysBetween(*t.SaleDate, *t.DeliveryDate)
			deliveryRows++
		}
		if t.SaleDate != nil && t.PaymentDate != nil {
			payDays += types.DaysBetween(*t.SaleDate, *t.PaymentDate)
			payRows++
		}
	}

	m.TotalValue = types.RoundAmount(m.TotalValue)
	m.CounterpartiesCount = int64(len(counterparties))
	m.AverageDaysToDelivery = types.Ratio(types.FromQuantity(deliveryDays), types.FromQuantity(deliveryRows), 2)
	m.AverageDaysToPayment = types.Ratio(types.FromQuantity(payDays), types.FromQuantity(payRows), 2)
	m.AverageValue = types.Ratio(m.TotalValue, types.FromQuantity(m.TransactionsCount), 2)
	m.GrossMargin = GrossMargin(active, costs, mode)
	return m
}

// GrossMargin is the per-unit margin of txs against the current average
// purchase cost of their products.
func GrossMargin(txs []*ledger.Transaction, costs map[id.ID]decimal.Decimal, mode MarginMode) decimal.Decimal {
	if len(txs) == 0 {
		return types.Zero()
	}
	diff := func(t *ledger.Transaction) decimal.Decimal {
		return t.UnitPrice.Sub(costs[t.ProductID])
	}

	if mode == MarginRunning {
		ordered := append([]*ledger.Transaction(nil), txs...)
		sort.SliceStable(ordered, func(i, j int) bool {
			ai, aj := ordered[i].AnchorDate(), ordered[j].AnchorDate()
			if !ai.Equal(aj) {
				return ai.Before(aj)
			}
			return ordered[i].ID.String() < ordered[j].ID.String()
		})
		two := decimal.NewFromInt(2)
		m := types.Zero()
		for _, t := range ordered {
			m = m.Add(diff(t)).Div(two)
		}
		return types.RoundCost(m)
	}

	sum, units := types.Zero(), types.Zero()
	for _, t := range txs {
		q := types.FromQuantity(t.Quantity)
		sum = sum.Add(q.Mul(diff(t)))
		units = units.Add(q)
	}
	return types.Ratio(sum, units, types.CostScale)
}
