package aggregation

import (
	"stockbi/internal/core/types"
)

// StatusCounts counts transactions per status.
type StatusCounts struct {
	Pending   int64 `json:"pending"`
	Sold      int64 `json:"sold"`
	Delivered int64 `json:"delivered"`
	Paid      int64 `json:"paid"`
	Cancelled int64 `json:"cancelled"`
}

// CategoryMetrics is the stock breakdown of one category.
type CategoryMetrics struct {
	CategoryKey   string      `json:"category_key"`
	Name          string      `json:"name"`
	ProductsCount int64       `json:"products_count"`
	StockQuantity int64       `json:"stock_quantity"`
	StockValue    types.Money `json:"stock_value"`
	RetailValue   types.Money `json:"retail_value"`
}

// InventoryMetrics is the global stock snapshot plus period flows.
type InventoryMetrics struct {
	TotalProducts          int64       `json:"total_products"`
	ProductsInStock        int64       `json:"products_in_stock"`
	TotalStockQuantity     int64       `json:"total_stock_quantity"`
	TotalStockValue        types.Money `json:"total_stock_value"`
	TotalRetailValue       types.Money `json:"total_retail_value"`
	AverageStockPerProduct types.Money `json:"average_stock_per_product"`

	Categories []CategoryMetrics `json:"categories"`

	SoldUnits    int64       `json:"sold_units"`
	SalesValue   types.Money `json:"sales_value"`
	OrderedUnits int64       `json:"ordered_units"`
	OrdersValue  types.Money `json:"orders_value"`

	Sales  StatusCounts `json:"sales"`
	Orders StatusCounts `json:"orders"`
}

// ProductMetrics is the per-product rollup.
type ProductMetrics struct {
	ProductID    string `json:"product_id"`
	InternalCode string `json:"internal_code"`
	Name         string `json:"name"`

	StockQuantity        int64       `json:"stock_quantity"`
	AveragePurchasePrice types.Money `json:"average_purchase_price"`
	StockValue           types.Money `json:"stock_value"`

	UnitsSold        int64       `json:"units_sold"`
	SalesValue       types.Money `json:"sales_value"`
	AverageSalePrice types.Money `json:"average_sale_price"`
	MarginPercent    types.Money `json:"margin_percent"`

	UnitsOrdered   int64 `json:"units_ordered"`
	SuppliersCount int64 `json:"suppliers_count"`
	CustomersCount int64 `json:"customers_count"`
}

// QualityMetrics counts records with missing reference data.
type QualityMetrics struct {
	ProductsMissingCategory    int64 `json:"products_missing_category"`
	ProductsMissingImage       int64 `json:"products_missing_image"`
	ProductsMissingDescription int64 `json:"products_missing_description"`
	ProductsMissingBoth        int64 `json:"products_missing_both"`

	SalesMissingCustomer      int64 `json:"sales_missing_customer"`
	OrdersMissingSupplier     int64 `json:"orders_missing_supplier"`
	OrdersMissingSupplierCode int64 `json:"orders_missing_supplier_code"`
}

// FlowMetrics summarizes sales or orders anchored in a period.
type FlowMetrics struct {
	TransactionsCount int64        `json:"transactions_count"`
	TotalValue        types.Money  `json:"total_value"`
	Units             int64        `json:"units"`
	Status            StatusCounts `json:"status"`

	AverageDaysToDelivery types.Money `json:"average_days_to_delivery"`
	AverageDaysToPayment  types.Money `json:"average_days_to_payment"`

	CounterpartiesCount int64       `json:"counterparties_count"`
	GrossMargin         types.Money `json:"gross_margin"`
	AverageValue        types.Money `json:"average_value"`
}
