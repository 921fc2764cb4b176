package catalog_repo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
)

const productSelect = "SELECT id, version, created_at, updated_at, internal_code, name, category_id, kind, " +
	"stock_quantity, average_purchase_price, unit_price, is_visible, description, image_url FROM products"

func TestSelectProduct_ForUpdate(t *testing.T) {
	pid := id.New()

	sql, args, err := selectProduct(pid, true).ToSql()
	require.NoError(t, err)
	assert.Equal(t, productSelect+" WHERE id = $1 FOR UPDATE", sql)
	assert.Equal(t, []any{pid}, args)

	sql, _, err = selectProduct(pid, false).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "FOR UPDATE")
}

func TestListProductsQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   product.ListFilter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			filter:  product.ListFilter{},
			wantSQL: productSelect + " ORDER BY name, id",
		},
		{
			name:     "search kind stock and page",
			filter:   product.ListFilter{Search: "bolt", Kind: product.KindGoods, InStockOnly: true, Limit: 10, Offset: 5},
			wantSQL:  productSelect + " WHERE (name ILIKE $1 OR internal_code ILIKE $2) AND kind = $3 AND stock_quantity > $4 ORDER BY name, id LIMIT 10 OFFSET 5",
			wantArgs: []any{"%bolt%", "%bolt%", product.KindGoods, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := listProductsQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestUpdateValuationQuery(t *testing.T) {
	pid := id.New()
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cost := types.MustMoney("6")

	sql, args, err := updateValuationQuery(pid, 15, cost, now).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE products SET stock_quantity = $1, average_purchase_price = $2, version = version + 1, updated_at = $3 WHERE id = $4",
		sql)
	assert.Equal(t, []any{int64(15), cost, now, pid}, args)
}

func TestUpdateProductQuery_LeavesValuationAlone(t *testing.T) {
	p := product.NewProduct("Bolt", product.KindGoods)

	sql, _, err := updateProductQuery(p).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "UPDATE products SET "))
	assert.True(t, strings.HasSuffix(sql, "WHERE id = $10"))
	assert.NotContains(t, sql, "stock_quantity")
	assert.NotContains(t, sql, "average_purchase_price")
	assert.NotContains(t, sql, "internal_code")
}

func TestInsertProductQuery_UsesAllColumns(t *testing.T) {
	p := product.NewProduct("Bolt", product.KindGoods)

	sql, args, err := insertProductQuery(p).ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sql, "INSERT INTO products (id,version,created_at,updated_at,internal_code,"))
	assert.Len(t, args, len(productColumns))
	assert.Equal(t, p.ID, args[0])
	assert.Equal(t, p.InternalCode, args[4])
}
