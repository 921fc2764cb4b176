// Package aggregation computes period rollups (day to year) of ledger and
// stock data and persists them, one row per bucket and entity, in the
// analytical store.
package aggregation

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/period"
)

// Class selects the entity family a run computes.
type Class string

const (
	ClassInventory Class = "inventory"
	ClassProduct   Class = "product"
	ClassQuality   Class = "quality"
	ClassSales     Class = "sales"
	ClassOrders    Class = "orders"
)

// Classes lists every class.
var Classes = []Class{ClassInventory, ClassProduct, ClassQuality, ClassSales, ClassOrders}

// GlobalKey is the entity key of classes that produce a single row per period.
const GlobalKey = "global"

// Valid reports whether c is known.
func (c Class) Valid() bool {
	switch c {
	case ClassInventory, ClassProduct, ClassQuality, ClassSales, ClassOrders:
		return true
	}
	return false
}

// ParseClass validates a class name.
func ParseClass(s string) (Class, error) {
	c := Class(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperror.NewValidation("unknown entity class").WithDetail("class", s)
	}
	return c, nil
}

// MarginMode selects the gross margin formula.
type MarginMode string

const (
	// MarginWeighted is the quantity-weighted mean of (price - average cost).
	MarginWeighted MarginMode = "weighted"

	// MarginRunning reproduces the legacy order-dependent running mean
	// m = (m + diff) / 2 over transactions ordered by sale date.
	MarginRunning MarginMode = "running"
)

// ParseMarginMode validates a mode; empty means weighted.
func ParseMarginMode(s string) (MarginMode, error) {
	switch MarginMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MarginWeighted:
		return MarginWeighted, nil
	case MarginRunning:
		return MarginRunning, nil
	}
	return "", fmt.Errorf("unknown margin mode %q", s)
}

// Row is one persisted rollup: (class, period kind, period key, entity key)
// is unique. Metrics holds the canonical JSON of the class metric struct.
type Row struct {
	Class       Class           `db:"entity_class" json:"entityClass"`
	PeriodKind  period.Kind     `db:"period_kind" json:"periodKind"`
	PeriodKey   string          `db:"period_key" json:"periodKey"`
	EntityKey   string          `db:"entity_key" json:"entityKey"`
	PeriodStart time.Time       `db:"period_start" json:"periodStart"`
	PeriodEnd   time.Time       `db:"period_end" json:"periodEnd"`
	Metrics     json.RawMessage `db:"metrics" json:"metrics"`
}

// Job identifies one run: a class over one period bucket.
type Job struct {
	Class  Class
	Period period.Period
}

// String renders class:kind:key.
func (j Job) String() string {
	return string(j.Class) + ":" + j.Period.String()
}

// NewJob resolves a job from its external identifiers.
func NewJob(class, kind, key string) (Job, error) {
	c, err := ParseClass(class)
	if err != nil {
		return Job{}, err
	}
	k, err := period.ParseKind(kind)
	if err != nil {
		return Job{}, err
	}
	p, err := period.Parse(k, key)
	if err != nil {
		return Job{}, err
	}
	return Job{Class: c, Period: p}, nil
}

// RowFilter narrows stored rows. Zero values match everything.
type RowFilter struct {
	Class      Class
	PeriodKind period.Kind
	PeriodKey  string
	EntityKey  string

	// From/To bound period_start (inclusive).
	From *time.Time
	To   *time.Time

	Limit int
}

// Store persists rollup rows.
type Store interface {
	// ReplacePeriod atomically upserts rows for (class, period) and deletes
	// rows of that (class, period) whose entity key is not in rows.
	ReplacePeriod(ctx context.Context, class Class, p period.Period, rows []Row) error

	// List returns rows ordered by class, period start, period kind and entity key.
	List(ctx context.Context, filter RowFilter) ([]Row, error)
}

// DefaultMatrix is the set of (class, kind) pairs scheduled by default.
func DefaultMatrix() map[Class][]period.Kind {
	all := append([]period.Kind(nil), period.Kinds...)
	coarse := []period.Kind{period.Month, period.Quarter, period.Year}
	return map[Class][]period.Kind{
		ClassInventory: all,
		ClassProduct:   coarse,
		ClassQuality:   coarse,
		ClassSales:     all,
		ClassOrders:    all,
	}
}

// ParseMatrix reads "class:kind,kind;class:kind". An empty string yields
// DefaultMatrix.
func ParseMatrix(s string) (map[Class][]period.Kind, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultMatrix(), nil
	}

	matrix := make(map[Class][]period.Kind)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, kinds, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("matrix entry %q: missing ':'", entry)
		}
		class, err := ParseClass(name)
		if err != nil {
			return nil, fmt.Errorf("matrix entry %q: %w", entry, err)
		}
		for _, k := range strings.Split(kinds, ",") {
			kind, err := period.ParseKind(k)
			if err != nil {
				return nil, fmt.Errorf("matrix entry %q: %w", entry, err)
			}
			if !slices.Contains(matrix[class], kind) {
				matrix[class] = append(matrix[class], kind)
			}
		}
	}
	return matrix, nil
}
