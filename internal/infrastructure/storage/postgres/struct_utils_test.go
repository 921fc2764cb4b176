package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockbi/internal/core/entity"
	"stockbi/internal/core/id"
)

type mockRecord struct {
	entity.BaseEntity
	Name    string  `db:"name"`
	Note    *string `db:"note"`
	Ignored string  `db:"-"`
	NoTag   string
}

func TestExtractDBColumns_WalksEmbedded(t *testing.T) {
	cols := ExtractDBColumns[mockRecord]()

	assert.Equal(t, []string{"id", "version", "created_at", "updated_at", "name", "note"}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	rec := mockRecord{
		BaseEntity: entity.BaseEntity{ID: id.New(), Version: 3, CreatedAt: now, UpdatedAt: now},
		Name:       "widget",
		Ignored:    "x",
	}

	m := StructToMap(&rec)

	assert.Equal(t, rec.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, "widget", m["name"])
	assert.Nil(t, m["note"])
	assert.NotContains(t, m, "Ignored")
	assert.NotContains(t, m, "NoTag")
	assert.Len(t, m, 6)

	assert.Equal(t, []any{"widget", 3}, Pick(m, []string{"name", "version"}))
}
