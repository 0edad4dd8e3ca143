package persistence

import (
	"testing"

	"github.com/erp/stockcore/internal/domain/shared"
	"github.com/erp/stockcore/internal/infrastructure/persistence/models"
	"github.com/erp/stockcore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// newDryRunDB builds statements without sending them.
func newDryRunDB(t *testing.T) *gorm.DB {
	return testutil.NewMockDB(t).DB.Session(&gorm.Session{DryRun: true})
}

func TestSortDirection(t *testing.T) {
	for in, want := range map[string]string{
		"":                  "DESC",
		"asc":               "ASC",
		"  ASC ":            "ASC",
		"desc":              "DESC",
		"ascending":         "DESC",
		"ASC; DROP TABLE x": "DESC",
	} {
		assert.Equal(t, want, sortDirection(in), "input %q", in)
	}
}

func TestSortable_Column(t *testing.T) {
	payloads := []string{
		"quantity; DROP TABLE stocks;--",
		"quantity' OR '1'='1",
		"quantity UNION SELECT * FROM stocks",
		"quantity, (SELECT 1)",
		"quantity\n; DROP TABLE stocks",
		"QUANTITY",
		"",
		"   ",
	}
	for _, p := range payloads {
		assert.Equal(t, "product_id", stockSortable.column(p, "product_id"), "payload %q", p)
	}

	assert.Equal(t, "quantity", stockSortable.column("  quantity ", "product_id"))
	assert.Equal(t, "occurred_at", movementSortable.column("occurred_at", "id"))
	assert.Equal(t, "", serialSortable.column("quantity", ""))

	for name, s := range map[string]sortable{
		"stock": stockSortable, "movement": movementSortable, "document": documentSortable,
		"serial": serialSortable, "reorder": reorderSortable,
	} {
		assert.Equal(t, "id", s.column("id", ""), name)
		assert.Equal(t, "created_at", s.column("created_at", ""), name)
	}
}

func TestApplyPaging(t *testing.T) {
	db := newDryRunDB(t)

	var rows []models.StockModel
	stmt := applyPaging(db.Model(&models.StockModel{}), shared.Filter{
		Page:     3,
		PageSize: 10,
		OrderBy:  "quantity; DROP TABLE stocks",
		OrderDir: "asc",
	}, stockSortable, "product_id").Find(&rows).Statement

	sql := stmt.SQL.String()
	assert.Contains(t, sql, "ORDER BY product_id ASC, id ASC")
	assert.Contains(t, sql, "LIMIT 10")
	assert.Contains(t, sql, "OFFSET 20")
	assert.NotContains(t, sql, "DROP")
}

func TestApplyPaging_IDNeedsNoTieBreak(t *testing.T) {
	db := newDryRunDB(t)

	var rows []models.StockMovementModel
	stmt := applyPaging(db.Model(&models.StockMovementModel{}), shared.Filter{OrderBy: "id"}, movementSortable, "occurred_at").
		Find(&rows).Statement

	assert.Contains(t, stmt.SQL.String(), "ORDER BY id DESC")
	assert.NotContains(t, stmt.SQL.String(), "id DESC, id")
}
