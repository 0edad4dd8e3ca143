package persistence

import (
	"strings"

	"github.com/erp/stockcore/internal/domain/shared"
	"gorm.io/gorm"
)

// sortable is the set of columns a list query may order by. Every table sorts by id
// and created_at.
type sortable map[string]struct{}

func sortableBy(columns ...string) sortable {
	s := sortable{"id": {}, "created_at": {}}
	for _, c := range columns {
		s[c] = struct{}{}
	}
	return s
}

// column returns requested when it is whitelisted, otherwise fallback. Matching is
// exact after trimming, so anything that is not a bare column name is dropped.
func (s sortable) column(requested, fallback string) string {
	requested = strings.TrimSpace(requested)
	if _, ok := s[requested]; ok {
		return requested
	}
	return fallback
}

// sortDirection accepts asc in any case; everything else sorts newest first.
func sortDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

var (
	stockSortable    = sortableBy("updated_at", "product_id", "warehouse_id", "location_id", "quantity", "reserved_quantity", "unit_cost", "last_movement_at")
	movementSortable = sortableBy("occurred_at", "quantity", "movement_type")
	// reservations, transfers, counts and adjustments
	documentSortable = sortableBy("updated_at", "status", "warehouse_id")
	serialSortable   = sortableBy("serial", "status", "received_at")
	reorderSortable  = sortableBy("updated_at", "priority", "status", "expires_at", "suggested_quantity")
)

// applyPaging normalizes filter and applies order, offset and limit. id breaks ties so
// pages are stable.
func applyPaging(query *gorm.DB, filter shared.Filter, allowed sortable, fallback string) *gorm.DB {
	filter = filter.Normalize()
	col := allowed.column(filter.OrderBy, fallback)
	order := col + " " + sortDirection(filter.OrderDir)
	if col != "id" {
		order += ", id ASC"
	}
	return query.Order(order).Offset(filter.Offset()).Limit(filter.PageSize)
}
