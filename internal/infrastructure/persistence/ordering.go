package persistence

import "strings"

// sortColumns maps the sort keys accepted from clients to column names.
// Keys outside the map fall back to the default, so client input never
// reaches the ORDER BY clause.
type sortColumns map[string]string

var applicationSortColumns = sortColumns{
	"created_at":           "created_at",
	"updated_at":           "updated_at",
	"status":               "status",
	"product_type":         "product_type",
	"amount":               "amount",
	"term_months":          "term_months",
	"status_changed_at":    "status_changed_at",
	"submitted_at":         "submitted_to_bank_at",
	"submitted_to_bank_at": "submitted_to_bank_at",
	"last_synced_at":       "last_synced_at",
}

// orderClause returns "<column> <dir>, id <dir>". The id tiebreak keeps
// pages stable when the sort column has duplicates.
func (c sortColumns) orderClause(key, dir, fallback string) string {
	column, ok := c[strings.TrimSpace(key)]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		direction = "ASC"
	}
	return column + " " + direction + ", id " + direction
}
