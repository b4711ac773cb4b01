package database

import (
	"fmt"
	"strings"
)

type EntryQuery struct {
	columns string
	filters []string
	args    []interface{}
	orderBy string
	limit   int
}

func NewEntryQuery() *EntryQuery {
	return &EntryQuery{columns: entryColumns}
}

func (q *EntryQuery) Where(filter string, args ...interface{}) *EntryQuery {
	q.filters = append(q.filters, filter)
	q.args = append(q.args, args...)
	return q
}

func (q *EntryQuery) WhereOwner(ownerID string) *EntryQuery {
	return q.Where("owner_id = ?", ownerID)
}

func (q *EntryQuery) OrderBy(orderBy string) *EntryQuery {
	q.orderBy = orderBy
	return q
}

func (q *EntryQuery) Limit(limit int) *EntryQuery {
	q.limit = limit
	return q
}

func (q *EntryQuery) Build() (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM time_entries", q.columns)
	if len(q.filters) > 0 {
		query += " WHERE " + strings.Join(q.filters, " AND ")
	}
	if q.orderBy != "" {
		query += " ORDER BY " + q.orderBy
	}
	if q.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.limit)
	}
	return query, q.args
}
