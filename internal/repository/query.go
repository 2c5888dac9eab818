package repository

import (
	"fmt"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// listQuery builds the filtered, sorted and paged statements behind List
// endpoints. Conditions use "?" for their single argument; every "?" in a
// condition refers to that same argument.
type listQuery struct {
	table      string
	conditions []string
	args       []interface{}
	orderBy    string
	limit      int
	offset     int
}

func newListQuery(table string) *listQuery {
	return &listQuery{table: table}
}

func (q *listQuery) where(cond string, arg interface{}) *listQuery {
	q.args = append(q.args, arg)
	q.conditions = append(q.conditions, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(q.args))))
	return q
}

// sort orders by requested when it is one of allowed, else by fallback.
// Direction accepts asc/desc in any case and defaults to dir.
func (q *listQuery) sort(requested string, allowed []string, fallback, direction, dir string) *listQuery {
	column := fallback
	for _, a := range allowed {
		if a == requested {
			column = a
			break
		}
	}
	switch d := strings.ToUpper(direction); d {
	case "ASC", "DESC":
		dir = d
	}
	q.orderBy = column + " " + dir
	return q
}

func (q *listQuery) page(page, size int) *listQuery {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	q.limit, q.offset = size, (page-1)*size
	return q
}

func (q *listQuery) from() string {
	base := "FROM " + q.table + " WHERE 1=1"
	if len(q.conditions) > 0 {
		base += " AND " + strings.Join(q.conditions, " AND ")
	}
	return base
}

func (q *listQuery) selectSQL(columns string) string {
	return fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", columns, q.from(), q.orderBy, q.limit, q.offset)
}

func (q *listQuery) countSQL() string {
	return "SELECT COUNT(*) " + q.from()
}
