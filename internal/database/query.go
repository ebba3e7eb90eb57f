package database

import "strings"

// QueryBuilder rewrites ?-style queries for the active dialect.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build replaces each ? outside a quoted string literal with the dialect's
// numbered placeholder.
//
//	input:    "SELECT digest FROM layouts WHERE id = ? AND seed = ?"
//	SQLite:   unchanged
//	Postgres: "SELECT digest FROM layouts WHERE id = $1 AND seed = $2"
func (qb *QueryBuilder) Build(query string) string {
	if qb.dialect.Placeholder(1) == "?" {
		return query
	}

	var result strings.Builder
	position := 1
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			result.WriteByte(c)
		case c == '?' && !quoted:
			result.WriteString(qb.dialect.Placeholder(position))
			position++
		default:
			result.WriteByte(c)
		}
	}
	return result.String()
}

// BuildWithReturning is Build plus a RETURNING clause where the dialect
// cannot report the inserted id.
func (qb *QueryBuilder) BuildWithReturning(query string, column string) string {
	converted := qb.Build(query)
	if !qb.dialect.SupportsLastInsertID() {
		converted += qb.dialect.ReturningClause(column)
	}
	return converted
}
