package repository

import (
	"context"
	"strings"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Search runs the cross-entity title search behind GET /search.
type Search struct {
	base
}

// NewSearch creates the search repository over a named pool.
func NewSearch(p *pool.Manager, poolName string) *Search {
	return &Search{base: newBase(p, poolName)}
}

// searchableTypes maps the type filter to its query. Each query exposes
// the same (type, id, title) shape.
var searchableTypes = map[string]string{
	"course":  `SELECT 'course', id, title FROM courses WHERE title ILIKE $1 ORDER BY title LIMIT $2`,
	"lesson":  `SELECT 'lesson', id, title FROM lessons WHERE title ILIKE $1 ORDER BY title LIMIT $2`,
	"program": `SELECT 'program', id, title FROM programs WHERE title ILIKE $1 ORDER BY title LIMIT $2`,
}

// Types lists the accepted values for the type filter.
func (r *Search) Types() []string {
	return []string{"course", "lesson", "program"}
}

// Query returns matches for q, restricted to one type when typeFilter is
// non-empty. An unknown type yields no results rather than an error.
func (r *Search) Query(ctx context.Context, q, typeFilter string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(q) + "%"

	var queries []string
	if typeFilter != "" {
		sql, ok := searchableTypes[typeFilter]
		if !ok {
			return nil, nil
		}
		queries = []string{sql}
	} else {
		for _, t := range r.Types() {
			queries = append(queries, searchableTypes[t])
		}
	}

	var results []SearchResult
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		for _, sql := range queries {
			rows, err := conn.Query(ctx, sql, pattern, limit)
			if err != nil {
				return err
			}
			for rows.Next() {
				var res SearchResult
				if err := rows.Scan(&res.Type, &res.ID, &res.Title); err != nil {
					rows.Close()
					return err
				}
				results = append(results, res)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
		}
		return nil
	})
	return results, mapError(err)
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
