package dbutil

import (
	"github.com/jmoiron/sqlx"
)

// Finalize rewrites a gendry-built query (MySQL-style ? placeholders) into
// the $n form Postgres expects.
func Finalize(query string, args []interface{}) (string, []interface{}) {
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}
