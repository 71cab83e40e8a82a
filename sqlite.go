package docstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ConnectSqlite opens a Store over a sqlite file using the JSON1 functions.
// json_extract returns values with their JSON types, so sqlite's dynamic
// comparison orders numeric keys numerically.
func ConnectSqlite(ctx context.Context, path string) (Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database. %s", err.Error())
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite database. %s", err.Error())
	}

	return &sqlStore{
		db:            db,
		dialect:       sqliteDialect(),
		ddlTpl:        "CREATE TABLE IF NOT EXISTS %s (doc TEXT NOT NULL)",
		insertTpl:     "INSERT INTO %s (doc) VALUES (?)",
		updateOneTpl:  "UPDATE %s SET doc = json_patch(doc, ?) WHERE rowid IN (SELECT rowid FROM %s %s LIMIT 1)",
		updateManyTpl: "UPDATE %s SET doc = json_patch(doc, ?) %s",
		ensured:       map[string]bool{},
		keyed:         map[string]string{},
	}, nil
}

func sqliteDialect() sqlDialect {
	return sqlDialect{
		fieldExpr: func(field string) string {
			return fmt.Sprintf("json_extract(doc, '$.%s')", strings.ReplaceAll(field, "'", "''"))
		},
		encodeArg: func(v any) (any, error) {
			// sqlite has no boolean storage class; JSON1 yields 0/1
			if b, ok := v.(bool); ok {
				if b {
					return 1, nil
				}
				return 0, nil
			}

			return v, nil
		},
	}
}
