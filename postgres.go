package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

type PGConfig struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (c PGConfig) URI() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.User, c.Password, c.Host, c.Port, c.Database)
}

// ConnectPostgres opens a Store over postgres, keeping each collection in
// its own single-JSONB-column table. Predicates compare jsonb values, so
// numeric keys order numerically and string keys lexically.
func ConnectPostgres(ctx context.Context, uri string) (Store, error) {
	db, err := sqlx.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection. %s", err.Error())
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres. %s", err.Error())
	}

	return &sqlStore{
		db:            db,
		dialect:       pgDialect(),
		ddlTpl:        "CREATE TABLE IF NOT EXISTS %s (doc JSONB NOT NULL)",
		insertTpl:     "INSERT INTO %s (doc) VALUES (?::jsonb)",
		updateOneTpl:  "UPDATE %s SET doc = doc || ?::jsonb WHERE ctid IN (SELECT ctid FROM %s %s LIMIT 1)",
		updateManyTpl: "UPDATE %s SET doc = doc || ?::jsonb %s",
		ensured:       map[string]bool{},
		keyed:         map[string]string{},
	}, nil
}

func pgDialect() sqlDialect {
	return sqlDialect{
		fieldExpr: func(field string) string {
			return fmt.Sprintf("(doc -> '%s')", strings.ReplaceAll(field, "'", "''"))
		},
		encodeArg: func(v any) (any, error) {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to encode query value. %s", err.Error())
			}

			return string(raw), nil
		},
		cast: "::jsonb",
	}
}
