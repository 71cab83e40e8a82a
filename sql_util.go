package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// sqlDialect abstracts what differs between the SQL backends: how a document
// field is addressed inside the JSON column and how a Go value is passed as
// a comparable query argument.
type sqlDialect struct {
	// fieldExpr returns the SQL expression selecting a document field.
	fieldExpr func(field string) string
	// encodeArg converts a predicate value into a driver argument comparable
	// against fieldExpr's result.
	encodeArg func(v any) (any, error)
	// cast is appended to every value placeholder, e.g. "::jsonb".
	cast string
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// tableName normalizes a collection name into a safe SQL identifier.
func tableName(collection string) (string, error) {
	name := strcase.ToSnake(collection)
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("collection name %q cannot be used as a table name", collection)
	}

	return name, nil
}

var sqlOps = map[string]string{
	opGt:  ">",
	opGte: ">=",
	opLt:  "<",
	opLte: "<=",
	opNe:  "<>",
}

// whereClause compiles a query into a WHERE fragment with ?-style
// placeholders, ready for sqlx.Rebind. An empty query compiles to an empty
// fragment. Keys are visited in sorted order so generated SQL is stable.
func (d sqlDialect) whereClause(query Query) (string, []any, error) {
	if len(query) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var conds []string
	var args []any

	for _, k := range keys {
		expr := d.fieldExpr(k)
		v := query[k]

		if ops, ok := isOperatorMap(v); ok {
			opKeys := make([]string, 0, len(ops))
			for op := range ops {
				opKeys = append(opKeys, op)
			}
			sort.Strings(opKeys)

			for _, op := range opKeys {
				if op == opExists {
					want, _ := ops[op].(bool)
					if want {
						conds = append(conds, fmt.Sprintf("%s IS NOT NULL", expr))
					} else {
						conds = append(conds, fmt.Sprintf("%s IS NULL", expr))
					}
					continue
				}

				sqlOp, ok := sqlOps[op]
				if !ok {
					return "", nil, fmt.Errorf("unsupported query operator %q", op)
				}

				arg, err := d.encodeArg(ops[op])
				if err != nil {
					return "", nil, err
				}

				conds = append(conds, fmt.Sprintf("%s %s ?%s", expr, sqlOp, d.cast))
				args = append(args, arg)
			}
			continue
		}

		vval := reflect.ValueOf(v)
		if vval.Kind() == reflect.Slice {
			if vval.Len() == 0 {
				continue
			}

			placeholders := make([]string, vval.Len())
			for i := 0; i < vval.Len(); i++ {
				arg, err := d.encodeArg(vval.Index(i).Interface())
				if err != nil {
					return "", nil, err
				}
				placeholders[i] = "?" + d.cast
				args = append(args, arg)
			}

			conds = append(conds, fmt.Sprintf("%s IN (%s)", expr, strings.Join(placeholders, ",")))
			continue
		}

		arg, err := d.encodeArg(v)
		if err != nil {
			return "", nil, err
		}

		conds = append(conds, fmt.Sprintf("%s = ?%s", expr, d.cast))
		args = append(args, arg)
	}

	if len(conds) == 0 {
		return "", nil, nil
	}

	return "WHERE " + strings.Join(conds, " AND "), args, nil
}

// selectClause assembles the full document query for one window fetch.
func (d sqlDialect) selectClause(table string, query Query, opt FindOptions) (string, []any, error) {
	where, args, err := d.whereClause(query)
	if err != nil {
		return "", nil, err
	}

	qry := fmt.Sprintf("SELECT doc FROM %s", table)
	if where != "" {
		qry += " " + where
	}

	if opt.SortAsc != "" {
		qry += fmt.Sprintf(" ORDER BY %s ASC", d.fieldExpr(opt.SortAsc))
	}

	if opt.Limit > 0 {
		qry += fmt.Sprintf(" LIMIT %d", opt.Limit)
	}

	return qry, args, nil
}

func decodeDocRows(rows [][]byte) ([]Document, error) {
	var docs []Document
	for _, raw := range rows {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode stored document. %s", err.Error())
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

func wrapSQLError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w. %s", ErrKeyAlreadyExists, err.Error())
	}

	return err
}
