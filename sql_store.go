package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// sqlStore implements Store over a one-JSON-column-per-collection layout.
// The dialect-specific pieces (field addressing, argument encoding, update
// statements) are supplied by postgres.go and sqlite.go.
type sqlStore struct {
	db      *sqlx.DB
	dialect sqlDialect

	// statement templates, all taking the table name; updateOneTpl takes it
	// twice (outer update plus row-limiting subselect) and both update
	// templates end with the compiled WHERE fragment.
	ddlTpl        string
	insertTpl     string
	updateOneTpl  string
	updateManyTpl string

	ensured map[string]bool
	keyed   map[string]string
}

// EnsureKey creates a unique expression index over the collection's key
// field, so duplicate keys fail the insert instead of corrupting keyset
// order.
func (s *sqlStore) EnsureKey(ctx context.Context, collection string, keyField string) error {
	table, err := s.table(ctx, collection)
	if err != nil {
		return err
	}

	if s.keyed[table] == keyField {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, s.keyIndexStmt(table, keyField)); err != nil {
		return wrapSQLError(err)
	}

	s.keyed[table] = keyField
	return nil
}

func (s *sqlStore) keyIndexStmt(table string, keyField string) string {
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_key ON %s (%s)", table, table, s.dialect.fieldExpr(keyField))
}

// table resolves the collection to a table and creates it on first use.
func (s *sqlStore) table(ctx context.Context, collection string) (string, error) {
	name, err := tableName(collection)
	if err != nil {
		return "", err
	}

	if s.ensured[name] {
		return name, nil
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.ddlTpl, name)); err != nil {
		return "", wrapSQLError(err)
	}

	s.ensured[name] = true
	return name, nil
}

func encodeDoc(doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document. %s", err.Error())
	}

	return string(raw), nil
}

func (s *sqlStore) Find(ctx context.Context, collection string, query Query, opt FindOptions) ([]Document, error) {
	table, err := s.table(ctx, collection)
	if err != nil {
		return nil, err
	}

	qry, args, err := s.dialect.selectClause(table, query, opt)
	if err != nil {
		return nil, err
	}

	var raws [][]byte
	if err := s.db.SelectContext(ctx, &raws, s.db.Rebind(qry), args...); err != nil {
		return nil, wrapSQLError(err)
	}

	return decodeDocRows(raws)
}

func (s *sqlStore) FindOne(ctx context.Context, collection string, query Query) (Document, error) {
	docs, err := s.Find(ctx, collection, query, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w. no document matches the query", ErrNoDocuments)
	}

	return docs[0], nil
}

func (s *sqlStore) InsertOne(ctx context.Context, collection string, doc Document) (any, error) {
	table, err := s.table(ctx, collection)
	if err != nil {
		return nil, err
	}

	raw, err := encodeDoc(doc)
	if err != nil {
		return nil, err
	}

	qry := s.db.Rebind(fmt.Sprintf(s.insertTpl, table))
	if _, err := s.db.ExecContext(ctx, qry, raw); err != nil {
		return nil, wrapSQLError(err)
	}

	return nil, nil
}

func (s *sqlStore) UpdateOne(ctx context.Context, collection string, filter Query, set Document) (int64, error) {
	return s.update(ctx, collection, filter, set, s.updateOneTpl, true)
}

func (s *sqlStore) UpdateMany(ctx context.Context, collection string, filter Query, set Document) (int64, error) {
	return s.update(ctx, collection, filter, set, s.updateManyTpl, false)
}

func (s *sqlStore) update(ctx context.Context, collection string, filter Query, set Document, tpl string, limitOne bool) (int64, error) {
	table, err := s.table(ctx, collection)
	if err != nil {
		return 0, err
	}

	qry, args, err := s.updateStatement(table, filter, set, tpl, limitOne)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind(qry), args...)
	if err != nil {
		return 0, wrapSQLError(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, wrapSQLError(err)
	}

	return affected, nil
}

func (s *sqlStore) updateStatement(table string, filter Query, set Document, tpl string, limitOne bool) (string, []any, error) {
	where, whereArgs, err := s.dialect.whereClause(filter)
	if err != nil {
		return "", nil, err
	}

	raw, err := encodeDoc(set)
	if err != nil {
		return "", nil, err
	}

	var qry string
	if limitOne {
		qry = fmt.Sprintf(tpl, table, table, where)
	} else {
		qry = fmt.Sprintf(tpl, table, where)
	}

	return qry, append([]any{raw}, whereArgs...), nil
}

// BulkWrite executes the whole unordered batch inside one transaction, so
// the submission is a single unit of work against the database.
func (s *sqlStore) BulkWrite(ctx context.Context, collection string, ops []BulkOp) (*BulkReport, error) {
	table, err := s.table(ctx, collection)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapSQLError(err)
	}
	defer tx.Rollback()

	report := &BulkReport{}
	for _, op := range ops {
		switch op.Kind {
		case BulkInsert:
			raw, err := encodeDoc(op.Doc)
			if err != nil {
				return nil, err
			}

			if _, err := tx.ExecContext(ctx, tx.Rebind(fmt.Sprintf(s.insertTpl, table)), raw); err != nil {
				return nil, wrapSQLError(err)
			}
			report.InsertedCount++

		case BulkUpdateOne, BulkUpdateMany:
			tpl := s.updateManyTpl
			limitOne := op.Kind == BulkUpdateOne
			if limitOne {
				tpl = s.updateOneTpl
			}

			qry, args, err := s.updateStatement(table, op.Filter, op.Set, tpl, limitOne)
			if err != nil {
				return nil, err
			}

			res, err := tx.ExecContext(ctx, tx.Rebind(qry), args...)
			if err != nil {
				return nil, wrapSQLError(err)
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return nil, wrapSQLError(err)
			}
			report.MatchedCount += affected
			report.ModifiedCount += affected

		default:
			return nil, fmt.Errorf("unknown bulk operation kind %d", op.Kind)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapSQLError(err)
	}

	return report, nil
}

func (s *sqlStore) Drop(ctx context.Context, collection string) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
		return wrapSQLError(err)
	}

	delete(s.ensured, table)
	delete(s.keyed, table)
	return nil
}

func (s *sqlStore) Close(_ context.Context) error {
	return s.db.Close()
}
