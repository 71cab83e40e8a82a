package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
)

// fakeStore is an in-memory Store used to pin the traversal and bulk
// protocols without a live database.
type fakeStore struct {
	docs map[string][]Document
	keys map[string]string

	findCalls int
	bulkCalls int
	lastOps   []BulkOp

	findErr error
	// failFindAt makes the nth Find call fail (1-based); zero disables it.
	failFindAt int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs: map[string][]Document{},
		keys: map[string]string{},
	}
}

func (f *fakeStore) EnsureKey(_ context.Context, collection string, keyField string) error {
	f.keys[collection] = keyField
	return nil
}

// checkKey rejects inserts that would duplicate an ensured key.
func (f *fakeStore) checkKey(collection string, doc Document) error {
	key, ok := f.keys[collection]
	if !ok {
		return nil
	}

	val, present := doc[key]
	if !present {
		return nil
	}

	for _, existing := range f.docs[collection] {
		if reflect.DeepEqual(existing[key], val) {
			return ErrKeyAlreadyExists
		}
	}

	return nil
}

func (f *fakeStore) seed(collection string, docs ...Document) {
	f.docs[collection] = append(f.docs[collection], docs...)
}

// seedKeys inserts documents {_id: k, seq: i} for each key, given out of
// order or not; the store itself returns them in whatever order a sort asks.
func (f *fakeStore) seedKeys(collection string, keys ...int) {
	for i, k := range keys {
		f.seed(collection, Document{"_id": k, "seq": i})
	}
}

func (f *fakeStore) Find(_ context.Context, collection string, query Query, opt FindOptions) ([]Document, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.failFindAt > 0 && f.findCalls == f.failFindAt {
		return nil, fmt.Errorf("window %d exploded", f.findCalls)
	}

	var matched []Document
	for _, doc := range f.docs[collection] {
		if matchQuery(doc, query) {
			matched = append(matched, doc)
		}
	}

	if opt.SortAsc != "" {
		field := opt.SortAsc
		sort.SliceStable(matched, func(i, j int) bool {
			return compareValues(matched[i][field], matched[j][field]) < 0
		})
	}

	if opt.Limit > 0 && int64(len(matched)) > opt.Limit {
		matched = matched[:opt.Limit]
	}

	return matched, nil
}

func (f *fakeStore) FindOne(ctx context.Context, collection string, query Query) (Document, error) {
	docs, err := f.Find(ctx, collection, query, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	return docs[0], nil
}

func (f *fakeStore) InsertOne(_ context.Context, collection string, doc Document) (any, error) {
	if err := f.checkKey(collection, doc); err != nil {
		return nil, err
	}

	f.docs[collection] = append(f.docs[collection], doc)
	return doc["_id"], nil
}

func (f *fakeStore) UpdateOne(_ context.Context, collection string, filter Query, set Document) (int64, error) {
	return f.applyUpdate(collection, filter, set, true), nil
}

func (f *fakeStore) UpdateMany(_ context.Context, collection string, filter Query, set Document) (int64, error) {
	return f.applyUpdate(collection, filter, set, false), nil
}

func (f *fakeStore) applyUpdate(collection string, filter Query, set Document, limitOne bool) int64 {
	var matched int64
	for _, doc := range f.docs[collection] {
		if !matchQuery(doc, filter) {
			continue
		}

		for k, v := range set {
			doc[k] = v
		}

		matched++
		if limitOne {
			break
		}
	}

	return matched
}

func (f *fakeStore) BulkWrite(_ context.Context, collection string, ops []BulkOp) (*BulkReport, error) {
	f.bulkCalls++
	f.lastOps = append([]BulkOp(nil), ops...)

	report := &BulkReport{}
	for _, op := range ops {
		switch op.Kind {
		case BulkInsert:
			if err := f.checkKey(collection, op.Doc); err != nil {
				return nil, err
			}

			f.docs[collection] = append(f.docs[collection], op.Doc)
			report.InsertedCount++
		case BulkUpdateOne:
			n := f.applyUpdate(collection, op.Filter, op.Set, true)
			report.MatchedCount += n
			report.ModifiedCount += n
		case BulkUpdateMany:
			n := f.applyUpdate(collection, op.Filter, op.Set, false)
			report.MatchedCount += n
			report.ModifiedCount += n
		}
	}

	return report, nil
}

func (f *fakeStore) Drop(_ context.Context, collection string) error {
	delete(f.docs, collection)
	return nil
}

func (f *fakeStore) Close(_ context.Context) error {
	return nil
}

func matchQuery(doc Document, query Query) bool {
	for field, pred := range query {
		val, present := doc[field]

		if ops, ok := isOperatorMap(pred); ok {
			for op, want := range ops {
				switch op {
				case opExists:
					if want.(bool) != present {
						return false
					}
				case opGt:
					if !present || compareValues(val, want) <= 0 {
						return false
					}
				case opGte:
					if !present || compareValues(val, want) < 0 {
						return false
					}
				case opLt:
					if !present || compareValues(val, want) >= 0 {
						return false
					}
				case opLte:
					if !present || compareValues(val, want) > 0 {
						return false
					}
				case opNe:
					if !present || reflect.DeepEqual(val, want) {
						return false
					}
				default:
					return false
				}
			}
			continue
		}

		pval := reflect.ValueOf(pred)
		if pval.Kind() == reflect.Slice {
			found := false
			for i := 0; i < pval.Len(); i++ {
				if reflect.DeepEqual(val, pval.Index(i).Interface()) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
			continue
		}

		if !present || !reflect.DeepEqual(val, pred) {
			return false
		}
	}

	return true
}

func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
