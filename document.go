package docstore

// Document is an untyped payload stored in a collection. Exactly one field,
// the collection's key field, is expected to be present and unique.
type Document map[string]any

// Query maps field names to predicates. A plain value means equality, a
// non-empty slice means membership, and an operator map (see Gt, Lt, Exists)
// means a comparison or existence check.
type Query map[string]any

const (
	opGt     = "$gt"
	opGte    = "$gte"
	opLt     = "$lt"
	opLte    = "$lte"
	opNe     = "$ne"
	opIn     = "$in"
	opExists = "$exists"
	opSet    = "$set"
)

func Gt(v any) map[string]any { return map[string]any{opGt: v} }

func Gte(v any) map[string]any { return map[string]any{opGte: v} }

func Lt(v any) map[string]any { return map[string]any{opLt: v} }

func Lte(v any) map[string]any { return map[string]any{opLte: v} }

func Ne(v any) map[string]any { return map[string]any{opNe: v} }

func Exists(b bool) map[string]any { return map[string]any{opExists: b} }

// Clone returns a shallow copy of the query. The paginator works on a clone
// so it can own the key-field bound without touching the caller's map.
func (q Query) Clone() Query {
	cloned := make(Query, len(q)+1)
	for k, v := range q {
		cloned[k] = v
	}

	return cloned
}

// Without returns a copy of the document with the named fields removed.
func (d Document) Without(fields ...string) Document {
	if len(fields) == 0 {
		return d
	}

	stripped := make(Document, len(d))
	for k, v := range d {
		if SliceContains(fields, k) {
			continue
		}
		stripped[k] = v
	}

	return stripped
}

// isOperatorMap reports whether v is a predicate map such as the one
// produced by Gt or Exists, as opposed to a plain equality value.
func isOperatorMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}

	for k := range m {
		if len(k) == 0 || k[0] != '$' {
			return nil, false
		}
	}

	return m, true
}
