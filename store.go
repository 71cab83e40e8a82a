package docstore

import "context"

// Store is the raw backend handle. One Store owns one underlying driver
// connection and is not meant for concurrent independent command streams;
// callers needing parallelism open independent handles.
type Store interface {
	Find(ctx context.Context, collection string, query Query, opt FindOptions) ([]Document, error)
	FindOne(ctx context.Context, collection string, query Query) (Document, error)
	InsertOne(ctx context.Context, collection string, doc Document) (any, error)
	UpdateOne(ctx context.Context, collection string, filter Query, set Document) (int64, error)
	UpdateMany(ctx context.Context, collection string, filter Query, set Document) (int64, error)
	BulkWrite(ctx context.Context, collection string, ops []BulkOp) (*BulkReport, error)
	Drop(ctx context.Context, collection string) error
	Close(ctx context.Context) error
}

// KeyEnsurer is implemented by stores that can enforce uniqueness of a
// collection's key field. A Collection calls it once before its first write,
// so duplicate keys are rejected at the store instead of silently breaking
// the strict ascending-key order traversals depend on.
type KeyEnsurer interface {
	EnsureKey(ctx context.Context, collection string, keyField string) error
}

type FindOptions struct {
	// SortAsc names a field to sort ascending by. Empty means driver order.
	SortAsc string
	// Limit caps the number of returned documents. Zero means no cap.
	Limit int64
}

type BulkOpKind int

const (
	BulkInsert BulkOpKind = iota
	BulkUpdateOne
	BulkUpdateMany
)

// BulkOp is one queued operation of an unordered batch. Doc is the insert
// payload for BulkInsert; Filter and Set describe the update variants. Set
// has already had any omit-listed fields stripped by the time the op reaches
// a Store.
type BulkOp struct {
	Kind   BulkOpKind
	Doc    Document
	Filter Query
	Set    Document
}

// BulkReport is the aggregate outcome of one batch submission, surfaced
// verbatim from the backend. Per-operation outcomes are the backend's; the
// engine does not re-interpret partial failures.
type BulkReport struct {
	InsertedCount int64 `json:"insertedCount"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedCount int64 `json:"upsertedCount"`
}
