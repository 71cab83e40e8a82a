package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionDefaults(t *testing.T) {
	coll := NewCollection(newFakeStore(), "items")
	assert.Equal(t, "items", coll.Name())
	assert.Equal(t, "_id", coll.KeyField())

	coll = NewCollection(newFakeStore(), "items", WithKeyField("sku"))
	assert.Equal(t, "sku", coll.KeyField())

	// an empty key field falls back to the default
	coll = NewCollection(newFakeStore(), "items", WithKeyField(""))
	assert.Equal(t, "_id", coll.KeyField())
}

func TestFindOneHitAndMiss(t *testing.T) {
	store := newFakeStore()
	store.seed("items", Document{"_id": 1, "name": "one"})
	coll := NewCollection(store, "items")

	res := coll.FindOne(context.Background(), Query{"_id": 1})
	require.True(t, res.Status)
	assert.Equal(t, Document{"_id": 1, "name": "one"}, res.Resp)

	// a miss is informational, never a failure
	res = coll.FindOne(context.Background(), Query{"_id": 99})
	require.True(t, res.Status)
	assert.Nil(t, res.Resp)
	assert.Equal(t, "no document found", res.Text)
}

func TestFindEmptyIsInformational(t *testing.T) {
	store := newFakeStore()
	coll := NewCollection(store, "items")

	res := coll.Find(context.Background(), Query{"kind": "missing"})
	require.True(t, res.Status)
	assert.Nil(t, res.Resp)
	assert.Equal(t, "no documents found", res.Text)
}

func TestInsertReturnsKey(t *testing.T) {
	store := newFakeStore()
	coll := NewCollection(store, "items")

	res := coll.Insert(context.Background(), Document{"_id": 7, "name": "seven"})
	require.NoError(t, res.Err())
	assert.Equal(t, 7, res.Resp)
}

func TestInsertRejectsDuplicateKey(t *testing.T) {
	store := newFakeStore()
	coll := NewCollection(store, "items")

	res := coll.Insert(context.Background(), Document{"_id": 1, "name": "first"})
	require.NoError(t, res.Err())

	// a second document with the same key never lands; otherwise two docs
	// would share one keyset position and a traversal window boundary
	// falling between them would skip the rest
	res = coll.Insert(context.Background(), Document{"_id": 1, "name": "second"})
	require.False(t, res.Status)
	assert.Equal(t, ErrKeyAlreadyExists.Error(), res.Text)
	require.Len(t, store.docs["items"], 1)

	var windows [][]Document
	pres := coll.Paginate(context.Background(), Query{}, 2, collectWindows(&windows))
	require.NoError(t, pres.Err())
	assert.Equal(t, []int{1}, windowKeys(windows[0]))
}

func TestEnsureKeyUsesCollectionKeyField(t *testing.T) {
	store := newFakeStore()
	coll := NewCollection(store, "items", WithKeyField("sku"))

	res := coll.Insert(context.Background(), Document{"sku": "a-1"})
	require.NoError(t, res.Err())
	assert.Equal(t, "sku", store.keys["items"])

	res = coll.Insert(context.Background(), Document{"sku": "a-1"})
	require.False(t, res.Status)
}

func TestUpdateMissingKeyFails(t *testing.T) {
	store := newFakeStore()
	store.seed("items", Document{"_id": 1, "name": "one"})
	coll := NewCollection(store, "items")

	res := coll.Update(context.Background(), 1, Document{"name": "uno"})
	require.NoError(t, res.Err())
	assert.Equal(t, "uno", store.docs["items"][0]["name"])

	res = coll.Update(context.Background(), 404, Document{"name": "nope"})
	require.False(t, res.Status)
	assert.Equal(t, ErrKeyNotFound.Error(), res.Text)
}

func TestUpdateNeverRewritesKeyField(t *testing.T) {
	store := newFakeStore()
	store.seed("items", Document{"_id": 1, "name": "one"})
	coll := NewCollection(store, "items")

	res := coll.Update(context.Background(), 1, Document{"_id": 999, "name": "uno"})
	require.NoError(t, res.Err())
	assert.Equal(t, 1, store.docs["items"][0]["_id"])
}

func TestDrop(t *testing.T) {
	store := newFakeStore()
	store.seedKeys("items", 1, 2, 3)
	coll := NewCollection(store, "items")

	res := coll.Drop(context.Background())
	require.True(t, res.Status)
	assert.Empty(t, store.docs["items"])
}

func TestEveryOperationFailsFastWhenUninitialized(t *testing.T) {
	coll := NewCollection(nil, "items")
	ctx := context.Background()

	results := []Result{
		coll.FindOne(ctx, Query{}),
		coll.Find(ctx, Query{}),
		coll.Insert(ctx, Document{}),
		coll.Update(ctx, 1, Document{}),
		coll.Drop(ctx),
		coll.BulkWrite(ctx, []BulkOp{Insert(Document{})}),
		coll.UpdateByQuery(ctx, Query{}, Document{}),
		coll.FetchBatch(ctx, Query{}, 1, func(_ context.Context, _ []Document, _ ...any) Result { return OK(nil) }),
	}

	for _, res := range results {
		assert.False(t, res.Status)
		assert.Equal(t, ErrNotInitialized.Error(), res.Text)
	}
}
