package docstore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Collection binds a Store to one named collection and its key field, and
// exposes the envelope-returning operations. A Collection serializes all
// commands through its Store's single connection; it is not safe for
// concurrent callers.
type Collection struct {
	store Store
	name  string
	key   string
	log   zerolog.Logger

	keyEnsured bool
}

func NewCollection(store Store, name string, options ...CollectionOption) *Collection {
	opt := &collectionOption{keyField: "_id"}
	for _, op := range options {
		op(opt)
	}

	if opt.keyField == "" {
		opt.keyField = "_id"
	}

	logger := zerolog.Nop()
	if opt.logger != nil {
		logger = opt.logger.With().Str("collection", name).Logger()
	}

	return &Collection{
		store: store,
		name:  name,
		key:   opt.keyField,
		log:   logger,
	}
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) KeyField() string { return c.key }

// ready fails fast when the handle was never initialized.
func (c *Collection) ready() error {
	if c == nil || c.store == nil {
		return ErrNotInitialized
	}

	return nil
}

// ensureKey asks the store to enforce key uniqueness before the first write
// through this collection. Stores that cannot (or need not) enforce it
// simply don't implement KeyEnsurer.
func (c *Collection) ensureKey(ctx context.Context) error {
	if c.keyEnsured {
		return nil
	}

	if ke, ok := c.store.(KeyEnsurer); ok {
		if err := ke.EnsureKey(ctx, c.name, c.key); err != nil {
			return err
		}
	}

	c.keyEnsured = true
	return nil
}

// FindOne returns the first document matching the query. A query that
// matches nothing is not an error; it yields an informational envelope.
func (c *Collection) FindOne(ctx context.Context, query Query) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	doc, err := c.store.FindOne(ctx, c.name, query)
	if err != nil {
		if errors.Is(err, ErrNoDocuments) || errors.Is(err, ErrKeyNotFound) {
			return OKText("no document found")
		}

		c.log.Error().Err(err).Msg("find one failed")
		return FailErr(err)
	}

	return OK(doc)
}

func (c *Collection) Find(ctx context.Context, query Query) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	docs, err := c.store.Find(ctx, c.name, query, FindOptions{})
	if err != nil {
		c.log.Error().Err(err).Msg("find failed")
		return FailErr(err)
	}

	if len(docs) == 0 {
		return OKText("no documents found")
	}

	return OK(docs)
}

// Insert stores one document and returns its generated or supplied key.
func (c *Collection) Insert(ctx context.Context, doc Document) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	if err := c.ensureKey(ctx); err != nil {
		return FailErr(err)
	}

	id, err := c.store.InsertOne(ctx, c.name, doc)
	if err != nil {
		c.log.Error().Err(err).Msg("insert failed")
		return FailErr(err)
	}

	// SQL backends have no generated id to report
	if id == nil {
		return OKText("document inserted")
	}

	return OK(id)
}

// Update applies a partial update to the single document with the given key.
func (c *Collection) Update(ctx context.Context, key any, set Document) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	if err := c.ensureKey(ctx); err != nil {
		return FailErr(err)
	}

	matched, err := c.store.UpdateOne(ctx, c.name, Query{c.key: key}, set.Without(c.key))
	if err != nil {
		c.log.Error().Err(err).Msg("update failed")
		return FailErr(err)
	}

	if matched == 0 {
		return FailErr(ErrKeyNotFound)
	}

	return OK(matched)
}

func (c *Collection) Drop(ctx context.Context) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	if err := c.store.Drop(ctx, c.name); err != nil {
		c.log.Error().Err(err).Msg("drop failed")
		return FailErr(err)
	}

	c.keyEnsured = false
	return OKText("collection dropped")
}
