package docstore

import "context"

// Handler processes one window of documents during a traversal. A failed
// result aborts the traversal; no partial-progress marker is persisted by
// the paginator itself.
type Handler func(ctx context.Context, window []Document, args ...any) Result

// Cursor is the resumable state of a keyset traversal. LastKey is the key of
// the last document handed to the handler; callers that persist it can
// resume a crashed traversal by passing the cursor back to PaginateCursor.
type Cursor struct {
	LastKey any
	Windows int
}

// Paginate walks every document matching query in ascending key order, in
// windows of at most pageSize, invoking fn once per window.
//
// A window shorter than pageSize is the last one: fn's result is returned
// verbatim and no further fetch is issued. A full window advances the key
// bound past the last document seen and fetches again, so a result set whose
// size is an exact multiple of pageSize costs one final empty fetch before
// the terminal "no more data" envelope is returned.
//
// The traversal is read-only; write side effects belong entirely to fn.
// Documents inserted below the advancing bound during a traversal are never
// seen; documents inserted above it surface on a later window.
func (c *Collection) Paginate(ctx context.Context, query Query, pageSize int, fn Handler, args ...any) Result {
	var cur Cursor
	return c.PaginateCursor(ctx, &cur, query, pageSize, fn, args...)
}

// PaginateCursor is Paginate resuming from, and recording progress into, an
// explicit cursor. A cursor with a non-nil LastKey starts the traversal
// strictly after that key.
func (c *Collection) PaginateCursor(ctx context.Context, cur *Cursor, query Query, pageSize int, fn Handler, args ...any) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	if pageSize < 1 {
		return Failf("page size must be at least 1, got %d", pageSize)
	}

	// The bound predicate on the key field is owned by the paginator and
	// overwritten on every advance; it lives in a clone so the caller's
	// query survives the traversal untouched.
	q := query.Clone()
	if cur.LastKey != nil {
		q[c.key] = Gt(cur.LastKey)
	}

	for {
		window, err := c.store.Find(ctx, c.name, q, FindOptions{SortAsc: c.key, Limit: int64(pageSize)})
		if err != nil {
			c.log.Error().Err(err).Int("window", cur.Windows).Msg("window fetch failed")
			return Failf("fetch window: %s", err)
		}

		if len(window) == 0 {
			c.log.Debug().Int("windows", cur.Windows).Msg("traversal complete")
			return OKText("no more data")
		}

		res := fn(ctx, window, args...)
		if !res.Status {
			return res
		}

		lastKey := window[len(window)-1][c.key]
		cur.LastKey = lastKey
		cur.Windows++

		// a partial window is provably the last page
		if len(window) < pageSize {
			c.log.Debug().Int("windows", cur.Windows).Msg("traversal complete")
			return res
		}

		q[c.key] = Gt(lastKey)
		c.log.Debug().Int("window", cur.Windows).Interface("after", lastKey).Msg("advancing key bound")
	}
}

// FetchBatch fetches exactly one window and delegates it to fn, without
// advancing or recursing. Callers orchestrating repeated calls themselves,
// e.g. on a scheduler tick with externally persisted progress, use this
// instead of Paginate.
func (c *Collection) FetchBatch(ctx context.Context, query Query, batchSize int, fn Handler, args ...any) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	if batchSize < 1 {
		return Failf("batch size must be at least 1, got %d", batchSize)
	}

	window, err := c.store.Find(ctx, c.name, query.Clone(), FindOptions{SortAsc: c.key, Limit: int64(batchSize)})
	if err != nil {
		c.log.Error().Err(err).Msg("batch fetch failed")
		return Failf("fetch batch: %s", err)
	}

	if len(window) == 0 {
		return OKText("nothing to process")
	}

	return fn(ctx, window, args...)
}
