package docstore

import "context"

// Insert queues one document insert into a bulk batch.
func Insert(doc Document) BulkOp {
	return BulkOp{Kind: BulkInsert, Doc: doc}
}

// UpdateOne queues a partial update of the first document matching filter.
// Fields named in omit are stripped from the update payload before
// submission, so server-managed fields are never overwritten.
func UpdateOne(filter Query, set Document, omit ...string) BulkOp {
	return BulkOp{Kind: BulkUpdateOne, Filter: filter, Set: set.Without(omit...)}
}

// UpdateMany queues a partial update of every document matching filter as a
// single batched operation.
func UpdateMany(filter Query, set Document, omit ...string) BulkOp {
	return BulkOp{Kind: BulkUpdateMany, Filter: filter, Set: set.Without(omit...)}
}

// BulkWrite submits the queued operations as one unordered batch in a single
// round trip. Execution order across operations is not guaranteed; callers
// must not rely on same-batch ordering for the same key. The backend's
// aggregate report is surfaced verbatim; inspect it for per-item outcomes.
func (c *Collection) BulkWrite(ctx context.Context, ops []BulkOp) Result {
	if err := c.ready(); err != nil {
		return FailErr(err)
	}

	// empty batch never reaches the store
	if len(ops) == 0 {
		return OKText("no operations to execute")
	}

	if err := c.ensureKey(ctx); err != nil {
		return FailErr(err)
	}

	report, err := c.store.BulkWrite(ctx, c.name, ops)
	if err != nil {
		c.log.Error().Err(err).Int("operations", len(ops)).Msg("bulk write failed")
		return FailErr(err)
	}

	c.log.Debug().
		Int("operations", len(ops)).
		Int64("inserted", report.InsertedCount).
		Int64("modified", report.ModifiedCount).
		Msg("bulk write done")

	return OK(report)
}

// UpdateByQuery applies one update document to all documents matching the
// filter, as one queued batch operation rather than one per matched
// document.
func (c *Collection) UpdateByQuery(ctx context.Context, filter Query, set Document, omit ...string) Result {
	return c.BulkWrite(ctx, []BulkOp{UpdateMany(filter, set, omit...)})
}
