package docstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
)

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ConnectMongo opens one client connection and verifies it with a ping.
func ConnectMongo(ctx context.Context, uri string, dbName string) (Store, error) {
	client, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb. %s", err.Error())
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb. %s", err.Error())
	}

	return &mongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// EnsureKey backs a non-default key field with a unique index. The _id
// index mongodb maintains itself already is unique.
func (m *mongoStore) EnsureKey(ctx context.Context, collection string, keyField string) error {
	if keyField == "_id" {
		return nil
	}

	_, err := m.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: keyField, Value: 1}},
		Options: mongoOptions.Index().SetUnique(true),
	})
	if err != nil {
		return wrapMongoError(err)
	}

	return nil
}

func (m *mongoStore) Find(ctx context.Context, collection string, query Query, opt FindOptions) ([]Document, error) {
	fo := mongoOptions.Find()
	if opt.SortAsc != "" {
		fo.SetSort(bson.D{{Key: opt.SortAsc, Value: 1}})
	}
	if opt.Limit > 0 {
		fo.SetLimit(opt.Limit)
	}

	cur, err := m.db.Collection(collection).Find(ctx, parseQueryIntoFilter(query), fo)
	if err != nil {
		return nil, wrapMongoError(err)
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		var doc Document
		if err := cur.Decode(&doc); err != nil {
			return nil, wrapMongoError(err)
		}
		docs = append(docs, doc)
	}

	if err := cur.Err(); err != nil {
		return nil, wrapMongoError(err)
	}

	return docs, nil
}

func (m *mongoStore) FindOne(ctx context.Context, collection string, query Query) (Document, error) {
	var doc Document
	err := m.db.Collection(collection).FindOne(ctx, parseQueryIntoFilter(query)).Decode(&doc)
	if err != nil {
		return nil, wrapMongoError(err)
	}

	return doc, nil
}

func (m *mongoStore) InsertOne(ctx context.Context, collection string, doc Document) (any, error) {
	res, err := m.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, wrapMongoError(err)
	}

	return res.InsertedID, nil
}

func (m *mongoStore) UpdateOne(ctx context.Context, collection string, filter Query, set Document) (int64, error) {
	res, err := m.db.Collection(collection).UpdateOne(ctx, parseQueryIntoFilter(filter), bson.M{opSet: bson.M(set)})
	if err != nil {
		return 0, wrapMongoError(err)
	}

	return res.MatchedCount, nil
}

func (m *mongoStore) UpdateMany(ctx context.Context, collection string, filter Query, set Document) (int64, error) {
	res, err := m.db.Collection(collection).UpdateMany(ctx, parseQueryIntoFilter(filter), bson.M{opSet: bson.M(set)})
	if err != nil {
		return 0, wrapMongoError(err)
	}

	return res.MatchedCount, nil
}

func (m *mongoStore) BulkWrite(ctx context.Context, collection string, ops []BulkOp) (*BulkReport, error) {
	models := make([]mongo.WriteModel, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case BulkInsert:
			models = append(models, mongo.NewInsertOneModel().SetDocument(bson.M(op.Doc)))
		case BulkUpdateOne:
			models = append(models, mongo.NewUpdateOneModel().
				SetFilter(parseQueryIntoFilter(op.Filter)).
				SetUpdate(bson.M{opSet: bson.M(op.Set)}))
		case BulkUpdateMany:
			models = append(models, mongo.NewUpdateManyModel().
				SetFilter(parseQueryIntoFilter(op.Filter)).
				SetUpdate(bson.M{opSet: bson.M(op.Set)}))
		default:
			return nil, fmt.Errorf("unknown bulk operation kind %d", op.Kind)
		}
	}

	res, err := m.db.Collection(collection).BulkWrite(ctx, models, mongoOptions.BulkWrite().SetOrdered(false))
	if err != nil {
		return nil, wrapMongoError(err)
	}

	return &BulkReport{
		InsertedCount: res.InsertedCount,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}, nil
}

func (m *mongoStore) Drop(ctx context.Context, collection string) error {
	if err := m.db.Collection(collection).Drop(ctx); err != nil {
		return wrapMongoError(err)
	}

	return nil
}

func (m *mongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func parseQueryIntoFilter(query Query) bson.D {
	var filter = bson.D{}

	for k, v := range query {
		if ops, ok := isOperatorMap(v); ok {
			filter = append(filter, bson.E{Key: k, Value: bson.M(ops)})
			continue
		}

		vval := reflect.ValueOf(v)
		if vval.Kind() != reflect.Slice {
			filter = append(filter, bson.E{Key: k, Value: v})
			continue
		}

		if vval.Len() > 0 {
			if f, err := parameterizedFilterCriteriaSlice(k, v); err == nil {
				filter = append(filter, f)
			}
		}
	}

	return filter
}

func parameterizedFilterCriteriaSlice(fieldname string, values any) (bson.E, error) {
	vtype := reflect.TypeOf(values)
	if vtype.Kind() == reflect.Ptr {
		vtype = vtype.Elem()
	}

	if vtype.Kind() != reflect.Slice {
		return bson.E{}, fmt.Errorf("expecting slice as values, got %s", vtype.Kind().String())
	}

	s := reflect.ValueOf(values)
	if s.Len() == 0 {
		return bson.E{}, fmt.Errorf("cannot use empty slice to parameterized")
	}

	var filter bson.E
	if s.Len() > 1 {
		filter = bson.E{Key: fieldname, Value: bson.M{opIn: values}}
	} else {
		filter = bson.E{Key: fieldname, Value: s.Index(0).Interface()}
	}

	return filter, nil
}

func wrapMongoError(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrKeyAlreadyExists
	}

	errMap := map[error]error{
		mongo.ErrNoDocuments: ErrNoDocuments,
	}

	for g, e := range errMap {
		if errors.Is(err, g) {
			err = fmt.Errorf("%w. %s", e, err.Error())
		}
	}

	return err
}
