package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	db *mongo.Database
	// unique index names per collection, used to name the field in duplicate errors
	unique map[string]map[string]string
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, unique: map[string]map[string]string{}}
}

// Database returns the underlying driver handle.
func (s *MongoStore) Database() *mongo.Database { return s.db }

func (s *MongoStore) FindOne(ctx context.Context, collection string, filter Filter, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, nonNil(filter)).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter Filter, opts FindOptions, out interface{}) error {
	findOpts := options.Find()
	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, f := range opts.Sort {
			dir := 1
			if f.Desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: f.Field, Value: dir})
		}
		findOpts.SetSort(sort)
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cur, err := s.db.Collection(collection).Find(ctx, nonNil(filter), findOpts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, nonNil(filter))
}

func (s *MongoStore) Insert(ctx context.Context, collection string, doc interface{}) error {
	_, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return &DuplicateKeyError{Collection: collection, Field: s.duplicateField(collection, err)}
	}
	return err
}

func (s *MongoStore) UpdateOne(ctx context.Context, collection string, filter Filter, set bson.M) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, nonNil(filter), bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &DuplicateKeyError{Collection: collection, Field: s.duplicateField(collection, err)}
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) IncrementField(ctx context.Context, collection, id, field string, delta int64) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: delta}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteOne(ctx context.Context, collection string, filter Filter) error {
	res, err := s.db.Collection(collection).DeleteOne(ctx, nonNil(filter))
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteMany(ctx context.Context, collection string, filter Filter) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, nonNil(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) EnsureIndexes(ctx context.Context, specs []IndexSpec) error {
	for _, spec := range specs {
		if len(spec.Keys) == 0 {
			continue
		}
		keys := bson.D{}
		for _, k := range spec.Keys {
			keys = append(keys, bson.E{Key: k, Value: 1})
		}
		name := indexName(spec)
		opts := options.Index().SetName(name)
		if spec.Unique {
			opts.SetUnique(true)
		}
		if spec.ExpireAfter > 0 {
			opts.SetExpireAfterSeconds(int32(spec.ExpireAfter.Seconds()))
		}
		if _, err := s.db.Collection(spec.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: opts,
		}); err != nil {
			return fmt.Errorf("create index %s on %s: %w", name, spec.Collection, err)
		}
		if spec.Unique {
			if s.unique[spec.Collection] == nil {
				s.unique[spec.Collection] = map[string]string{}
			}
			s.unique[spec.Collection][name] = strings.Join(spec.Keys, ",")
		}
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *MongoStore) duplicateField(collection string, err error) string {
	msg := err.Error()
	for name, field := range s.unique[collection] {
		if strings.Contains(msg, "index: "+name+" ") {
			return field
		}
	}
	return ""
}

func indexName(spec IndexSpec) string {
	prefix := "idx"
	switch {
	case spec.Unique:
		prefix = "uniq"
	case spec.ExpireAfter > 0:
		prefix = "ttl"
	}
	return prefix + "_" + strings.Join(spec.Keys, "_")
}

func nonNil(filter Filter) Filter {
	if filter == nil {
		return Filter{}
	}
	return filter
}
