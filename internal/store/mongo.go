package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore keeps each collection in its own MongoDB collection keyed by _id.
// RunInTx needs a replica set or sharded cluster.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{CollectionUsers, mongo.IndexModel{
			Keys:    bson.D{{Key: "account", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_account_idx"),
		}},
		{CollectionReplies, mongo.IndexModel{
			Keys:    bson.D{{Key: "repliedArticle", Value: 1}},
			Options: options.Index().SetName("replies_post_idx"),
		}},
		{CollectionGuestbookReplies, mongo.IndexModel{
			Keys:    bson.D{{Key: "targetGuestbook", Value: 1}},
			Options: options.Index().SetName("guestbook_replies_target_idx"),
		}},
	}
	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

func (s *MongoStore) Users() Collection[User] {
	return newMongoCollection[User](s, CollectionUsers)
}

func (s *MongoStore) Posts() Collection[Post] {
	return newMongoCollection[Post](s, CollectionPosts)
}

func (s *MongoStore) Replies() Collection[Reply] {
	return newMongoCollection[Reply](s, CollectionReplies)
}

func (s *MongoStore) Guestbooks() Collection[Guestbook] {
	return newMongoCollection[Guestbook](s, CollectionGuestbooks)
}

func (s *MongoStore) GuestbookReplies() Collection[GuestbookReply] {
	return newMongoCollection[GuestbookReply](s, CollectionGuestbookReplies)
}

func (s *MongoStore) Follows() Collection[Follow] {
	return newMongoCollection[Follow](s, CollectionFollows)
}

// RunInTx runs fn inside a session transaction. Operations join it through the
// session context handed to fn.
func (s *MongoStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer session.EndSession(context.Background())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

// Drop removes the whole database. Used by integration tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

type mongoCollection[T Document] struct {
	coll *mongo.Collection
	name string
}

func newMongoCollection[T Document](s *MongoStore, name string) mongoCollection[T] {
	return mongoCollection[T]{coll: s.db.Collection(name), name: name}
}

func (c mongoCollection[T]) Get(ctx context.Context, id string) (T, error) {
	var doc T
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return doc, fmt.Errorf("get %s %s: %w", c.name, id, ErrNotFound)
	}
	if err != nil {
		return doc, fmt.Errorf("get %s %s: %w", c.name, id, err)
	}
	return doc, nil
}

func (c mongoCollection[T]) Insert(ctx context.Context, doc T) error {
	id := doc.DocumentID()
	if id == "" {
		return fmt.Errorf("%s document has no id", c.name)
	}
	_, err := c.coll.InsertOne(ctx, doc)
	return c.writeErr("insert", id, err)
}

func (c mongoCollection[T]) Replace(ctx context.Context, doc T) error {
	id := doc.DocumentID()
	result, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return c.writeErr("replace", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("replace %s %s: %w", c.name, id, ErrNotFound)
	}
	return nil
}

func (c mongoCollection[T]) Upsert(ctx context.Context, doc T) error {
	id := doc.DocumentID()
	if id == "" {
		return fmt.Errorf("%s document has no id", c.name)
	}
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return c.writeErr("upsert", id, err)
}

func (c mongoCollection[T]) Delete(ctx context.Context, id string) error {
	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", c.name, id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete %s %s: %w", c.name, id, ErrNotFound)
	}
	return nil
}

func (c mongoCollection[T]) Find(ctx context.Context, filter Filter) ([]T, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}
	query := bson.M{}
	if !filter.IsZero() {
		query[filter.Field] = filter.Value
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := c.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.name, err)
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (c mongoCollection[T]) writeErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s %s: %w", op, c.name, id, ErrConflict)
	}
	return fmt.Errorf("%s %s %s: %w", op, c.name, id, err)
}
