// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/pdiddy/menu-engine/pkg/types"
)

const (
	defaultMongoDatabase = "menu_engine"
	mongoCollection      = "menus"
)

// mongoMenu is the stored document. The payload is kept as the JSON
// encoding of the menu document so field order survives the round trip.
type mongoMenu struct {
	Key            string    `bson:"_id"`
	RestaurantName string    `bson:"restaurant_name"`
	Location       string    `bson:"location"`
	Restaurant     string    `bson:"restaurant"`
	ItemsCount     int       `bson:"items_count"`
	Payload        string    `bson:"payload"`
	InsertedAt     time.Time `bson:"inserted_at"`
	ExpiresAt      time.Time `bson:"expires_at"`
}

func (m mongoMenu) row() row {
	return row{
		key:        m.Key,
		name:       m.RestaurantName,
		location:   m.Location,
		restaurant: m.Restaurant,
		items:      m.ItemsCount,
		payload:    []byte(m.Payload),
		insertedAt: m.InsertedAt.UTC(),
		expiresAt:  m.ExpiresAt.UTC(),
	}
}

// Mongo stores menus in a MongoDB collection. A TTL index on expires_at
// lets the server remove stale documents on its own.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects to uri. The database comes from the URI path and
// defaults to menu_engine.
func OpenMongo(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo durable store requires a URI")
	}
	opts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	dbName := defaultMongoDatabase
	if cs, err := connstring.ParseAndValidate(uri); err == nil && cs.Database != "" {
		dbName = cs.Database
	}

	m := &Mongo{client: client, coll: client.Database(dbName).Collection(mongoCollection), now: time.Now}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		{Keys: bson.D{{Key: "inserted_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating mongo indexes: %w", err)
	}
	return nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *Mongo) live() bson.M {
	return bson.M{"expires_at": bson.M{"$gt": m.now().UTC()}}
}

func (m *Mongo) Get(ctx context.Context, key types.CacheKey) (types.CacheEntry, error) {
	filter := m.live()
	filter["_id"] = string(key)

	var doc mongoMenu
	err := m.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.CacheEntry{}, types.ErrCacheMiss
	}
	if err != nil {
		return types.CacheEntry{}, fmt.Errorf("querying menu: %w", err)
	}
	return doc.row().entry()
}

func (m *Mongo) Put(ctx context.Context, entry types.CacheEntry) error {
	r, err := toRow(entry)
	if err != nil {
		return err
	}
	doc := mongoMenu{
		Key:            r.key,
		RestaurantName: r.name,
		Location:       r.location,
		Restaurant:     r.restaurant,
		ItemsCount:     r.items,
		Payload:        string(r.payload),
		InsertedAt:     r.insertedAt,
		ExpiresAt:      r.expiresAt,
	}
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": r.key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting menu %s: %w", r.key, err)
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, key types.CacheKey) (bool, error) {
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": string(key)})
	if err != nil {
		return false, fmt.Errorf("deleting menu %s: %w", key, err)
	}
	return res.DeletedCount > 0, nil
}

func (m *Mongo) List(ctx context.Context, limit, skip int) ([]Record, int, error) {
	limit, skip = normalizePage(limit, skip)
	filter := m.live()

	total, err := m.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("counting menus: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "inserted_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"payload": 0})
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("listing menus: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoMenu
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decoding menus: %w", err)
	}
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.row().record())
	}
	return out, int(total), nil
}

func (m *Mongo) Purge(ctx context.Context) (int, error) {
	res, err := m.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": m.now().UTC()}})
	if err != nil {
		return 0, fmt.Errorf("purging menus: %w", err)
	}
	return int(res.DeletedCount), nil
}
