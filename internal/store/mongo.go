package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appLog "webcal/internal/log"
	"webcal/internal/model"
)

const (
	defaultDatabase   = "calendar"
	defaultCollection = "events"
	connectTimeout    = 10 * time.Second
)

// document is the persisted shape of an event.
type document struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	Title             string             `bson:"title"`
	Description       string             `bson:"description"`
	Start             time.Time          `bson:"start"`
	End               time.Time          `bson:"end"`
	Color             string             `bson:"color"`
	AllDay            bool               `bson:"allDay"`
	Recurring         bool               `bson:"recurring"`
	RecurrencePattern string             `bson:"recurrencePattern"`
	CreatedAt         time.Time          `bson:"createdAt"`
}

func toDocument(e model.Event) document {
	e.ApplyDefaults()
	return document{
		Title:             e.Title,
		Description:       e.Description,
		Start:             e.Start,
		End:               e.End,
		Color:             e.Color,
		AllDay:            e.AllDay,
		Recurring:         e.Recurring,
		RecurrencePattern: string(e.RecurrencePattern),
		CreatedAt:         e.CreatedAt,
	}
}

func (d document) toEvent() model.Event {
	e := model.Event{
		Title:             d.Title,
		Description:       d.Description,
		Start:             d.Start.Local(),
		End:               d.End.Local(),
		Color:             d.Color,
		AllDay:            d.AllDay,
		Recurring:         d.Recurring,
		RecurrencePattern: model.RecurrencePattern(d.RecurrencePattern),
		CreatedAt:         d.CreatedAt.Local(),
	}
	if !d.ID.IsZero() {
		e.ID = d.ID.Hex()
	}
	e.ApplyDefaults()
	return e
}

// setFields builds the $set document for the fields present in p.
func setFields(p model.Patch) bson.D {
	set := bson.D{}
	if p.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *p.Title})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *p.Description})
	}
	if p.Start != nil {
		set = append(set, bson.E{Key: "start", Value: *p.Start})
	}
	if p.End != nil {
		set = append(set, bson.E{Key: "end", Value: *p.End})
	}
	if p.Color != nil {
		color := *p.Color
		if strings.TrimSpace(color) == "" {
			color = model.DefaultColor
		}
		set = append(set, bson.E{Key: "color", Value: color})
	}
	if p.AllDay != nil {
		set = append(set, bson.E{Key: "allDay", Value: *p.AllDay})
	}
	if p.Recurring != nil {
		set = append(set, bson.E{Key: "recurring", Value: *p.Recurring})
	}
	if p.RecurrencePattern != nil {
		set = append(set, bson.E{Key: "recurrencePattern", Value: string(*p.RecurrencePattern)})
	}
	return set
}

func rangeFilter(start, end time.Time) bson.D {
	return bson.D{
		{Key: "start", Value: bson.D{{Key: "$lte", Value: end}}},
		{Key: "end", Value: bson.D{{Key: "$gte", Value: start}}},
	}
}

// Mongo stores events in a single MongoDB collection.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// OpenMongo connects to uri and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri, database, collection string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("store: mongo uri is empty")
	}
	if database == "" {
		database = defaultDatabase
	}
	if collection == "" {
		collection = defaultCollection
	}

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	appLog.Info("mongo connected", "database", database, "collection", collection)

	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(collection),
		now:    time.Now,
	}, nil
}

// List returns every event in _id order.
func (m *Mongo) List(ctx context.Context) ([]model.Event, error) {
	return m.find(ctx, bson.D{})
}

// ListRange returns events overlapping [start, end].
func (m *Mongo) ListRange(ctx context.Context, start, end time.Time) ([]model.Event, error) {
	return m.find(ctx, rangeFilter(start, end))
}

func (m *Mongo) find(ctx context.Context, filter bson.D) ([]model.Event, error) {
	// ObjectIDs grow with insertion time, so sorting by _id keeps insertion order.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("store: find: %w", err)
	}
	defer cur.Close(ctx)

	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("store: decode: %w", err)
	}
	out := make([]model.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEvent())
	}
	return out, nil
}

// Get returns the event with id. Malformed ids are reported as ErrNotFound.
func (m *Mongo) Get(ctx context.Context, id string) (model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Event{}, ErrNotFound
	}
	var d document
	if err := m.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("store: get %s: %w", id, err)
	}
	return d.toEvent(), nil
}

// Create inserts e with defaults applied and returns the stored document.
func (m *Mongo) Create(ctx context.Context, e model.Event) (model.Event, error) {
	e.CreatedAt = m.now()
	d := toDocument(e)
	res, err := m.coll.InsertOne(ctx, d)
	if err != nil {
		return model.Event{}, fmt.Errorf("store: insert: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return model.Event{}, fmt.Errorf("store: unexpected inserted id %v", res.InsertedID)
	}
	d.ID = oid
	return d.toEvent(), nil
}

// Update $sets the fields present in p and returns the merged document.
func (m *Mongo) Update(ctx context.Context, id string, p model.Patch) (model.Event, error) {
	if p.Empty() {
		return m.Get(ctx, id)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.Event{}, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.D{{Key: "$set", Value: setFields(p)}}

	var d document
	err = m.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: oid}}, update, opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Event{}, ErrNotFound
		}
		return model.Event{}, fmt.Errorf("store: update %s: %w", id, err)
	}
	return d.toEvent(), nil
}

// Delete removes the event with id or returns ErrNotFound.
func (m *Mongo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := m.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
