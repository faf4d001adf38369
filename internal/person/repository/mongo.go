package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogotex/people/internal/person"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// namespaceExists is the server error code returned by create for an existing collection.
const namespaceExists = 48

// MongoRepo implements Repository over a MongoDB collection.
// The constructor does not talk to the server; call EnsureSchema once at startup.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// Schema is the $jsonSchema validator describing the stored record shape.
func Schema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{person.FieldName},
		"properties": bson.M{
			person.FieldName:          bson.M{"bsonType": "string", "minLength": 1},
			person.FieldAge:           bson.M{"bsonType": bson.A{"int", "long", "double"}},
			person.FieldFavoriteFoods: bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
		},
	}
}

// EnsureSchema creates the collection with the record validator, or updates the
// validator with collMod when the collection already exists, and indexes name.
func (m *MongoRepo) EnsureSchema(ctx context.Context) error {
	db := m.col.Database()
	name := m.col.Name()
	validator := bson.M{"$jsonSchema": Schema()}

	err := db.CreateCollection(ctx, name, options.CreateCollection().SetValidator(validator))
	if err != nil {
		var cmdErr mongo.CommandError
		if !errors.As(err, &cmdErr) || !cmdErr.HasErrorCode(namespaceExists) {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		cmd := bson.D{{Key: "collMod", Value: name}, {Key: "validator", Value: validator}}
		if err := db.RunCommand(ctx, cmd).Err(); err != nil {
			return fmt.Errorf("update validator on %s: %w", name, err)
		}
	}

	idx := mongo.IndexModel{Keys: bson.D{{Key: person.FieldName, Value: 1}}}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create name index: %w", err)
	}
	return nil
}

func (m *MongoRepo) Create(ctx context.Context, p *person.Person) (*person.Person, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	doc := p.Clone()
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return doc, nil
}

// CreateMany inserts unordered: each record stands on its own and there is no transaction.
func (m *MongoRepo) CreateMany(ctx context.Context, people []*person.Person) ([]*person.Person, error) {
	if err := person.ValidateAll(people); err != nil {
		return nil, err
	}
	if len(people) == 0 {
		return []*person.Person{}, nil
	}
	out := make([]*person.Person, 0, len(people))
	docs := make([]interface{}, 0, len(people))
	for _, p := range people {
		doc := p.Clone()
		if doc.ID.IsZero() {
			doc.ID = primitive.NewObjectID()
		}
		out = append(out, doc)
		docs = append(docs, doc)
	}
	if _, err := m.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false)); err != nil {
		return nil, fmt.Errorf("insert people: %w", err)
	}
	return out, nil
}

func (m *MongoRepo) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*person.Person, error) {
	defer cur.Close(ctx)
	out := []*person.Person{}
	for cur.Next(ctx) {
		var p person.Person
		if err := cur.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode person: %w", err)
		}
		out = append(out, &p)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MongoRepo) Find(ctx context.Context, f person.Filter) ([]*person.Person, error) {
	cur, err := m.col.Find(ctx, f.BSON())
	if err != nil {
		return nil, fmt.Errorf("find people %s: %w", f, err)
	}
	return m.decodeAll(ctx, cur)
}

// decodeOne maps mongo.ErrNoDocuments to an absent record.
func decodeOne(res *mongo.SingleResult) (*person.Person, error) {
	var p person.Person
	if err := res.Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) FindOne(ctx context.Context, f person.Filter) (*person.Person, error) {
	return decodeOne(m.col.FindOne(ctx, f.BSON()))
}

func (m *MongoRepo) FindByID(ctx context.Context, id string) (*person.Person, error) {
	oid, err := person.ParseID(id)
	if err != nil {
		return nil, err
	}
	return decodeOne(m.col.FindOne(ctx, bson.M{person.FieldID: oid}))
}

// Save writes the whole record back. It is not atomic with any earlier read.
func (m *MongoRepo) Save(ctx context.Context, p *person.Person) (*person.Person, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID.IsZero() {
		return m.Create(ctx, p)
	}
	doc := p.Clone()
	opts := options.Replace().SetUpsert(true)
	if _, err := m.col.ReplaceOne(ctx, bson.M{person.FieldID: doc.ID}, doc, opts); err != nil {
		return nil, fmt.Errorf("save person %s: %w", doc.ID.Hex(), err)
	}
	return doc, nil
}

func (m *MongoRepo) FindOneAndUpdate(ctx context.Context, f person.Filter, patch person.Patch, opts person.UpdateOptions) (*person.Person, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	ret := options.Before
	if opts.ReturnNew {
		ret = options.After
	}
	res := m.col.FindOneAndUpdate(ctx, f.BSON(), patch.BSON(), options.FindOneAndUpdate().SetReturnDocument(ret))
	return decodeOne(res)
}

func (m *MongoRepo) PushFavoriteFood(ctx context.Context, id string, food string) (*person.Person, error) {
	oid, err := person.ParseID(id)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$push": bson.M{person.FieldFavoriteFoods: food}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeOne(m.col.FindOneAndUpdate(ctx, bson.M{person.FieldID: oid}, update, opts))
}

func (m *MongoRepo) DeleteByID(ctx context.Context, id string) (*person.Person, error) {
	oid, err := person.ParseID(id)
	if err != nil {
		return nil, err
	}
	return decodeOne(m.col.FindOneAndDelete(ctx, bson.M{person.FieldID: oid}))
}

func (m *MongoRepo) DeleteMany(ctx context.Context, f person.Filter) (person.DeleteResult, error) {
	res, err := m.col.DeleteMany(ctx, f.BSON())
	if err != nil {
		return person.DeleteResult{}, fmt.Errorf("delete people %s: %w", f, err)
	}
	return person.DeleteResult{DeletedCount: res.DeletedCount}, nil
}

func (m *MongoRepo) Exec(ctx context.Context, q *person.Query) ([]*person.Person, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	opts := options.Find()
	if s := q.SortBSON(); s != nil {
		opts.SetSort(s)
	}
	if n := q.MaxResults(); n > 0 {
		opts.SetLimit(n)
	}
	if p := q.Projection().BSON(); p != nil {
		opts.SetProjection(p)
	}
	cur, err := m.col.Find(ctx, q.Filter().BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("query people %s: %w", q.Filter(), err)
	}
	return m.decodeAll(ctx, cur)
}
