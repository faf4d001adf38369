package repository

import (
	"context"

	"github.com/gogotex/people/internal/person"
)

// Repository is the persistence surface for Person records.
// Lookups that find nothing return (nil, nil); errors are reserved for
// validation, malformed ids and store failures.
type Repository interface {
	Create(ctx context.Context, p *person.Person) (*person.Person, error)
	CreateMany(ctx context.Context, people []*person.Person) ([]*person.Person, error)
	Find(ctx context.Context, f person.Filter) ([]*person.Person, error)
	FindOne(ctx context.Context, f person.Filter) (*person.Person, error)
	FindByID(ctx context.Context, id string) (*person.Person, error)
	// Save replaces the stored record with the same id.
	Save(ctx context.Context, p *person.Person) (*person.Person, error)
	FindOneAndUpdate(ctx context.Context, f person.Filter, patch person.Patch, opts person.UpdateOptions) (*person.Person, error)
	// PushFavoriteFood appends food in one store-side operation and returns the updated record.
	PushFavoriteFood(ctx context.Context, id string, food string) (*person.Person, error)
	DeleteByID(ctx context.Context, id string) (*person.Person, error)
	DeleteMany(ctx context.Context, f person.Filter) (person.DeleteResult, error)
	Exec(ctx context.Context, q *person.Query) ([]*person.Person, error)
}
