package service

import (
	"context"
	"errors"
	"time"

	"github.com/gogotex/people/internal/person"
	"github.com/gogotex/people/internal/person/repository"
	"github.com/gogotex/people/pkg/logger"
	"github.com/gogotex/people/pkg/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// Service defines the person operations used by the walkthrough and the HTTP handler.
// Absent records are reported as a nil *Person with a nil error.
type Service interface {
	Create(ctx context.Context, p *person.Person) (*person.Person, error)
	CreateMany(ctx context.Context, people []*person.Person) ([]*person.Person, error)
	Find(ctx context.Context, f person.Filter) ([]*person.Person, error)
	FindOne(ctx context.Context, f person.Filter) (*person.Person, error)
	FindByID(ctx context.Context, id string) (*person.Person, error)
	// UpdateByLoadSave loads a record, applies mutate in memory and saves the whole
	// record back. A concurrent writer between the load and the save is overwritten.
	UpdateByLoadSave(ctx context.Context, id string, mutate func(*person.Person)) (*person.Person, error)
	// AddFavoriteFood appends food atomically on the store side.
	AddFavoriteFood(ctx context.Context, id, food string) (*person.Person, error)
	FindOneAndUpdate(ctx context.Context, f person.Filter, patch person.Patch, opts person.UpdateOptions) (*person.Person, error)
	DeleteByID(ctx context.Context, id string) (*person.Person, error)
	DeleteMany(ctx context.Context, f person.Filter) (person.DeleteResult, error)
	Exec(ctx context.Context, q *person.Query) ([]*person.Person, error)
}

// New returns a Service over any repository.
func New(repo repository.Repository) Service {
	return &personService{repo: repo}
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService() Service {
	return New(repository.NewMemoryRepo())
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection) Service {
	return New(repository.NewMongoRepo(col))
}

type personService struct {
	repo repository.Repository
}

// observe records the outcome of one store call.
func observe(op string, start time.Time, absent bool, err error) {
	result := "ok"
	switch {
	case err != nil:
		result = "error"
		logger.Debugf("%s failed after %s: %v", op, time.Since(start), err)
	case absent:
		result = "absent"
	}
	metrics.StoreOperations.WithLabelValues(op, result).Inc()
	metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *personService) Create(ctx context.Context, p *person.Person) (out *person.Person, err error) {
	defer func(start time.Time) { observe("create", start, false, err) }(time.Now())
	return s.repo.Create(ctx, p)
}

func (s *personService) CreateMany(ctx context.Context, people []*person.Person) (out []*person.Person, err error) {
	defer func(start time.Time) { observe("create_many", start, false, err) }(time.Now())
	return s.repo.CreateMany(ctx, people)
}

func (s *personService) Find(ctx context.Context, f person.Filter) (out []*person.Person, err error) {
	defer func(start time.Time) { observe("find", start, err == nil && len(out) == 0, err) }(time.Now())
	return s.repo.Find(ctx, f)
}

func (s *personService) FindOne(ctx context.Context, f person.Filter) (out *person.Person, err error) {
	defer func(start time.Time) { observe("find_one", start, out == nil, err) }(time.Now())
	return s.repo.FindOne(ctx, f)
}

func (s *personService) FindByID(ctx context.Context, id string) (out *person.Person, err error) {
	defer func(start time.Time) { observe("find_by_id", start, out == nil, err) }(time.Now())
	return s.repo.FindByID(ctx, id)
}

func (s *personService) UpdateByLoadSave(ctx context.Context, id string, mutate func(*person.Person)) (out *person.Person, err error) {
	defer func(start time.Time) { observe("load_save", start, out == nil, err) }(time.Now())
	if mutate == nil {
		return nil, errors.New("mutate func is nil")
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	mutate(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, p)
}

func (s *personService) AddFavoriteFood(ctx context.Context, id, food string) (out *person.Person, err error) {
	defer func(start time.Time) { observe("push_food", start, out == nil, err) }(time.Now())
	if food == "" {
		return nil, &person.ValidationError{Field: person.FieldFavoriteFoods, Err: errors.New("food must not be empty")}
	}
	return s.repo.PushFavoriteFood(ctx, id, food)
}

func (s *personService) FindOneAndUpdate(ctx context.Context, f person.Filter, patch person.Patch, opts person.UpdateOptions) (out *person.Person, err error) {
	defer func(start time.Time) { observe("find_one_and_update", start, out == nil, err) }(time.Now())
	return s.repo.FindOneAndUpdate(ctx, f, patch, opts)
}

func (s *personService) DeleteByID(ctx context.Context, id string) (out *person.Person, err error) {
	defer func(start time.Time) { observe("delete_by_id", start, out == nil, err) }(time.Now())
	return s.repo.DeleteByID(ctx, id)
}

func (s *personService) DeleteMany(ctx context.Context, f person.Filter) (out person.DeleteResult, err error) {
	defer func(start time.Time) { observe("delete_many", start, out.DeletedCount == 0, err) }(time.Now())
	return s.repo.DeleteMany(ctx, f)
}

func (s *personService) Exec(ctx context.Context, q *person.Query) (out []*person.Person, err error) {
	defer func(start time.Time) { observe("query", start, err == nil && len(out) == 0, err) }(time.Now())
	if q == nil {
		return nil, errors.New("query is nil")
	}
	return s.repo.Exec(ctx, q)
}
