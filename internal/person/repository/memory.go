package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gogotex/people/internal/person"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateID is returned when an insert carries an id that is already stored.
var ErrDuplicateID = errors.New("duplicate person id")

// MemoryRepo is an in-memory Repository with the same semantics as MongoRepo.
// Records are kept in insertion order so unsorted finds are deterministic.
type MemoryRepo struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	store map[primitive.ObjectID]*person.Person
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[primitive.ObjectID]*person.Person)}
}

func (m *MemoryRepo) insertLocked(p *person.Person) *person.Person {
	c := p.Clone()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.store[c.ID] = c
	m.order = append(m.order, c.ID)
	return c.Clone()
}

func (m *MemoryRepo) Create(ctx context.Context, p *person.Person) (*person.Person, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !p.ID.IsZero() {
		if _, ok := m.store[p.ID]; ok {
			return nil, fmt.Errorf("%w %s", ErrDuplicateID, p.ID.Hex())
		}
	}
	return m.insertLocked(p), nil
}

func (m *MemoryRepo) CreateMany(ctx context.Context, people []*person.Person) ([]*person.Person, error) {
	if err := person.ValidateAll(people); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// preset ids are checked against the store and the batch before anything is written
	seen := make(map[primitive.ObjectID]bool, len(people))
	for i, p := range people {
		if p.ID.IsZero() {
			continue
		}
		if _, ok := m.store[p.ID]; ok || seen[p.ID] {
			return nil, fmt.Errorf("record %d: %w %s", i, ErrDuplicateID, p.ID.Hex())
		}
		seen[p.ID] = true
	}
	out := make([]*person.Person, 0, len(people))
	for _, p := range people {
		out = append(out, m.insertLocked(p))
	}
	return out, nil
}

// matchLocked returns stored records matching f in insertion order.
func (m *MemoryRepo) matchLocked(f person.Filter) []*person.Person {
	out := []*person.Person{}
	for _, id := range m.order {
		if p := m.store[id]; f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func clones(in []*person.Person) []*person.Person {
	out := make([]*person.Person, 0, len(in))
	for _, p := range in {
		out = append(out, p.Clone())
	}
	return out
}

func (m *MemoryRepo) Find(ctx context.Context, f person.Filter) ([]*person.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clones(m.matchLocked(f)), nil
}

func (m *MemoryRepo) FindOne(ctx context.Context, f person.Filter) (*person.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := m.matchLocked(f)
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0].Clone(), nil
}

func (m *MemoryRepo) FindByID(ctx context.Context, id string) (*person.Person, error) {
	oid, err := person.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.store[oid]; ok {
		return p.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepo) Save(ctx context.Context, p *person.Person) (*person.Person, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		return m.insertLocked(p), nil
	}
	if _, ok := m.store[p.ID]; !ok {
		return m.insertLocked(p), nil
	}
	m.store[p.ID] = p.Clone()
	return p.Clone(), nil
}

func (m *MemoryRepo) FindOneAndUpdate(ctx context.Context, f person.Filter, patch person.Patch, opts person.UpdateOptions) (*person.Person, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(f)
	if len(matches) == 0 {
		return nil, nil
	}
	target := matches[0]
	before := target.Clone()
	patch.Apply(target)
	if opts.ReturnNew {
		return target.Clone(), nil
	}
	return before, nil
}

func (m *MemoryRepo) PushFavoriteFood(ctx context.Context, id string, food string) (*person.Person, error) {
	oid, err := person.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[oid]
	if !ok {
		return nil, nil
	}
	p.FavoriteFoods = append(p.FavoriteFoods, food)
	return p.Clone(), nil
}

func (m *MemoryRepo) removeLocked(id primitive.ObjectID) {
	delete(m.store, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *MemoryRepo) DeleteByID(ctx context.Context, id string) (*person.Person, error) {
	oid, err := person.ParseID(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[oid]
	if !ok {
		return nil, nil
	}
	m.removeLocked(oid)
	return p.Clone(), nil
}

func (m *MemoryRepo) DeleteMany(ctx context.Context, f person.Filter) (person.DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matches := m.matchLocked(f)
	for _, p := range matches {
		m.removeLocked(p.ID)
	}
	return person.DeleteResult{DeletedCount: int64(len(matches))}, nil
}

func (m *MemoryRepo) Exec(ctx context.Context, q *person.Query) ([]*person.Person, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	matches := clones(m.matchLocked(q.Filter()))
	m.mu.RUnlock()

	q.SortPeople(matches)
	if n := q.MaxResults(); n > 0 && int64(len(matches)) > n {
		matches = matches[:n]
	}
	proj := q.Projection()
	out := make([]*person.Person, 0, len(matches))
	for _, p := range matches {
		out = append(out, proj.Apply(p))
	}
	return out, nil
}
