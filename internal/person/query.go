package person

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field names as stored in the collection.
const (
	FieldID            = "_id"
	FieldName          = "name"
	FieldAge           = "age"
	FieldFavoriteFoods = "favoriteFoods"
)

var (
	ErrUnknownField    = errors.New("unknown person field")
	ErrMixedProjection = errors.New("projection cannot mix inclusion and exclusion")
	ErrNegativeLimit   = errors.New("limit must not be negative")
	ErrEmptyPatch      = errors.New("patch has no fields to set")
)

var knownFields = map[string]bool{
	FieldID:            true,
	FieldName:          true,
	FieldAge:           true,
	FieldFavoriteFoods: true,
}

// Filter selects records. Zero-valued fields are ignored, so Filter{} matches everything.
type Filter struct {
	Name         string // exact match
	FavoriteFood string // favoriteFoods contains the value
	Age          *int   // exact match
}

// BSON renders the filter as a Mongo query document.
func (f Filter) BSON() bson.M {
	m := bson.M{}
	if f.Name != "" {
		m[FieldName] = f.Name
	}
	if f.FavoriteFood != "" {
		// equality against an array field matches any element
		m[FieldFavoriteFoods] = f.FavoriteFood
	}
	if f.Age != nil {
		m[FieldAge] = *f.Age
	}
	return m
}

// Matches reports whether p satisfies the filter with the same semantics as BSON().
func (f Filter) Matches(p *Person) bool {
	if p == nil {
		return false
	}
	if f.Name != "" && p.Name != f.Name {
		return false
	}
	if f.FavoriteFood != "" && !contains(p.FavoriteFoods, f.FavoriteFood) {
		return false
	}
	if f.Age != nil && (p.Age == nil || *p.Age != *f.Age) {
		return false
	}
	return true
}

func (f Filter) String() string {
	parts := []string{}
	if f.Name != "" {
		parts = append(parts, "name="+f.Name)
	}
	if f.FavoriteFood != "" {
		parts = append(parts, "favoriteFoods="+f.FavoriteFood)
	}
	if f.Age != nil {
		parts = append(parts, fmt.Sprintf("age=%d", *f.Age))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Patch lists the fields a find-and-update sets. Nil fields are left untouched.
type Patch struct {
	Name          *string
	Age           *int
	FavoriteFoods []string
}

func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.FavoriteFoods == nil
}

// Validate rejects patches that would break the record shape.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Name != nil && *p.Name == "" {
		return &ValidationError{Field: FieldName, Err: errors.New(`failed "required" rule`)}
	}
	return nil
}

// BSON renders the patch as a $set update document.
func (p Patch) BSON() bson.M {
	set := bson.M{}
	if p.Name != nil {
		set[FieldName] = *p.Name
	}
	if p.Age != nil {
		set[FieldAge] = *p.Age
	}
	if p.FavoriteFoods != nil {
		set[FieldFavoriteFoods] = p.FavoriteFoods
	}
	return bson.M{"$set": set}
}

// Apply mutates dst in place.
func (p Patch) Apply(dst *Person) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Age != nil {
		dst.Age = IntPtr(*p.Age)
	}
	if p.FavoriteFoods != nil {
		dst.FavoriteFoods = append([]string(nil), p.FavoriteFoods...)
	}
}

// UpdateOptions controls find-and-update. ReturnNew selects the post-update record.
type UpdateOptions struct {
	ReturnNew bool
}

// DeleteResult summarises a bulk delete.
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

// SortField is one key of a sort specification.
type SortField struct {
	Field string
	Desc  bool
}

// Projection is either an inclusion or an exclusion list, never both.
type Projection struct {
	Include []string
	Exclude []string
}

func (p Projection) IsEmpty() bool { return len(p.Include) == 0 && len(p.Exclude) == 0 }

// BSON renders the projection document, or nil when nothing is projected.
func (p Projection) BSON() bson.M {
	if p.IsEmpty() {
		return nil
	}
	m := bson.M{}
	for _, f := range p.Include {
		m[f] = 1
	}
	for _, f := range p.Exclude {
		m[f] = 0
	}
	return m
}

// Apply returns a copy of src restricted to the projected fields.
// _id is kept by inclusion lists unless explicitly excluded.
func (p Projection) Apply(src *Person) *Person {
	out := src.Clone()
	if p.IsEmpty() {
		return out
	}
	keep := map[string]bool{}
	if len(p.Include) > 0 {
		keep[FieldID] = true
		for _, f := range p.Include {
			keep[f] = true
		}
	} else {
		for f := range knownFields {
			keep[f] = true
		}
		for _, f := range p.Exclude {
			keep[f] = false
		}
	}
	if !keep[FieldID] {
		out.ID = primitive.NilObjectID
	}
	if !keep[FieldName] {
		out.Name = ""
	}
	if !keep[FieldAge] {
		out.Age = nil
	}
	if !keep[FieldFavoriteFoods] {
		out.FavoriteFoods = nil
	}
	return out
}

// Query is a chainable find: filter, then sort, limit and projection.
// Builder errors are deferred and reported by Err so that calls can be chained.
type Query struct {
	filter     Filter
	sorting    []SortField
	limit      int64
	projection Projection
	err        error
}

// Find starts a query over the records matching f.
func Find(f Filter) *Query {
	return &Query{filter: f}
}

// Sort appends sort keys. fields is space separated; a leading '-' sorts descending.
func (q *Query) Sort(fields string) *Query {
	for _, tok := range strings.Fields(fields) {
		sf := SortField{Field: tok}
		if strings.HasPrefix(tok, "-") {
			sf = SortField{Field: tok[1:], Desc: true}
		} else if strings.HasPrefix(tok, "+") {
			sf.Field = tok[1:]
		}
		if !knownFields[sf.Field] {
			q.setErr(fmt.Errorf("sort %q: %w", sf.Field, ErrUnknownField))
			continue
		}
		q.sorting = append(q.sorting, sf)
	}
	return q
}

// Limit caps the number of returned records. 0 means no limit.
func (q *Query) Limit(n int64) *Query {
	if n < 0 {
		q.setErr(ErrNegativeLimit)
		return q
	}
	q.limit = n
	return q
}

// Select sets the projection. "-age" hides age; "name favoriteFoods" keeps only those.
func (q *Query) Select(fields string) *Query {
	for _, tok := range strings.Fields(fields) {
		exclude := strings.HasPrefix(tok, "-")
		field := strings.TrimPrefix(tok, "-")
		if !knownFields[field] {
			q.setErr(fmt.Errorf("select %q: %w", field, ErrUnknownField))
			continue
		}
		if exclude {
			q.projection.Exclude = append(q.projection.Exclude, field)
		} else {
			q.projection.Include = append(q.projection.Include, field)
		}
	}
	// _id may be excluded from an inclusion list; anything else is a mix
	if len(q.projection.Include) > 0 {
		for _, f := range q.projection.Exclude {
			if f != FieldID {
				q.setErr(ErrMixedProjection)
				break
			}
		}
	}
	return q
}

func (q *Query) setErr(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Err returns the first error recorded while building the query.
func (q *Query) Err() error { return q.err }

func (q *Query) Filter() Filter { return q.filter }

func (q *Query) Sorting() []SortField { return q.sorting }

// MaxResults is the limit set on the query, 0 when unlimited.
func (q *Query) MaxResults() int64 { return q.limit }

func (q *Query) Projection() Projection { return q.projection }

// SortBSON renders the sort keys as an ordered document.
func (q *Query) SortBSON() bson.D {
	if len(q.sorting) == 0 {
		return nil
	}
	d := bson.D{}
	for _, s := range q.sorting {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return d
}

// SortPeople orders people in place following the query's sort keys.
// Missing ages sort before present ones, matching the store's null ordering.
func (q *Query) SortPeople(people []*Person) {
	if len(q.sorting) == 0 {
		return
	}
	sort.SliceStable(people, func(i, j int) bool {
		for _, s := range q.sorting {
			c := compareField(people[i], people[j], s.Field, s.Desc)
			if c == 0 {
				continue
			}
			if s.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareField orders a and b on one field. Arrays compare by their smallest
// element ascending and their largest descending; empty arrays sort lowest.
func compareField(a, b *Person, field string, desc bool) int {
	switch field {
	case FieldName:
		return strings.Compare(a.Name, b.Name)
	case FieldAge:
		switch {
		case a.Age == nil && b.Age == nil:
			return 0
		case a.Age == nil:
			return -1
		case b.Age == nil:
			return 1
		case *a.Age < *b.Age:
			return -1
		case *a.Age > *b.Age:
			return 1
		}
		return 0
	case FieldFavoriteFoods:
		ak, aok := arraySortKey(a.FavoriteFoods, desc)
		bk, bok := arraySortKey(b.FavoriteFoods, desc)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return -1
		case !bok:
			return 1
		}
		return strings.Compare(ak, bk)
	case FieldID:
		return strings.Compare(a.ID.Hex(), b.ID.Hex())
	}
	return 0
}

func arraySortKey(values []string, desc bool) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	key := values[0]
	for _, v := range values[1:] {
		if (desc && v > key) || (!desc && v < key) {
			key = v
		}
	}
	return key, true
}
