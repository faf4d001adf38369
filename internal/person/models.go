package person

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrInvalidID is returned when an identifier is not a 24 character hex ObjectID.
	ErrInvalidID = errors.New("invalid person id")
)

// Person is the record stored in the "people" collection.
// Age is a pointer so that an absent (or projected-out) age is distinguishable from 0.
type Person struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name" validate:"required"`
	Age           *int               `json:"age,omitempty" bson:"age,omitempty"`
	FavoriteFoods []string           `json:"favoriteFoods,omitempty" bson:"favoriteFoods,omitempty"`
}

// New builds a Person. Pass a negative age to leave it unset.
func New(name string, age int, foods ...string) *Person {
	p := &Person{Name: name}
	if age >= 0 {
		p.Age = IntPtr(age)
	}
	if len(foods) > 0 {
		p.FavoriteFoods = append([]string(nil), foods...)
	}
	return p
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// Clone returns a deep copy so callers never share slices with a store.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	c := *p
	if p.Age != nil {
		c.Age = IntPtr(*p.Age)
	}
	if p.FavoriteFoods != nil {
		c.FavoriteFoods = append([]string(nil), p.FavoriteFoods...)
	}
	return &c
}

// ParseID converts a hex string into an ObjectID, wrapping ErrInvalidID on failure.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// ValidationError reports a record that does not satisfy the Person shape.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("person validation failed: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names (name, age, favoriteFoods) instead of Go names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the record against the declared shape: name is required and non-empty.
func (p *Person) Validate() error {
	if p == nil {
		return &ValidationError{Field: "person", Err: errors.New("record is nil")}
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ValidationError{Field: verrs[0].Field(), Err: fmt.Errorf("failed %q rule", verrs[0].Tag())}
		}
		return &ValidationError{Field: "person", Err: err}
	}
	return nil
}

// ValidateAll validates a batch and reports the index of the first invalid record.
func ValidateAll(people []*Person) error {
	for i, p := range people {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}
