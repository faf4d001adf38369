package person

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilter_BSONAndMatches(t *testing.T) {
	john := New("John", 30, "Pizza", "Burger")

	cases := []struct {
		name   string
		filter Filter
		bson   bson.M
		match  bool
	}{
		{"empty matches all", Filter{}, bson.M{}, true},
		{"name", Filter{Name: "John"}, bson.M{"name": "John"}, true},
		{"other name", Filter{Name: "Mary"}, bson.M{"name": "Mary"}, false},
		{"food contained", Filter{FavoriteFood: "Burger"}, bson.M{"favoriteFoods": "Burger"}, true},
		{"food missing", Filter{FavoriteFood: "Burritos"}, bson.M{"favoriteFoods": "Burritos"}, false},
		{"age", Filter{Age: IntPtr(30)}, bson.M{"age": 30}, true},
		{"age and name", Filter{Name: "John", Age: IntPtr(31)}, bson.M{"name": "John", "age": 31}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.bson, tc.filter.BSON())
			require.Equal(t, tc.match, tc.filter.Matches(john))
		})
	}

	require.False(t, Filter{Age: IntPtr(1)}.Matches(New("NoAge", -1)))
	require.False(t, Filter{}.Matches(nil))
}

func TestPatch(t *testing.T) {
	require.ErrorIs(t, Patch{}.Validate(), ErrEmptyPatch)
	require.Error(t, Patch{Name: StringPtr("")}.Validate())

	patch := Patch{Age: IntPtr(20)}
	require.NoError(t, patch.Validate())
	require.Equal(t, bson.M{"$set": bson.M{"age": 20}}, patch.BSON())

	p := New("Alice", 25, "Pasta")
	patch.Apply(p)
	require.Equal(t, 20, *p.Age)
	require.Equal(t, "Alice", p.Name)
	require.Equal(t, []string{"Pasta"}, p.FavoriteFoods)
}

func TestQuery_Chain(t *testing.T) {
	q := Find(Filter{FavoriteFood: "Burritos"}).Sort("name").Limit(2).Select("-age")
	require.NoError(t, q.Err())
	require.Equal(t, Filter{FavoriteFood: "Burritos"}, q.Filter())
	require.Equal(t, []SortField{{Field: "name"}}, q.Sorting())
	require.Equal(t, int64(2), q.MaxResults())
	require.Equal(t, bson.D{{Key: "name", Value: 1}}, q.SortBSON())
	require.Equal(t, bson.M{"age": 0}, q.Projection().BSON())
}

func TestQuery_SortDescendingAndMultiKey(t *testing.T) {
	q := Find(Filter{}).Sort("-age name")
	require.NoError(t, q.Err())
	require.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "name", Value: 1}}, q.SortBSON())

	people := []*Person{New("b", 30), New("a", 30), New("c", 40), New("d", -1)}
	q.SortPeople(people)
	names := []string{}
	for _, p := range people {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"c", "a", "b", "d"}, names)
}

func TestQuery_BuilderErrors(t *testing.T) {
	require.ErrorIs(t, Find(Filter{}).Sort("height").Err(), ErrUnknownField)
	require.ErrorIs(t, Find(Filter{}).Select("-weight").Err(), ErrUnknownField)
	require.ErrorIs(t, Find(Filter{}).Limit(-1).Err(), ErrNegativeLimit)
	require.ErrorIs(t, Find(Filter{}).Select("name -age").Err(), ErrMixedProjection)

	// excluding _id from an inclusion list is allowed
	require.NoError(t, Find(Filter{}).Select("name -_id").Err())
}

func TestProjection_Apply(t *testing.T) {
	p := New("John", 30, "Pizza")
	p.ID = primitive.NewObjectID()

	hidden := Projection{Exclude: []string{"age"}}.Apply(p)
	require.Nil(t, hidden.Age)
	require.Equal(t, "John", hidden.Name)
	require.Equal(t, p.ID, hidden.ID)
	require.NotNil(t, p.Age, "source must not be modified")

	only := Projection{Include: []string{"name"}}.Apply(p)
	require.Equal(t, "John", only.Name)
	require.Equal(t, p.ID, only.ID)
	require.Nil(t, only.Age)
	require.Nil(t, only.FavoriteFoods)

	noID := Projection{Include: []string{"name"}, Exclude: []string{"_id"}}.Apply(p)
	require.True(t, noID.ID.IsZero())
}

func TestQuery_SortByArrayField(t *testing.T) {
	names := func(people []*Person) []string {
		out := []string{}
		for _, p := range people {
			out = append(out, p.Name)
		}
		return out
	}

	// ascending uses each array's smallest element
	people := []*Person{New("a", -1, "Zucchini", "Apple"), New("b", -1, "Banana"), New("c", -1)}
	Find(Filter{}).Sort("favoriteFoods").SortPeople(people)
	require.Equal(t, []string{"c", "a", "b"}, names(people))

	// descending uses the largest element
	people = []*Person{New("b", -1, "Banana"), New("c", -1), New("a", -1, "Apple", "Zucchini")}
	Find(Filter{}).Sort("-favoriteFoods").SortPeople(people)
	require.Equal(t, []string{"a", "b", "c"}, names(people))
}
