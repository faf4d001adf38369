package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/gogotex/people/internal/person"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// runContract checks the behaviour every Repository implementation shares.
// newRepo must return an empty repository.
func runContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create requires name", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Create(ctx, &person.Person{Age: person.IntPtr(3)})
		var verr *person.ValidationError
		require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)

		p, err := r.Create(ctx, person.New("John", 30))
		require.NoError(t, err)
		require.False(t, p.ID.IsZero())
	})

	t.Run("create many assigns distinct ids", func(t *testing.T) {
		r := newRepo(t)
		people, err := r.CreateMany(ctx, []*person.Person{
			person.New("Alice", 25, "Pasta", "Ice Cream"),
			person.New("Bob", 35, "Steak", "Sushi"),
		})
		require.NoError(t, err)
		require.Len(t, people, 2)
		require.False(t, people[0].ID.IsZero())
		require.NotEqual(t, people[0].ID, people[1].ID)

		all, err := r.Find(ctx, person.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
	})

	t.Run("create many rejects an id that is already stored", func(t *testing.T) {
		r := newRepo(t)
		john, err := r.Create(ctx, person.New("John", 30, "Pizza"))
		require.NoError(t, err)

		impostor := person.New("Impostor", 1)
		impostor.ID = john.ID
		_, err = r.CreateMany(ctx, []*person.Person{impostor})
		require.Error(t, err)

		all, err := r.Find(ctx, person.Filter{})
		require.NoError(t, err)
		require.Len(t, all, 1)
		require.Equal(t, "John", all[0].Name)
	})

	t.Run("create many with an invalid record writes nothing", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.CreateMany(ctx, []*person.Person{person.New("Ok", 1), {Name: ""}})
		require.Error(t, err)
		all, err := r.Find(ctx, person.Filter{})
		require.NoError(t, err)
		require.Empty(t, all)
	})

	t.Run("find without matches is empty, not an error", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Create(ctx, person.New("John", 30))
		require.NoError(t, err)

		people, err := r.Find(ctx, person.Filter{Name: "Nobody"})
		require.NoError(t, err)
		require.NotNil(t, people)
		require.Empty(t, people)
	})

	t.Run("find one without match is absent", func(t *testing.T) {
		r := newRepo(t)
		p, err := r.FindOne(ctx, person.Filter{FavoriteFood: "Durian"})
		require.NoError(t, err)
		require.Nil(t, p)
	})

	t.Run("find one by favorite food", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Create(ctx, person.New("John", 30, "Pizza", "Burger"))
		require.NoError(t, err)
		p, err := r.FindOne(ctx, person.Filter{FavoriteFood: "Pizza"})
		require.NoError(t, err)
		require.NotNil(t, p)
		require.Equal(t, "John", p.Name)
	})

	t.Run("find by id", func(t *testing.T) {
		r := newRepo(t)
		john, err := r.Create(ctx, person.New("John", 30))
		require.NoError(t, err)

		got, err := r.FindByID(ctx, john.ID.Hex())
		require.NoError(t, err)
		require.Equal(t, john, got)

		got, err = r.FindByID(ctx, primitive.NewObjectID().Hex())
		require.NoError(t, err)
		require.Nil(t, got)

		_, err = r.FindByID(ctx, "insert_person_id_here")
		require.ErrorIs(t, err, person.ErrInvalidID)
	})

	t.Run("end to end insert then find by name", func(t *testing.T) {
		r := newRepo(t)
		john, err := r.Create(ctx, person.New("John", 30, "Pizza", "Burger"))
		require.NoError(t, err)

		people, err := r.Find(ctx, person.Filter{Name: "John"})
		require.NoError(t, err)
		require.Len(t, people, 1)
		require.Equal(t, john, people[0])
		require.Equal(t, []string{"Pizza", "Burger"}, people[0].FavoriteFoods)
		require.Equal(t, 30, *people[0].Age)
	})

	t.Run("find one and update returns new or old", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.Create(ctx, person.New("Alice", 25))
		require.NoError(t, err)

		after, err := r.FindOneAndUpdate(ctx, person.Filter{Name: "Alice"}, person.Patch{Age: person.IntPtr(20)}, person.UpdateOptions{ReturnNew: true})
		require.NoError(t, err)
		require.Equal(t, 20, *after.Age)

		before, err := r.FindOneAndUpdate(ctx, person.Filter{Name: "Alice"}, person.Patch{Age: person.IntPtr(21)}, person.UpdateOptions{})
		require.NoError(t, err)
		require.Equal(t, 20, *before.Age)

		stored, err := r.FindOne(ctx, person.Filter{Name: "Alice"})
		require.NoError(t, err)
		require.Equal(t, 21, *stored.Age)

		missing, err := r.FindOneAndUpdate(ctx, person.Filter{Name: "Zed"}, person.Patch{Age: person.IntPtr(1)}, person.UpdateOptions{ReturnNew: true})
		require.NoError(t, err)
		require.Nil(t, missing)
	})

	t.Run("push favorite food and save", func(t *testing.T) {
		r := newRepo(t)
		john, err := r.Create(ctx, person.New("John", 30, "Pizza"))
		require.NoError(t, err)

		pushed, err := r.PushFavoriteFood(ctx, john.ID.Hex(), "Hamburger")
		require.NoError(t, err)
		require.Equal(t, []string{"Pizza", "Hamburger"}, pushed.FavoriteFoods)

		pushed.Age = person.IntPtr(31)
		saved, err := r.Save(ctx, pushed)
		require.NoError(t, err)
		require.Equal(t, pushed, saved)

		got, err := r.FindByID(ctx, john.ID.Hex())
		require.NoError(t, err)
		require.Equal(t, 31, *got.Age)
		require.Equal(t, []string{"Pizza", "Hamburger"}, got.FavoriteFoods)

		_, err = r.Save(ctx, &person.Person{ID: john.ID})
		require.Error(t, err, "saving without a name must fail validation")

		absent, err := r.PushFavoriteFood(ctx, primitive.NewObjectID().Hex(), "Tea")
		require.NoError(t, err)
		require.Nil(t, absent)
	})

	t.Run("delete by id and by filter", func(t *testing.T) {
		r := newRepo(t)
		people, err := r.CreateMany(ctx, []*person.Person{
			person.New("Mary", 40), person.New("Mary", 41), person.New("Bob", 35),
		})
		require.NoError(t, err)

		removed, err := r.DeleteByID(ctx, people[2].ID.Hex())
		require.NoError(t, err)
		require.Equal(t, "Bob", removed.Name)

		again, err := r.DeleteByID(ctx, people[2].ID.Hex())
		require.NoError(t, err)
		require.Nil(t, again)

		res, err := r.DeleteMany(ctx, person.Filter{Name: "Mary"})
		require.NoError(t, err)
		require.Equal(t, int64(2), res.DeletedCount)

		res, err = r.DeleteMany(ctx, person.Filter{Name: "Mary"})
		require.NoError(t, err)
		require.Equal(t, int64(0), res.DeletedCount)
	})

	t.Run("chained query sorts limits and hides age", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.CreateMany(ctx, []*person.Person{
			person.New("Dana", 41, "Burritos"),
			person.New("Carl", 22, "Tacos", "Burritos"),
			person.New("Ann", 33, "Burritos"),
			person.New("Ben", 28, "Burritos", "Pizza"),
			person.New("Abe", 50, "Pizza"),
		})
		require.NoError(t, err)

		q := person.Find(person.Filter{FavoriteFood: "Burritos"}).Sort("name").Limit(2).Select("-age")
		people, err := r.Exec(ctx, q)
		require.NoError(t, err)
		require.Len(t, people, 2)
		require.Equal(t, "Ann", people[0].Name)
		require.Equal(t, "Ben", people[1].Name)
		for _, p := range people {
			require.Nil(t, p.Age)
			require.False(t, p.ID.IsZero())
			require.NotEmpty(t, p.FavoriteFoods)
		}

		_, err = r.Exec(ctx, person.Find(person.Filter{}).Select("name -age"))
		require.ErrorIs(t, err, person.ErrMixedProjection)
	})
}
