package walkthrough

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gogotex/people/internal/person"
	"github.com/gogotex/people/internal/person/repository"
	"github.com/gogotex/people/internal/person/service"
	"github.com/gogotex/people/pkg/logger"
	"github.com/stretchr/testify/require"
)

func quietLogs(t *testing.T) *bytes.Buffer {
	var errOut bytes.Buffer
	logger.SetOutput(&bytes.Buffer{}, &errOut)
	t.Cleanup(func() { logger.SetOutput(nil, nil) })
	return &errOut
}

func TestRun_AllStepsSucceedInOrder(t *testing.T) {
	quietLogs(t)
	var out bytes.Buffer
	svc := service.NewMemoryService()

	report := New(svc, Options{Out: &out}).Run(context.Background())

	require.Empty(t, report.Failed())
	names := []string{}
	for _, s := range report.Steps {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{
		StepSave, StepCreateMany, StepFindByName, StepFindOneByFood, StepFindByID,
		StepAddFavoriteFood, StepFindOneAndUpdate, StepDeleteByID, StepDeleteMany, StepChainedQuery,
	}, names)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 10)
	require.True(t, strings.HasPrefix(lines[0], "Person saved successfully: "))
	require.True(t, strings.HasPrefix(lines[9], "People who like Burritos"))

	s, ok := report.Step(StepFindOneAndUpdate)
	require.True(t, ok)
	require.Contains(t, s.Output, `"name":"Alice"`)
	require.Contains(t, s.Output, `"age":20`)

	s, _ = report.Step(StepDeleteMany)
	require.Contains(t, s.Output, `{"deletedCount":0}`)

	s, _ = report.Step(StepChainedQuery)
	require.True(t, strings.HasSuffix(s.Output, ": []"))

	// final state: John with Hamburger, Alice aged 20, Bob removed
	people, err := svc.Find(context.Background(), person.Filter{})
	require.NoError(t, err)
	require.Len(t, people, 2)
	require.Equal(t, []string{"Pizza", "Burger", "Hamburger"}, people[0].FavoriteFoods)
	require.Equal(t, 20, *people[1].Age)
}

func TestRun_FindByNameReturnsInsertedRecord(t *testing.T) {
	quietLogs(t)
	svc := service.NewMemoryService()
	report := New(svc, Options{Out: &bytes.Buffer{}}).Run(context.Background())

	saved, _ := report.Step(StepSave)
	found, _ := report.Step(StepFindByName)
	// the find output lists exactly the saved record
	savedJSON := strings.TrimPrefix(saved.Output, "Person saved successfully: ")
	require.Equal(t, "People with name John: ["+savedJSON+"]", found.Output)
}

func TestRun_ParallelMatchesSequential(t *testing.T) {
	quietLogs(t)
	var seq, par bytes.Buffer
	New(service.NewMemoryService(), Options{Out: &seq}).Run(context.Background())
	report := New(service.NewMemoryService(), Options{Out: &par, Parallel: true, MaxParallel: 2}).Run(context.Background())

	require.Empty(t, report.Failed())
	require.Len(t, report.Steps, 10)
	// ids differ between runs, so compare the message prefixes line by line
	seqLines := strings.Split(strings.TrimSpace(seq.String()), "\n")
	parLines := strings.Split(strings.TrimSpace(par.String()), "\n")
	require.Len(t, parLines, len(seqLines))
	for i := range seqLines {
		require.Equal(t, strings.SplitN(seqLines[i], ":", 2)[0], strings.SplitN(parLines[i], ":", 2)[0])
	}
}

func TestPhases_GroupConsecutiveReads(t *testing.T) {
	r := New(service.NewMemoryService(), Options{Parallel: true})
	sizes := []int{}
	for _, p := range r.phases() {
		sizes = append(sizes, len(p))
	}
	// save, create-many, [3 reads], push, update, delete, delete-many, [query]
	require.Equal(t, []int{1, 1, 3, 1, 1, 1, 1, 1}, sizes)
}

// brokenCreate fails single inserts so steps depending on John are skipped.
type brokenCreate struct {
	*repository.MemoryRepo
}

func (b *brokenCreate) Create(ctx context.Context, p *person.Person) (*person.Person, error) {
	return nil, errors.New("insert refused")
}

func TestRun_StepErrorsDoNotStopTheRun(t *testing.T) {
	errOut := quietLogs(t)
	var out bytes.Buffer
	svc := service.New(&brokenCreate{MemoryRepo: repository.NewMemoryRepo()})

	report := New(svc, Options{Out: &out}).Run(context.Background())

	require.Len(t, report.Steps, 10)
	failed := report.Failed()
	require.Len(t, failed, 1)
	require.Equal(t, StepSave, failed[0].Name)

	for _, name := range []string{StepFindByID, StepAddFavoriteFood} {
		s, ok := report.Step(name)
		require.True(t, ok)
		require.True(t, s.Skipped, name)
	}
	s, _ := report.Step(StepDeleteByID)
	require.NoError(t, s.Err, "Bob came from create-many and is still deletable")

	require.Contains(t, errOut.String(), "save: insert refused")
	require.NotContains(t, out.String(), "Person saved successfully")
	require.Contains(t, out.String(), "People created successfully")
}
