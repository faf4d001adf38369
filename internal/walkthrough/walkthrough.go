// Package walkthrough runs the fixed sequence of example person operations:
// save, create-many, the three finds, both update styles, both deletes and a
// chained query. Each step is independent; a failing step is reported on the
// error stream and the next one still runs.
package walkthrough

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogotex/people/internal/person"
	"github.com/gogotex/people/internal/person/service"
	"github.com/gogotex/people/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// errSkipped marks a step whose input came from an earlier step that failed.
var errSkipped = errors.New("skipped: depends on a record from an earlier step")

// Options configures a Runner. Out defaults to stdout; MaxParallel defaults to 4.
type Options struct {
	Out         io.Writer
	Parallel    bool
	MaxParallel int
}

// StepResult is the outcome of one step. Output is the line printed on success.
type StepResult struct {
	Name    string
	Output  string
	Err     error
	Skipped bool
}

// Report lists step results in declaration order.
type Report struct {
	Steps []StepResult
}

// Failed returns the steps that ended with an error (skips excluded).
func (r Report) Failed() []StepResult {
	out := []StepResult{}
	for _, s := range r.Steps {
		if s.Err != nil && !s.Skipped {
			out = append(out, s)
		}
	}
	return out
}

// Step returns the named result, or false when no such step ran.
func (r Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}

// state carries records created by earlier steps to later ones.
type state struct {
	john  *person.Person
	alice *person.Person
	bob   *person.Person
}

type step struct {
	name     string
	readOnly bool
	run      func(ctx context.Context, svc service.Service, st *state) (string, error)
}

// Runner executes the example steps against a Service.
type Runner struct {
	svc  service.Service
	opts Options
}

func New(svc service.Service, opts Options) *Runner {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	return &Runner{svc: svc, opts: opts}
}

// Run executes every step. Sequentially by default; with Parallel set,
// consecutive read-only steps form one task group that runs concurrently and
// joins before the next step starts. Output is always printed in step order.
func (r *Runner) Run(ctx context.Context) Report {
	st := &state{}
	report := Report{}
	for _, phase := range r.phases() {
		results := make([]StepResult, len(phase))
		if len(phase) == 1 {
			results[0] = r.exec(ctx, phase[0], st)
		} else {
			var g errgroup.Group
			g.SetLimit(r.opts.MaxParallel)
			for i, s := range phase {
				i, s := i, s
				g.Go(func() error {
					results[i] = r.exec(ctx, s, st)
					return nil
				})
			}
			_ = g.Wait()
		}
		for _, res := range results {
			r.print(res)
		}
		report.Steps = append(report.Steps, results...)
	}
	return report
}

// phases splits the steps into groups that may run together.
func (r *Runner) phases() [][]step {
	all := steps()
	if !r.opts.Parallel {
		out := make([][]step, 0, len(all))
		for _, s := range all {
			out = append(out, []step{s})
		}
		return out
	}
	out := [][]step{}
	var group []step
	for _, s := range all {
		if s.readOnly {
			group = append(group, s)
			continue
		}
		if len(group) > 0 {
			out = append(out, group)
			group = nil
		}
		out = append(out, []step{s})
	}
	if len(group) > 0 {
		out = append(out, group)
	}
	return out
}

func (r *Runner) exec(ctx context.Context, s step, st *state) StepResult {
	msg, err := s.run(ctx, r.svc, st)
	return StepResult{Name: s.name, Output: msg, Err: err, Skipped: errors.Is(err, errSkipped)}
}

func (r *Runner) print(res StepResult) {
	switch {
	case res.Skipped:
		logger.Warnf("%s: %v", res.Name, res.Err)
	case res.Err != nil:
		logger.Errorf("%s: %v", res.Name, res.Err)
	default:
		fmt.Fprintln(r.opts.Out, res.Output)
	}
}

func render(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// Names of the example steps, in execution order.
const (
	StepSave             = "save"
	StepCreateMany       = "create-many"
	StepFindByName       = "find-by-name"
	StepFindOneByFood    = "find-one-by-food"
	StepFindByID         = "find-by-id"
	StepAddFavoriteFood  = "add-favorite-food"
	StepFindOneAndUpdate = "find-one-and-update"
	StepDeleteByID       = "delete-by-id"
	StepDeleteMany       = "delete-many"
	StepChainedQuery     = "chained-query"
)

func steps() []step {
	const (
		food         = "Pizza"
		nameToUpdate = "Alice"
		nameToDelete = "Mary"
	)
	return []step{
		{name: StepSave, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			p, err := svc.Create(ctx, person.New("John", 30, "Pizza", "Burger"))
			if err != nil {
				return "", err
			}
			st.john = p
			return "Person saved successfully: " + render(p), nil
		}},
		{name: StepCreateMany, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			people, err := svc.CreateMany(ctx, []*person.Person{
				person.New("Alice", 25, "Pasta", "Ice Cream"),
				person.New("Bob", 35, "Steak", "Sushi"),
			})
			if err != nil {
				return "", err
			}
			st.alice, st.bob = people[0], people[1]
			return "People created successfully: " + render(people), nil
		}},
		{name: StepFindByName, readOnly: true, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			people, err := svc.Find(ctx, person.Filter{Name: "John"})
			if err != nil {
				return "", err
			}
			return "People with name John: " + render(people), nil
		}},
		{name: StepFindOneByFood, readOnly: true, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			p, err := svc.FindOne(ctx, person.Filter{FavoriteFood: food})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Person with favorite food %s: %s", food, render(p)), nil
		}},
		{name: StepFindByID, readOnly: true, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			if st.john == nil {
				return "", errSkipped
			}
			p, err := svc.FindByID(ctx, st.john.ID.Hex())
			if err != nil {
				return "", err
			}
			return "Person found by ID: " + render(p), nil
		}},
		// Appends with a store-side $push instead of loading the record and
		// saving it back, so a concurrent writer is not overwritten.
		// UpdateByLoadSave still offers the load-then-save form.
		{name: StepAddFavoriteFood, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			if st.john == nil {
				return "", errSkipped
			}
			p, err := svc.AddFavoriteFood(ctx, st.john.ID.Hex(), "Hamburger")
			if err != nil {
				return "", err
			}
			return "Person updated successfully: " + render(p), nil
		}},
		{name: StepFindOneAndUpdate, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			p, err := svc.FindOneAndUpdate(ctx,
				person.Filter{Name: nameToUpdate},
				person.Patch{Age: person.IntPtr(20)},
				person.UpdateOptions{ReturnNew: true})
			if err != nil {
				return "", err
			}
			return "Person updated using findOneAndUpdate: " + render(p), nil
		}},
		{name: StepDeleteByID, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			if st.bob == nil {
				return "", errSkipped
			}
			p, err := svc.DeleteByID(ctx, st.bob.ID.Hex())
			if err != nil {
				return "", err
			}
			return "Person removed by ID: " + render(p), nil
		}},
		{name: StepDeleteMany, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			res, err := svc.DeleteMany(ctx, person.Filter{Name: nameToDelete})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Removed all people with name %s. Result: %s", nameToDelete, render(res)), nil
		}},
		{name: StepChainedQuery, readOnly: true, run: func(ctx context.Context, svc service.Service, st *state) (string, error) {
			q := person.Find(person.Filter{FavoriteFood: "Burritos"}).Sort("name").Limit(2).Select("-age")
			people, err := svc.Exec(ctx, q)
			if err != nil {
				return "", err
			}
			return "People who like Burritos (sorted by name, limited to 2, age hidden): " + render(people), nil
		}},
	}
}
