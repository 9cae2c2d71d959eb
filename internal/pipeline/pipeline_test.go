package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/seoscan/seoscan/internal/model"
)

// fakeStep is a test double that records execution and optionally
// fails.
type fakeStep struct {
	name     string
	err      error
	executed bool
}

func (s *fakeStep) Do(_ context.Context, _ *RunState) error {
	s.executed = true
	return s.err
}

func (s *fakeStep) Name() string { return s.name }

func testProject() *model.Project {
	return &model.Project{Slug: "demo", BaseURL: "https://example.com"}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("should execute steps in order", func(t *testing.T) {
		t.Parallel()

		first := &fakeStep{name: "first"}
		second := &fakeStep{name: "second"}

		p := New()
		p.AddSteps(first, second)

		state := NewRunState(testProject())
		if err := p.Execute(context.Background(), state); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		if !first.executed || !second.executed {
			t.Error("not all steps executed")
		}
		if len(state.StepsRun) != 2 || state.StepsRun[0] != "first" || state.StepsRun[1] != "second" {
			t.Errorf("StepsRun = %v", state.StepsRun)
		}
	})

	t.Run("should stop on the first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &fakeStep{name: "failing", err: boom}
		after := &fakeStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)

		state := NewRunState(testProject())
		if err := p.Execute(context.Background(), state); !errors.Is(err, boom) {
			t.Fatalf("Execute() = %v, want boom", err)
		}
		if after.executed {
			t.Error("step after failure was executed")
		}
		if state.Err != "boom" {
			t.Errorf("state.Err = %q, want boom", state.Err)
		}
	})

	t.Run("should continue after errors when configured", func(t *testing.T) {
		t.Parallel()

		failing := &fakeStep{name: "failing", err: errors.New("boom")}
		after := &fakeStep{name: "after"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, after)

		state := NewRunState(testProject())
		if err := p.Execute(context.Background(), state); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if !after.executed {
			t.Error("step after failure was not executed")
		}
		if state.Err != "boom" {
			t.Errorf("state.Err = %q, want first error preserved", state.Err)
		}
	})

	t.Run("should respect context cancellation", func(t *testing.T) {
		t.Parallel()

		step := &fakeStep{name: "never"}
		p := New()
		p.AddStep(step)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		state := NewRunState(testProject())
		if err := p.Execute(ctx, state); !errors.Is(err, context.Canceled) {
			t.Fatalf("Execute() = %v, want context.Canceled", err)
		}
		if step.executed {
			t.Error("step executed after cancellation")
		}
	})

	t.Run("should report step names", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&fakeStep{name: "a"}, &fakeStep{name: "b"})

		if p.StepCount() != 2 {
			t.Errorf("StepCount() = %d, want 2", p.StepCount())
		}
		names := p.StepNames()
		if len(names) != 2 || names[0] != "a" || names[1] != "b" {
			t.Errorf("StepNames() = %v", names)
		}
	})
}
