package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seoscan/seoscan/internal/model"
)

func schedTestProject(slug, schedule string) *model.Project {
	return &model.Project{
		Slug:     slug,
		BaseURL:  "https://example.com",
		Schedule: schedule,
	}
}

func TestSchedulerAdd(t *testing.T) {
	t.Parallel()

	t.Run("should register a project with a valid schedule", func(t *testing.T) {
		t.Parallel()

		s := New(func(_ context.Context, _ *model.Project) error { return nil })

		if err := s.Add(schedTestProject("demo-shop", "@hourly")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if got := s.ProjectCount(); got != 1 {
			t.Errorf("ProjectCount() = %d, want 1", got)
		}
	})

	t.Run("should reject a project without a schedule", func(t *testing.T) {
		t.Parallel()

		s := New(func(_ context.Context, _ *model.Project) error { return nil })

		err := s.Add(schedTestProject("demo-shop", ""))
		if !errors.Is(err, ErrNoSchedule) {
			t.Errorf("Add() error = %v, want ErrNoSchedule", err)
		}
	})

	t.Run("should reject an invalid cron expression", func(t *testing.T) {
		t.Parallel()

		s := New(func(_ context.Context, _ *model.Project) error { return nil })

		if err := s.Add(schedTestProject("demo-shop", "not a cron spec")); err == nil {
			t.Error("Add() expected error for invalid expression, got nil")
		}
	})

	t.Run("should replace an existing entry for the same slug", func(t *testing.T) {
		t.Parallel()

		s := New(func(_ context.Context, _ *model.Project) error { return nil })

		if err := s.Add(schedTestProject("demo-shop", "@hourly")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if err := s.Add(schedTestProject("demo-shop", "@daily")); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
		if got := s.ProjectCount(); got != 1 {
			t.Errorf("ProjectCount() = %d, want 1", got)
		}
	})
}

func TestSchedulerAddProjects(t *testing.T) {
	t.Parallel()

	s := New(func(_ context.Context, _ *model.Project) error { return nil })

	projects := []*model.Project{
		schedTestProject("site-a", "@daily"),
		schedTestProject("site-b", ""), // no schedule, skipped
		schedTestProject("site-c", "0 6 * * 1"),
	}

	added, err := s.AddProjects(projects)
	if err != nil {
		t.Fatalf("AddProjects() error = %v", err)
	}
	if added != 2 {
		t.Errorf("AddProjects() added = %d, want 2", added)
	}
	if got := s.ProjectCount(); got != 2 {
		t.Errorf("ProjectCount() = %d, want 2", got)
	}
}

func TestSchedulerRemove(t *testing.T) {
	t.Parallel()

	s := New(func(_ context.Context, _ *model.Project) error { return nil })

	if err := s.Add(schedTestProject("demo-shop", "@hourly")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if !s.Remove("demo-shop") {
		t.Error("Remove() = false, want true for registered project")
	}
	if s.Remove("demo-shop") {
		t.Error("Remove() = true, want false for already removed project")
	}
	if got := s.ProjectCount(); got != 0 {
		t.Errorf("ProjectCount() = %d, want 0", got)
	}
}

func TestSchedulerTriggersRun(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	done := make(chan struct{}, 1)

	s := New(func(_ context.Context, project *model.Project) error {
		if project.Slug != "demo-shop" {
			t.Errorf("run received project %q, want demo-shop", project.Slug)
		}
		if runs.Add(1) == 1 {
			done <- struct{}{}
		}
		return nil
	})

	if err := s.Add(schedTestProject("demo-shop", "@every 50ms")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	s.Start()
	defer func() { <-s.Stop().Done() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled run did not fire within 5s")
	}
}

func TestSchedulerRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	s := New(func(_ context.Context, _ *model.Project) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{name: "five-field expression", spec: "0 6 * * 1", wantErr: false},
		{name: "daily descriptor", spec: "@daily", wantErr: false},
		{name: "every descriptor", spec: "@every 30m", wantErr: false},
		{name: "garbage", spec: "whenever", wantErr: true},
		{name: "too few fields", spec: "* *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateSchedule(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}
