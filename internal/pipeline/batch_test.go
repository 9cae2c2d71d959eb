package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/seoscan/seoscan/internal/model"
)

// countingStep tracks concurrent executions so tests can verify the
// batch limit.
type countingStep struct {
	current atomic.Int32
	peak    atomic.Int32
	total   atomic.Int32
}

func (s *countingStep) Do(_ context.Context, state *RunState) error {
	n := s.current.Add(1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	s.total.Add(1)
	s.current.Add(-1)
	state.RunID = "run-" + state.Project.Slug
	return nil
}

func (s *countingStep) Name() string { return "counting" }

func batchProjects(n int) []*model.Project {
	projects := make([]*model.Project, 0, n)
	for i := 0; i < n; i++ {
		projects = append(projects, &model.Project{
			Slug:    "site-" + string(rune('a'+i)),
			BaseURL: "https://example.com",
		})
	}
	return projects
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("should process every project and keep order", func(t *testing.T) {
		t.Parallel()

		step := &countingStep{}
		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(step)
			return p
		}, WithConcurrency(2))

		projects := batchProjects(5)
		results, err := bp.ProcessBatch(context.Background(), projects)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}

		if len(results) != 5 {
			t.Fatalf("results = %d, want 5", len(results))
		}
		for i, state := range results {
			if state == nil {
				t.Fatalf("results[%d] = nil", i)
			}
			if state.Project.Slug != projects[i].Slug {
				t.Errorf("results[%d] = %q, want %q", i, state.Project.Slug, projects[i].Slug)
			}
			if state.RunID == "" {
				t.Errorf("results[%d] has no run ID", i)
			}
		}

		if got := step.total.Load(); got != 5 {
			t.Errorf("total executions = %d, want 5", got)
		}
		if peak := step.peak.Load(); peak > 2 {
			t.Errorf("peak concurrency = %d, want <= 2", peak)
		}
	})

	t.Run("should collect states even when a run fails", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline {
			p := New()
			p.AddStep(&fakeStep{name: "failing", err: context.DeadlineExceeded})
			return p
		})

		results, err := bp.ProcessBatch(context.Background(), batchProjects(2))
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		for i, state := range results {
			if state == nil {
				t.Fatalf("results[%d] = nil", i)
			}
			if state.Err == "" {
				t.Errorf("results[%d].Err is empty, want failure message", i)
			}
		}
	})
}

func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func() *Pipeline {
		p := New()
		p.AddStep(&fakeStep{name: "noop"})
		return p
	}, WithConcurrency(3))

	var mu sync.Mutex
	seen := make(map[int]bool)

	err := bp.ProcessBatchWithCallback(context.Background(), batchProjects(4),
		func(state *RunState, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = true
		})
	if err != nil {
		t.Fatalf("ProcessBatchWithCallback() error = %v", err)
	}

	if len(seen) != 4 {
		t.Errorf("callback invoked for %d projects, want 4", len(seen))
	}
}
