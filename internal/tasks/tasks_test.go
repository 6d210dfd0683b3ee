package tasks_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/insightforge/fabric-analytics/internal/tasks"
)

func TestSubmitRunsTask(t *testing.T) {
	r := tasks.NewRunner()

	var ran atomic.Bool
	r.Submit("work", func(ctx context.Context) {
		ran.Store(true)
	})
	r.Wait()

	if !ran.Load() {
		t.Error("submitted task did not run")
	}
}

func TestSubmitReturnsBeforeTaskFinishes(t *testing.T) {
	r := tasks.NewRunner()

	release := make(chan struct{})
	done := make(chan struct{})
	r.Submit("slow", func(ctx context.Context) {
		<-release
		close(done)
	})

	select {
	case <-done:
		t.Fatal("task finished before Submit returned control")
	default:
	}

	close(release)
	r.Wait()
	<-done
}

func TestSubmitSwallowsPanic(t *testing.T) {
	r := tasks.NewRunner()

	r.Submit("exploding", func(ctx context.Context) {
		panic("boom")
	})
	// Wait must return normally; the panic stays inside the task.
	r.Wait()

	var after atomic.Bool
	r.Submit("after", func(ctx context.Context) {
		after.Store(true)
	})
	r.Wait()

	if !after.Load() {
		t.Error("runner unusable after a task panicked")
	}
}
