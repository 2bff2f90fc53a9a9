package query

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestObserverDiscardsLateResult(t *testing.T) {
	cache := NewCache(time.Minute)
	obs := NewObserver[string](cache, false)

	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	doneA := make(chan error)
	go func() {
		_, err := obs.Load(context.Background(), NewKey("workRecords", "e1", "January"), func(context.Context) (string, error) {
			close(startedA)
			<-releaseA
			return "january-data", nil
		})
		doneA <- err
	}()
	<-startedA

	snapB, err := obs.Load(context.Background(), NewKey("workRecords", "e1", "February"), func(context.Context) (string, error) {
		return "february-data", nil
	})
	if err != nil {
		t.Fatalf("load B: %v", err)
	}
	if snapB.Data != "february-data" {
		t.Fatalf("unexpected data for B: %q", snapB.Data)
	}

	close(releaseA)
	if err := <-doneA; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected late load to be superseded, got %v", err)
	}

	snap := obs.Snapshot()
	if snap.Data != "february-data" || !snap.Key.Equal(NewKey("workRecords", "e1", "February")) {
		t.Fatalf("late result leaked into view: %+v", snap)
	}
	if snap.Loading {
		t.Fatal("expected loading to be cleared")
	}
}

func TestObserverKeepsPreviousDataWhileLoading(t *testing.T) {
	cache := NewCache(time.Minute)
	obs := NewObserver[[]int](cache, true)

	if _, err := obs.Load(context.Background(), NewKey("paymentHistory", "1"), func(context.Context) ([]int, error) {
		return []int{1, 2, 3}, nil
	}); err != nil {
		t.Fatalf("load page 1: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = obs.Load(context.Background(), NewKey("paymentHistory", "2"), func(context.Context) ([]int, error) {
			close(started)
			<-release
			return []int{4, 5}, nil
		})
	}()
	<-started

	snap := obs.Snapshot()
	if !snap.Loading || !snap.Placeholder || len(snap.Data) != 3 {
		t.Fatalf("expected page 1 visible as placeholder while page 2 loads, got %+v", snap)
	}

	close(release)
	<-done
	snap = obs.Snapshot()
	if snap.Loading || snap.Placeholder || len(snap.Data) != 2 {
		t.Fatalf("expected page 2 data, got %+v", snap)
	}
}

func TestObserverWithoutKeepPreviousHidesOldData(t *testing.T) {
	cache := NewCache(time.Minute)
	obs := NewObserver[string](cache, false)
	_, _ = obs.Load(context.Background(), NewKey("a"), func(context.Context) (string, error) { return "a", nil })

	boom := errors.New("boom")
	snap, err := obs.Load(context.Background(), NewKey("b"), func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected error, got %v", err)
	}
	if snap.HasData || snap.Err == nil {
		t.Fatalf("expected error snapshot without stale data, got %+v", snap)
	}
}
