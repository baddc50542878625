package worker

import (
	"testing"
	"time"
)

func TestPoolRunFastCompletesWithinTimeout(t *testing.T) {
	p := New(Options{Timeout: 50 * time.Millisecond, Size: 2})

	val, err, timedOut := p.Run(func() (any, error) { return 42, nil })
	if timedOut {
		t.Fatalf("expected no timeout for a fast computation")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 42 {
		t.Fatalf("got %v, want 42", val)
	}
}

func TestPoolRunTimesOutOnSlowCompute(t *testing.T) {
	p := New(Options{Timeout: 10 * time.Millisecond, Size: 2})

	_, _, timedOut := p.Run(func() (any, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})
	if !timedOut {
		t.Fatalf("expected a timeout for a slow computation")
	}
}

func TestPoolRunPropagatesError(t *testing.T) {
	p := New(Options{Timeout: 50 * time.Millisecond, Size: 2})
	boom := errTest{"boom"}

	_, err, timedOut := p.Run(func() (any, error) { return nil, boom })
	if timedOut {
		t.Fatalf("expected no timeout")
	}
	if err != boom {
		t.Fatalf("got err %v, want %v", err, boom)
	}
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(Options{Timeout: 200 * time.Millisecond, Size: 1})

	release := make(chan struct{})
	started := make(chan struct{}, 2)

	go p.Run(func() (any, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	})

	time.Sleep(20 * time.Millisecond) // let the first call take the only slot

	done := make(chan struct{})
	go func() {
		p.Run(func() (any, error) {
			started <- struct{}{}
			return nil, nil
		})
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("second Run should not complete while the single slot is held")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
}
