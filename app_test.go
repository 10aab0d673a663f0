package campus

import (
	"errors"
	"sync"
	"testing"
)

func TestApp_StopConcurrent(t *testing.T) {
	a := &App{done: make(chan struct{})}

	const n = 8
	var wg sync.WaitGroup
	results := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- a.Stop()
		}()
	}
	wg.Wait()
	close(results)

	var stopped, repeated int
	for err := range results {
		switch {
		case err == nil:
			stopped++
		case errors.Is(err, errAlreadyStopped):
			repeated++
		default:
			t.Errorf("Stop() = %v", err)
		}
	}
	if stopped != 1 {
		t.Errorf("nil results = %d, want exactly 1", stopped)
	}
	if repeated != n-1 {
		t.Errorf("errAlreadyStopped results = %d, want %d", repeated, n-1)
	}

	select {
	case <-a.done:
	default:
		t.Error("done channel not closed")
	}
}
