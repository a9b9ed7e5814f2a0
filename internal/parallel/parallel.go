// Package parallel runs kernel lanes across goroutines for the host-emulated accelerator.
package parallel

import (
	"fmt"
	"runtime"
	"sync"
)

// Config controls how lanes are spread over goroutines.
type Config struct {
	Enabled      bool // Whether lanes may run concurrently.
	NumWorkers   int  // Upper bound on goroutines per launch.
	MinChunkSize int  // Minimum lanes per goroutine.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// PanicError is returned by For when a lane panicked.
type PanicError struct {
	Lane  int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("lane %d panicked: %v", e.Lane, e.Value)
}

// For executes f(i) for every lane i in [0, n) and returns after all lanes
// finished. Lanes must not write to overlapping memory. A panic in any lane is
// recovered and reported as a *PanicError; the remaining lanes of other chunks
// still run to completion.
func For(n int, f func(lane int), cfg Config) error {
	if !cfg.Enabled || cfg.NumWorkers < 2 || n < 2*cfg.MinChunkSize {
		return runChunk(0, n, f)
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		first error
	)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			if err := runChunk(s, e, f); err != nil {
				mu.Lock()
				if first == nil {
					first = err
				}
				mu.Unlock()
			}
		}(start, end)
	}
	wg.Wait()
	return first
}

func runChunk(start, end int, f func(lane int)) (err error) {
	lane := start
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Lane: lane, Value: r}
		}
	}()
	for ; lane < end; lane++ {
		f(lane)
	}
	return nil
}
