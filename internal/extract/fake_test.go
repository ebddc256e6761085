package extract

import (
	"context"
	"io"
	"sync"
)

// fakeRunner stands in for the extractor process.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string

	stdout []byte
	stderr string
	err    error
	block  bool // after writing, wait for cancellation
}

func (f *fakeRunner) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()

	if f.stderr != "" {
		io.WriteString(stderr, f.stderr)
	}
	if len(f.stdout) > 0 {
		if _, err := stdout.Write(f.stdout); err != nil {
			return err
		}
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeRunner) spawnCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) lastArgs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func containsArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}
