package resource

import (
	"errors"
	"testing"

	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// flaky fails with a transient fault a fixed number of times before
// succeeding.
type flaky struct {
	failures int
	calls    int
	err      error
}

func (f *flaky) op() error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func transientFault() error {
	return &visa.IOError{Op: "write", Transient: true, Err: errors.New("glitch")}
}

func protocolFault() error {
	return &visa.IOError{Op: "write", Transient: false, Err: errors.New("framing")}
}

func TestRetrierAttemptBudget(t *testing.T) {
	tests := []struct {
		name         string
		limit        int
		failures     int
		wantErr      bool
		wantAttempts int
	}{
		{name: "limit 0 success", limit: 0, failures: 0, wantAttempts: 1},
		{name: "limit 0 single fault exhausts", limit: 0, failures: 1, wantErr: true, wantAttempts: 1},
		{name: "limit 1 recovers", limit: 1, failures: 1, wantAttempts: 2},
		{name: "limit 2 fail twice then succeed", limit: 2, failures: 2, wantAttempts: 3},
		{name: "limit 2 exhausted", limit: 2, failures: 5, wantErr: true, wantAttempts: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &flaky{failures: tt.failures, err: transientFault()}
			r := retrier{limit: tt.limit}

			res := r.do(f.op)

			if (res.err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", res.err, tt.wantErr)
			}
			if res.attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", res.attempts, tt.wantAttempts)
			}
			if f.calls != tt.wantAttempts {
				t.Errorf("op ran %d times, want %d", f.calls, tt.wantAttempts)
			}
		})
	}
}

func TestRetrierNonTransientFailsImmediately(t *testing.T) {
	f := &flaky{failures: 10, err: protocolFault()}
	r := retrier{limit: 5}

	res := r.do(f.op)

	if res.err == nil {
		t.Fatal("expected error")
	}
	if res.attempts != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on protocol fault)", res.attempts)
	}
}
