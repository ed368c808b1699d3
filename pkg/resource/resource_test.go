package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/benchkit-project/benchkit-go/pkg/trace"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

const testIDN = "acme,model1,serial123,1.0"

// newTestBench wires a simulated instrument behind a manager and
// returns both, ready for Open.
func newTestBench(t *testing.T, cfg visa.SimConfig) (*visa.ResourceManager, *visa.SimInstrument) {
	t.Helper()
	if cfg.IDN == "" {
		cfg.IDN = testIDN
	}
	si := visa.NewSimInstrument(cfg)
	hub := visa.NewSimHub()
	hub.Add("dut", si)
	return visa.NewDefaultManager(hub), si
}

func TestOpenCapturesIDN(t *testing.T) {
	mgr, _ := newTestBench(t, visa.SimConfig{})

	res, err := Open(context.Background(), mgr, "SIM::dut")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	if res.IDN() != testIDN {
		t.Errorf("IDN() = %q, want %q", res.IDN(), testIDN)
	}
	if res.Address() != "SIM::dut" {
		t.Errorf("Address() = %q", res.Address())
	}
}

func TestOpenFailsClosed(t *testing.T) {
	// Nothing registered under this name: the session cannot open.
	mgr := visa.NewDefaultManager(visa.NewSimHub())

	_, err := Open(context.Background(), mgr, "SIM::missing")
	if err == nil {
		t.Fatal("expected error")
	}
	var connErr *visa.ConnectError
	if !errors.As(err, &connErr) {
		t.Errorf("error = %T, want *visa.ConnectError", err)
	}
}

func TestOpenIdentificationFailureClosesSession(t *testing.T) {
	mgr, si := newTestBench(t, visa.SimConfig{})
	// The identification query fails even after retries.
	si.FailNext(10, nil)

	_, err := Open(context.Background(), mgr, "SIM::dut")
	if err == nil {
		t.Fatal("expected error when identification query fails")
	}
	var connErr *visa.ConnectError
	if !errors.As(err, &connErr) {
		t.Errorf("error = %T, want *visa.ConnectError", err)
	}
}

func TestQueryTrimsTerminators(t *testing.T) {
	mgr, _ := newTestBench(t, visa.SimConfig{
		Responses: map[string]string{"MEAS:VOLT?": "12.000\r"},
	})

	res, err := Open(context.Background(), mgr, "SIM::dut")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	got, err := res.Query("MEAS:VOLT?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got != "12.000" {
		t.Errorf("Query = %q, want %q", got, "12.000")
	}
}

func TestQueryRetriesAsOneUnit(t *testing.T) {
	mgr, si := newTestBench(t, visa.SimConfig{
		Responses: map[string]string{"MODE?": "CC"},
	})

	res, err := Open(context.Background(), mgr, "SIM::dut", WithRetryLimit(2))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	// Fail the write twice; the third attempt of the whole query
	// succeeds.
	si.FailNext(2, nil)

	got, err := res.Query("MODE?")
	if err != nil {
		t.Fatalf("Query failed after retries: %v", err)
	}
	if got != "CC" {
		t.Errorf("Query = %q, want %q", got, "CC")
	}
}

func TestWriteExhaustedRetriesIsCommunicationError(t *testing.T) {
	mgr, si := newTestBench(t, visa.SimConfig{})

	res, err := Open(context.Background(), mgr, "SIM::dut", WithRetryLimit(1))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	si.FailNext(5, nil)

	err = res.Write("*RST")
	if err == nil {
		t.Fatal("expected error")
	}
	var commErr *CommunicationError
	if !errors.As(err, &commErr) {
		t.Fatalf("error = %T, want *CommunicationError", err)
	}
	if commErr.Address != "SIM::dut" {
		t.Errorf("CommunicationError.Address = %q", commErr.Address)
	}
	if commErr.IDN != testIDN {
		t.Errorf("CommunicationError.IDN = %q", commErr.IDN)
	}
}

func TestRetryLimitZeroMeansSingleAttempt(t *testing.T) {
	mgr, si := newTestBench(t, visa.SimConfig{})

	res, err := Open(context.Background(), mgr, "SIM::dut")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	si.FailNext(1, nil)
	if err := res.Write("*RST"); err == nil {
		t.Fatal("single transient fault must fail with retry limit 0")
	}

	// The fault was consumed by the one attempt.
	if err := res.Write("*RST"); err != nil {
		t.Fatalf("follow-up write failed: %v", err)
	}
}

func TestResetAndClearStatus(t *testing.T) {
	mgr, si := newTestBench(t, visa.SimConfig{})

	res, err := Open(context.Background(), mgr, "SIM::dut")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	if err := res.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if err := res.ClearStatus(); err != nil {
		t.Fatalf("ClearStatus failed: %v", err)
	}

	writes := si.Writes()
	// First write is the identification query from Open.
	want := []string{"*IDN?", "*RST", "*CLS"}
	if len(writes) != len(want) {
		t.Fatalf("writes = %v, want %v", writes, want)
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Errorf("write %d = %q, want %q", i, writes[i], want[i])
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	mgr, _ := newTestBench(t, visa.SimConfig{})

	res, err := Open(context.Background(), mgr, "SIM::dut")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := res.Close(); err != nil {
		t.Errorf("first Close = %v", err)
	}
	if err := res.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestSetLocalWithoutSupportIsNoop(t *testing.T) {
	mgr, _ := newTestBench(t, visa.SimConfig{})

	res, err := Open(context.Background(), mgr, "SIM::dut")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	// Must not panic or error however the transport answers.
	res.SetLocal()
}

// recordingLogger captures emitted events for assertions.
type recordingLogger struct {
	events []trace.Event
}

func (l *recordingLogger) Log(event trace.Event) {
	l.events = append(l.events, event)
}

func TestTracerSeesTraffic(t *testing.T) {
	mgr, _ := newTestBench(t, visa.SimConfig{
		Responses: map[string]string{"MEAS:VOLT?": "1.5"},
	})

	tracer := &recordingLogger{}
	res, err := Open(context.Background(), mgr, "SIM::dut", WithTracer(tracer))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := res.Query("MEAS:VOLT?"); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if err := res.Write("OUTP ON"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	res.Close()

	var queries, writes, lifecycle int
	for _, e := range tracer.events {
		if e.SessionID == "" {
			t.Error("event missing session ID")
		}
		if e.Address != "SIM::dut" {
			t.Errorf("event address = %q", e.Address)
		}
		switch e.Category {
		case trace.CategoryQuery:
			queries++
		case trace.CategoryWrite:
			writes++
		case trace.CategoryLifecycle:
			lifecycle++
		}
	}

	// Open's identification query plus the explicit one.
	if queries != 2 {
		t.Errorf("query events = %d, want 2", queries)
	}
	if writes != 1 {
		t.Errorf("write events = %d, want 1", writes)
	}
	// Open and close.
	if lifecycle < 2 {
		t.Errorf("lifecycle events = %d, want at least 2", lifecycle)
	}
}

func TestTracerRecordsAttempts(t *testing.T) {
	mgr, si := newTestBench(t, visa.SimConfig{})

	tracer := &recordingLogger{}
	res, err := Open(context.Background(), mgr, "SIM::dut", WithRetryLimit(2), WithTracer(tracer))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer res.Close()

	si.FailNext(2, nil)
	if err := res.Write("*RST"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	last := tracer.events[len(tracer.events)-1]
	if last.Category != trace.CategoryWrite {
		t.Fatalf("last event category = %v, want WRITE", last.Category)
	}
	if last.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", last.Attempts)
	}
}
