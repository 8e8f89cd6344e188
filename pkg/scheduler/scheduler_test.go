package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call is one request that reached the fake service; the test decides
// when and how it completes.
type call struct {
	key   string
	gen   uint64
	reply chan string
	fail  chan error
}

type harness struct {
	t        *testing.T
	clock    *FakeClock
	sched    *Scheduler[string]
	calls    chan *call
	outcomes chan Outcome

	mu        sync.Mutex
	committed map[string]string
}

func newHarness(t *testing.T, timeout time.Duration) *harness {
	h := &harness{
		t:         t,
		clock:     NewFakeClock(),
		calls:     make(chan *call, 16),
		outcomes:  make(chan Outcome, 16),
		committed: make(map[string]string),
	}
	h.sched = New(Config[string]{
		Debounce: time.Second,
		Timeout:  timeout,
		Clock:    h.clock,
		Call: func(ctx context.Context, key string, gen uint64) (string, error) {
			c := &call{key: key, gen: gen, reply: make(chan string, 1), fail: make(chan error, 1)}
			h.calls <- c
			select {
			case v := <-c.reply:
				return v, nil
			case err := <-c.fail:
				return "", err
			}
		},
		Commit: func(key string, gen uint64, result string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.committed[key] = result
			return nil
		},
		OnOutcome: func(o Outcome) { h.outcomes <- o },
	})
	t.Cleanup(h.sched.Close)
	return h
}

func (h *harness) nextCall() *call {
	h.t.Helper()
	select {
	case c := <-h.calls:
		return c
	case <-time.After(2 * time.Second):
		h.t.Fatal("no call reached the service")
		return nil
	}
}

func (h *harness) nextOutcome() Outcome {
	h.t.Helper()
	select {
	case o := <-h.outcomes:
		return o
	case <-time.After(2 * time.Second):
		h.t.Fatal("no outcome reported")
		return Outcome{}
	}
}

func (h *harness) value(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.committed[key]
	return v, ok
}

func (h *harness) noCall() {
	h.t.Helper()
	select {
	case c := <-h.calls:
		h.t.Fatalf("unexpected call for %s gen %d", c.key, c.gen)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	h := newHarness(t, time.Minute)

	g1 := h.sched.Trigger("a.go", ReasonOpen)
	h.clock.Advance(500 * time.Millisecond)
	g2 := h.sched.Trigger("a.go", ReasonChange)
	h.clock.Advance(500 * time.Millisecond)
	g3 := h.sched.Trigger("a.go", ReasonSave)
	assert.Less(t, g1, g2)
	assert.Less(t, g2, g3)
	assert.Equal(t, Pending, h.sched.State("a.go"))

	h.clock.Advance(999 * time.Millisecond)
	h.noCall()

	h.clock.Advance(time.Millisecond)
	c := h.nextCall()
	assert.Equal(t, g3, c.gen)
	assert.Equal(t, InFlight, h.sched.State("a.go"))
	h.noCall()

	c.reply <- "result"
	o := h.nextOutcome()
	assert.Equal(t, Stored, o.Status)
	assert.Equal(t, ReasonSave, o.Reason)
	assert.Equal(t, Idle, h.sched.State("a.go"))
	v, _ := h.value("a.go")
	assert.Equal(t, "result", v)
}

func TestLateStaleResultNeverOverwrites(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.sched.Trigger("a.go", ReasonOpen)
	h.clock.Advance(time.Second)
	first := h.nextCall()

	h.sched.Trigger("a.go", ReasonChange)
	assert.Equal(t, Pending, h.sched.State("a.go"))
	h.clock.Advance(time.Second)
	second := h.nextCall()
	assert.Greater(t, second.gen, first.gen)

	second.reply <- "new"
	o := h.nextOutcome()
	assert.Equal(t, Stored, o.Status)
	assert.Equal(t, second.gen, o.Generation)

	first.reply <- "old"
	o = h.nextOutcome()
	assert.Equal(t, Stale, o.Status)
	assert.Equal(t, first.gen, o.Generation)

	v, _ := h.value("a.go")
	assert.Equal(t, "new", v)
	assert.Equal(t, Idle, h.sched.State("a.go"))
}

func TestStaleCompletionKeepsPendingState(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.sched.Trigger("a.go", ReasonOpen)
	h.clock.Advance(time.Second)
	first := h.nextCall()

	h.sched.Trigger("a.go", ReasonChange)
	first.reply <- "old"
	assert.Equal(t, Stale, h.nextOutcome().Status)
	assert.Equal(t, Pending, h.sched.State("a.go"))
	_, ok := h.value("a.go")
	assert.False(t, ok)

	h.clock.Advance(time.Second)
	h.nextCall().reply <- "fresh"
	assert.Equal(t, Stored, h.nextOutcome().Status)
	v, _ := h.value("a.go")
	assert.Equal(t, "fresh", v)
}

func TestServiceErrorReturnsToIdle(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.sched.Trigger("a.go", ReasonOpen)
	h.clock.Advance(time.Second)
	h.nextCall().fail <- errors.New("rate limited")

	o := h.nextOutcome()
	assert.Equal(t, Failed, o.Status)
	var se *ServiceError
	require.ErrorAs(t, o.Err, &se)
	assert.Equal(t, "a.go", se.Key)
	assert.False(t, se.Timeout())
	assert.Equal(t, Idle, h.sched.State("a.go"))
	_, ok := h.value("a.go")
	assert.False(t, ok)

	// no automatic retry
	h.clock.Advance(time.Minute)
	h.noCall()
}

func TestTimeoutReturnsToIdle(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)

	h.sched.Trigger("a.go", ReasonOpen)
	h.clock.Advance(time.Second)
	c := h.nextCall()

	o := h.nextOutcome()
	assert.Equal(t, Failed, o.Status)
	var se *ServiceError
	require.ErrorAs(t, o.Err, &se)
	assert.True(t, se.Timeout())
	assert.Equal(t, Idle, h.sched.State("a.go"))

	// release the abandoned call so its goroutine can exit
	c.reply <- "too late"
}

func TestForgetDiscardsInFlightResult(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.sched.Trigger("a.go", ReasonOpen)
	h.clock.Advance(time.Second)
	old := h.nextCall()

	h.sched.Forget("a.go")
	assert.Equal(t, uint64(0), h.sched.Generation("a.go"))

	gen := h.sched.Trigger("a.go", ReasonOpen)
	assert.Greater(t, gen, old.gen)

	old.reply <- "from before close"
	assert.Equal(t, Stale, h.nextOutcome().Status)
	_, ok := h.value("a.go")
	assert.False(t, ok)
}

func TestForgetStopsPendingTimer(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.sched.Trigger("a.go", ReasonOpen)
	h.sched.Forget("a.go")
	assert.Equal(t, 0, h.clock.Pending())

	h.clock.Advance(time.Second)
	h.noCall()
}

func TestFlushSkipsDebounce(t *testing.T) {
	h := newHarness(t, time.Minute)

	assert.False(t, h.sched.Flush("a.go"))
	gen := h.sched.Trigger("a.go", ReasonManual)
	assert.True(t, h.sched.Flush("a.go"))
	c := h.nextCall()
	assert.Equal(t, gen, c.gen)

	// the debounce timer must not start a second call
	h.clock.Advance(time.Second)
	h.noCall()
	assert.False(t, h.sched.Flush("a.go"))

	c.reply <- "ok"
	assert.Equal(t, Stored, h.nextOutcome().Status)
}

func TestKeysAreIndependent(t *testing.T) {
	h := newHarness(t, time.Minute)

	h.sched.Trigger("a.go", ReasonOpen)
	h.sched.Trigger("b.go", ReasonOpen)
	h.clock.Advance(time.Second)

	calls := map[string]*call{}
	for i := 0; i < 2; i++ {
		c := h.nextCall()
		calls[c.key] = c
	}
	calls["b.go"].reply <- "B"
	calls["a.go"].reply <- "A"
	assert.Equal(t, Stored, h.nextOutcome().Status)
	assert.Equal(t, Stored, h.nextOutcome().Status)

	a, _ := h.value("a.go")
	b, _ := h.value("b.go")
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
}

func TestTriggerAfterCloseIsIgnored(t *testing.T) {
	h := newHarness(t, time.Minute)
	h.sched.Close()

	assert.Equal(t, uint64(0), h.sched.Trigger("a.go", ReasonOpen))
	h.clock.Advance(time.Second)
	h.noCall()
}

func TestFakeClockOrdersCallbacks(t *testing.T) {
	c := NewFakeClock()
	var got []int
	c.AfterFunc(2*time.Second, func() { got = append(got, 2) })
	c.AfterFunc(time.Second, func() { got = append(got, 1) })
	stopped := c.AfterFunc(time.Second, func() { got = append(got, 99) })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	c.Advance(3 * time.Second)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 0, c.Pending())
}
