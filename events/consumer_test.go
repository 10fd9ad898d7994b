package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"newsdigest/logger"

	"github.com/IBM/sarama"
)

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "member-1" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "newsdigest.run-requests" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return int64(len(c.messages)) }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func claimOf(values ...string) *fakeClaim {
	c := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(values))}
	for i, v := range values {
		c.messages <- &sarama.ConsumerMessage{Offset: int64(i), Value: []byte(v)}
	}
	close(c.messages)
	return c
}

// recordingHandler marks "ok" messages, fails "bad" ones and leaves the rest for redelivery
type recordingHandler struct {
	mu   sync.Mutex
	seen []string
}

func (h *recordingHandler) HandleMessage(_ context.Context, message []byte) (bool, error) {
	h.mu.Lock()
	h.seen = append(h.seen, string(message))
	h.mu.Unlock()
	switch string(message) {
	case "ok":
		return true, nil
	case "bad":
		return false, errors.New("boom")
	}
	return false, nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

// fakeGroup runs one session over claim and then blocks until ctx ends or the group closes
type fakeGroup struct {
	claim   *fakeClaim
	session *fakeSession
	noSetup bool

	closeOnce sync.Once
	closed    chan struct{}
	errs      chan error
	exited    chan struct{}
}

func newFakeGroup(claim *fakeClaim) *fakeGroup {
	return &fakeGroup{
		claim:  claim,
		closed: make(chan struct{}),
		errs:   make(chan error),
		exited: make(chan struct{}),
	}
}

func (g *fakeGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	if !g.noSetup && g.session == nil {
		g.session = &fakeSession{ctx: ctx}
		if err := handler.Setup(g.session); err != nil {
			return err
		}
		if err := handler.ConsumeClaim(g.session, g.claim); err != nil {
			return err
		}
		handler.Cleanup(g.session)
	}
	select {
	case <-ctx.Done():
		close(g.exited)
		return ctx.Err()
	case <-g.closed:
		close(g.exited)
		return sarama.ErrClosedConsumerGroup
	}
}

func (g *fakeGroup) Errors() <-chan error { return g.errs }

func (g *fakeGroup) Close() error {
	g.closeOnce.Do(func() {
		close(g.closed)
		close(g.errs)
	})
	return nil
}

func (g *fakeGroup) Pause(map[string][]int32)  {}
func (g *fakeGroup) Resume(map[string][]int32) {}
func (g *fakeGroup) PauseAll()                 {}
func (g *fakeGroup) ResumeAll()                {}

func TestClaimHandlerMarksHandledMessages(t *testing.T) {
	logger.Discard()
	handler := &recordingHandler{}
	h := newClaimHandler(handler)
	session := &fakeSession{ctx: context.Background()}

	if err := h.Setup(session); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	select {
	case <-h.ready:
	default:
		t.Fatal("Setup should signal readiness")
	}
	// a second session after a rebalance must not close ready twice
	if err := h.Setup(session); err != nil {
		t.Fatalf("second Setup: %v", err)
	}

	if err := h.ConsumeClaim(session, claimOf("ok", "retry", "bad", "ok")); err != nil {
		t.Fatalf("ConsumeClaim: %v", err)
	}
	if handler.count() != 4 {
		t.Fatalf("handled %d messages; want 4", handler.count())
	}
	got := session.markedOffsets()
	if len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Fatalf("marked offsets = %v; want [0 3]", got)
	}
}

func TestClaimHandlerStopsWhenSessionEnds(t *testing.T) {
	logger.Discard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newClaimHandler(&recordingHandler{})
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan error, 1)
	go func() { done <- h.ConsumeClaim(&fakeSession{ctx: ctx}, claim) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ConsumeClaim: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ConsumeClaim did not return after the session ended")
	}
}

func TestConsumerStartAndClose(t *testing.T) {
	logger.Discard()
	handler := &recordingHandler{}
	group := newFakeGroup(claimOf("ok"))
	c := newConsumer(group, ConsumerConfig{Topic: "newsdigest.run-requests", GroupID: "newsdigest", Handler: handler})

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-group.exited:
	case <-time.After(2 * time.Second):
		t.Fatal("consume loop did not stop after Close")
	}
	if handler.count() != 1 {
		t.Fatalf("handled %d messages; want 1", handler.count())
	}
	if got := group.session.markedOffsets(); len(got) != 1 {
		t.Fatalf("marked offsets = %v; want one", got)
	}
}

func TestConsumerStartGivesUpWithContext(t *testing.T) {
	logger.Discard()
	group := newFakeGroup(claimOf())
	group.noSetup = true
	c := newConsumer(group, ConsumerConfig{Topic: "t", GroupID: "g", Handler: &recordingHandler{}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := c.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Start = %v; want deadline exceeded", err)
	}
	group.Close()
}
