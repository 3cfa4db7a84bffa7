package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
)

// =====================
// fakes
// =====================

type fakeOutboxRepo struct {
	mu      sync.Mutex
	pending []model.OutboxMessage

	sent   []string
	failed []struct {
		id    string
		final bool
	}
}

func (f *fakeOutboxRepo) Enqueue(ctx context.Context, msg model.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, msg)
	return nil
}

func (f *fakeOutboxRepo) ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxRepo) MarkSent(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	f.removePending(id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(ctx context.Context, id string, lastError string, final bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, struct {
		id    string
		final bool
	}{id, final})

	for i := range f.pending {
		if f.pending[i].ID == id {
			f.pending[i].Attempts++
			break
		}
	}
	if final {
		f.removePending(id)
	}
	return nil
}

func (f *fakeOutboxRepo) removePending(id string) {
	out := f.pending[:0]
	for _, m := range f.pending {
		if m.ID != id {
			out = append(out, m)
		}
	}
	f.pending = out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, to string, subject string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

// =====================
// tests
// =====================

func TestDispatcher_DeliversPendingMessage(t *testing.T) {
	repo := &fakeOutboxRepo{}
	mailer := &fakeMailer{}

	msg, err := NewOrderConfirmation("taro@example.com", OrderConfirmationPayload{
		OrderNumber: "EC2509010042",
		TotalAmount: 12100,
		PlacedAt:    time.Now(),
	})
	assert.NoError(t, err)
	assert.NoError(t, repo.Enqueue(context.Background(), msg))

	d := NewDispatcher(repo, mailer, time.Second, 20, 5, zap.NewNop())
	d.processBatch(context.Background())

	assert.Equal(t, []string{"taro@example.com"}, mailer.sent)
	assert.Equal(t, []string{msg.ID}, repo.sent)
	assert.Empty(t, repo.failed)
}

func TestDispatcher_RetriesThenFinalFailure(t *testing.T) {
	repo := &fakeOutboxRepo{}
	mailer := &fakeMailer{err: errors.New("smtp down")}

	msg, err := NewOrderConfirmation("taro@example.com", OrderConfirmationPayload{
		OrderNumber: "EC2509010042",
		TotalAmount: 1600,
		PlacedAt:    time.Now(),
	})
	assert.NoError(t, err)
	assert.NoError(t, repo.Enqueue(context.Background(), msg))

	d := NewDispatcher(repo, mailer, time.Second, 20, 3, zap.NewNop())

	// maxAttempts=3：2回は非final、3回目でfinal
	d.processBatch(context.Background())
	d.processBatch(context.Background())
	d.processBatch(context.Background())

	assert.Equal(t, 3, len(repo.failed))
	assert.False(t, repo.failed[0].final)
	assert.False(t, repo.failed[1].final)
	assert.True(t, repo.failed[2].final)
	assert.Empty(t, repo.sent)

	// final後はPENDINGに残らない
	pending, _ := repo.ListPending(context.Background(), 20)
	assert.Empty(t, pending)
}

// ペイロードが壊れている → リトライせず即final
func TestDispatcher_BrokenPayloadFailsImmediately(t *testing.T) {
	repo := &fakeOutboxRepo{}
	mailer := &fakeMailer{}

	assert.NoError(t, repo.Enqueue(context.Background(), model.OutboxMessage{
		ID:        "broken-1",
		Kind:      model.OutboxKindOrderConfirmation,
		Recipient: "taro@example.com",
		Payload:   "{not json",
		Status:    model.OutboxStatusPending,
	}))

	d := NewDispatcher(repo, mailer, time.Second, 20, 5, zap.NewNop())
	d.processBatch(context.Background())

	assert.Empty(t, mailer.sent)
	assert.Equal(t, 1, len(repo.failed))
	assert.True(t, repo.failed[0].final)
}

// 未知のkind → メール送信せず即final
func TestDispatcher_UnknownKindFailsImmediately(t *testing.T) {
	repo := &fakeOutboxRepo{}
	mailer := &fakeMailer{}

	assert.NoError(t, repo.Enqueue(context.Background(), model.OutboxMessage{
		ID:        "unknown-1",
		Kind:      model.OutboxKind("SOMETHING_ELSE"),
		Recipient: "taro@example.com",
		Payload:   "{}",
		Status:    model.OutboxStatusPending,
	}))

	d := NewDispatcher(repo, mailer, time.Second, 20, 5, zap.NewNop())
	d.processBatch(context.Background())

	assert.Empty(t, mailer.sent)
	assert.Equal(t, 1, len(repo.failed))
	assert.True(t, repo.failed[0].final)
}

func TestDispatcher_StartStop(t *testing.T) {
	repo := &fakeOutboxRepo{}
	mailer := &fakeMailer{}

	msg, err := NewOrderConfirmation("taro@example.com", OrderConfirmationPayload{
		OrderNumber: "EC2509010042",
		TotalAmount: 100,
		PlacedAt:    time.Now(),
	})
	assert.NoError(t, err)
	assert.NoError(t, repo.Enqueue(context.Background(), msg))

	d := NewDispatcher(repo, mailer, 10*time.Millisecond, 20, 5, zap.NewNop())
	d.Start(context.Background())

	//送信されるまで待つ
	deadline := time.After(2 * time.Second)
	for {
		repo.mu.Lock()
		done := len(repo.sent) > 0
		repo.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("message was not delivered before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}

	d.Stop()
}

func TestRenderOrderConfirmation(t *testing.T) {
	msg, err := NewOrderConfirmation("taro@example.com", OrderConfirmationPayload{
		OrderNumber: "EC2509010042",
		TotalAmount: 12100,
		PlacedAt:    time.Now(),
	})
	assert.NoError(t, err)

	subject, body, err := renderOrderConfirmation(msg.Payload)
	assert.NoError(t, err)
	assert.Contains(t, subject, "EC2509010042")
	assert.Contains(t, body, "12100")
}
