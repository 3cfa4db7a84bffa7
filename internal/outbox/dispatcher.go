package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
	"github.com/yamadatarousan/ec-sub001/internal/metrics"
	"github.com/yamadatarousan/ec-sub001/internal/repository"

	"go.uber.org/zap"
)

// Dispatcher はアウトボックスのPENDINGをポーリングして送信する。
// 送信失敗はattemptsを増やして次のポーリングで再送、上限でFAILED。
type Dispatcher struct {
	repo        repository.OutboxRepository
	mailer      Mailer
	interval    time.Duration
	batchSize   int
	maxAttempts int
	logger      *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

func NewDispatcher(
	repo repository.OutboxRepository,
	mailer Mailer,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	logger *zap.Logger,
) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Dispatcher{
		repo:        repo,
		mailer:      mailer,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Start はバックグラウンドのポーリングループを起動する。
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.loop(runCtx)
}

// Stop はループを止めて完了を待つ。
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.processBatch(ctx)
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) {
	msgs, err := d.repo.ListPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("list pending outbox messages failed", zap.Error(err))
		return
	}

	for _, msg := range msgs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.deliver(ctx, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg model.OutboxMessage) {
	subject, body, err := d.render(msg)
	if err != nil {
		//ペイロードが壊れている。リトライしても直らないので即FAILED。
		d.logger.Error("outbox message unrenderable",
			zap.String("id", msg.ID),
			zap.String("kind", string(msg.Kind)),
			zap.Error(err))
		if err := d.repo.MarkFailed(ctx, msg.ID, err.Error(), true); err != nil {
			d.logger.Error("mark outbox failed", zap.String("id", msg.ID), zap.Error(err))
		}
		metrics.OutboxFailedTotal.Inc()
		return
	}

	if err := d.mailer.Send(ctx, msg.Recipient, subject, body); err != nil {
		metrics.OutboxFailedTotal.Inc()

		final := msg.Attempts+1 >= d.maxAttempts
		d.logger.Warn("outbox delivery failed",
			zap.String("id", msg.ID),
			zap.Int("attempts", msg.Attempts+1),
			zap.Bool("final", final),
			zap.Error(err))

		if err := d.repo.MarkFailed(ctx, msg.ID, err.Error(), final); err != nil {
			d.logger.Error("mark outbox failed", zap.String("id", msg.ID), zap.Error(err))
		}
		return
	}

	if err := d.repo.MarkSent(ctx, msg.ID); err != nil {
		d.logger.Error("mark outbox sent", zap.String("id", msg.ID), zap.Error(err))
		return
	}
	metrics.OutboxSentTotal.Inc()
}

func (d *Dispatcher) render(msg model.OutboxMessage) (string, string, error) {
	switch msg.Kind {
	case model.OutboxKindOrderConfirmation:
		return renderOrderConfirmation(msg.Payload)
	default:
		return "", "", fmt.Errorf("unknown outbox kind: %s", msg.Kind)
	}
}
