package repository

import (
	"context"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
)

// 通知アウトボックスの保存・取得。
// Enqueueは注文と同じトランザクションで呼ぶ前提。
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg model.OutboxMessage) error

	//PENDINGを古い順に取得
	ListPending(ctx context.Context, limit int) ([]model.OutboxMessage, error)

	MarkSent(ctx context.Context, id string) error

	//attemptsを+1して最後のエラーを記録。finalならFAILEDで打ち切り。
	MarkFailed(ctx context.Context, id string, lastError string, final bool) error
}
