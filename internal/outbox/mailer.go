package outbox

import "context"

// メール送信の窓口。失敗はディスパッチャがリトライする。
type Mailer interface {
	Send(ctx context.Context, to string, subject string, body string) error
}
