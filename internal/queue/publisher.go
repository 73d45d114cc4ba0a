package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-hold-engine/internal/pkg/logger"
)

// Publisher は座席イベントをRabbitMQへ発行する
// 発行失敗はホールド操作の結果に影響させない（呼び出し側でログのみ）
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher はブローカーへ接続しキューを宣言する
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("ブローカー接続に失敗: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("チャンネル作成に失敗: %w", err)
	}

	// 永続キューを宣言（冪等）
	for _, name := range []string{QueueSeatReleased, QueueSeatSold} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("キュー宣言に失敗: %w", err)
		}
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

// PublishSeatReleased は座席解放イベントを発行する
func (p *Publisher) PublishSeatReleased(ctx context.Context, event SeatReleasedEvent) error {
	return p.publish(ctx, QueueSeatReleased, event)
}

// PublishSeatSold は座席販売確定イベントを発行する
func (p *Publisher) PublishSeatSold(ctx context.Context, event SeatSoldEvent) error {
	return p.publish(ctx, QueueSeatSold, event)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("イベント変換に失敗: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",        // デフォルトエクスチェンジ
		queueName, // ルーティングキー = キュー名
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		logger.Warn("イベント発行に失敗", zap.String("queue", queueName), zap.Error(err))
		return fmt.Errorf("イベント発行に失敗: %w", err)
	}
	return nil
}

// Close はチャンネルと接続を閉じる
func (p *Publisher) Close() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
