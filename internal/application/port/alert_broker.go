package port

import "context"

// BrokerMessage alert в том виде, в котором он уходит в брокер сообщений
type BrokerMessage struct {
	Subject string
	// ID ключ дедупликации: повторная публикация того же alert не дублируется
	ID      string
	Headers map[string]string
	Body    any
	// AwaitAck публикация ждет подтверждения записи в поток
	AwaitAck bool
}

// AlertBroker доставляет alert'ы подписчикам вне процесса (береговая служба, пульт)
type AlertBroker interface {
	Publish(ctx context.Context, msg BrokerMessage) error
}
