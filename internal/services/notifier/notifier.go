// Package notifier публикует события об изменении статуса подписки в
// RabbitMQ для остальных сервисов площадки.
package notifier

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/tradeboard/billing-service/internal/lib/rabbitmq"
	"github.com/tradeboard/billing-service/internal/models"
)

// Publisher описывает публикацию сообщения в обменник.
type Publisher interface {
	Publish(exchange, routingkey string, message any) error
}

// AMQPPublisher публикует сообщения через канал RabbitMQ.
type AMQPPublisher struct {
	ch *amqp.Channel
}

// NewAMQPPublisher создаёт издателя поверх канала RabbitMQ.
func NewAMQPPublisher(ch *amqp.Channel) *AMQPPublisher {
	return &AMQPPublisher{ch: ch}
}

// Publish отправляет сообщение в обменник с заданным ключом.
func (p *AMQPPublisher) Publish(exchange, routingkey string, message any) error {
	return rabbitmq.PublishMessage(p.ch, exchange, routingkey, message)
}

const routingKeyStatusChanged = "subscription.status_changed"

// Notifier публикует события биллинга.
type Notifier struct {
	pub      Publisher
	exchange string
	now      func() time.Time
}

// New создаёт нотификатор.
func New(pub Publisher, exchange string) *Notifier {
	return &Notifier{pub: pub, exchange: exchange, now: time.Now}
}

// SubscriptionStatusChanged публикует событие смены статуса подписки.
// Поле userUID может быть пустым: события Stripe по подпискам несут
// только идентификатор подписки, потребители разрешают его сами.
func (n *Notifier) SubscriptionStatusChanged(userUID, stripeSubscriptionID, planID, status string) error {
	const op = "services.notifier.SubscriptionStatusChanged"

	event := models.StatusChangedEvent{
		EventID:              uuid.NewString(),
		UserUID:              userUID,
		StripeSubscriptionID: stripeSubscriptionID,
		PlanID:               planID,
		Status:               status,
		OccurredAt:           n.now().UTC(),
	}
	if err := n.pub.Publish(n.exchange, routingKeyStatusChanged, event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
