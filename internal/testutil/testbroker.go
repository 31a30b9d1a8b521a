package testutil

import (
	"context"
	"fmt"

	"github.com/linksight/gateway/internal/infra"
	amqp "github.com/rabbitmq/amqp091-go"
	rabbitmqTC "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

// TestBroker is a throwaway RabbitMQ instance with the click exchange
// declared.
type TestBroker struct {
	Conn      *amqp.Connection
	Channel   *amqp.Channel
	Exchange  string
	container *rabbitmqTC.RabbitMQContainer
}

// SetupTestBroker starts a RabbitMQ container and opens a channel with
// the given exchange declared on it.
func SetupTestBroker(ctx context.Context, exchange string) (*TestBroker, error) {
	container, err := rabbitmqTC.Run(ctx, "rabbitmq:3.12-alpine")
	if err != nil {
		return nil, fmt.Errorf("start rabbitmq container: %w", err)
	}

	url, err := container.AmqpURL(ctx)
	if err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("container amqp url: %w", err))
	}

	conn, ch, err := infra.NewBrokerChannel(url, exchange)
	if err != nil {
		return nil, terminate(ctx, container, fmt.Errorf("open channel: %w", err))
	}

	return &TestBroker{Conn: conn, Channel: ch, Exchange: exchange, container: container}, nil
}

// Teardown closes the channel and connection and terminates the
// container.
func (t *TestBroker) Teardown(ctx context.Context) {
	if t.Channel != nil {
		t.Channel.Close()
	}
	if t.Conn != nil {
		t.Conn.Close()
	}
	if t.container != nil {
		_ = t.container.Terminate(ctx)
	}
}
