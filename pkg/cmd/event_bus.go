package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dukex/crmflow/pkg/channels/gochannel"
	"github.com/dukex/crmflow/pkg/channels/kafka"
	"github.com/dukex/crmflow/pkg/eventbus"
)

const webhookTimeout = 30 * time.Second

// NewEventBus builds the bus of a provider: "kafka" or "gochannel" (in-process).
func NewEventBus(provider, serviceName string, brokers []string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, serviceName, brokers)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "gochannel", "memory":
		pub, sub, err := gochannel.CreateChannel(wmLogger, gochannel.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %q", provider)
	}
}

// NewHTTPClient is the traced client used by webhook actions.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   webhookTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
