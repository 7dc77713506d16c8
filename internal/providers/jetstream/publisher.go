package jetstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/messaging"
)

// SubjectPrefix is the first token of every published subject
const SubjectPrefix = "marketplace"

// Config holds the configuration for NATS JetStream connection
type Config struct {
	URL            string
	StreamName     string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
}

type publisher struct {
	nc adapter.NatsConn
	js adapter.JetStream
}

// NewPublisher connects to NATS and makes sure the stream capturing marketplace.> exists
func NewPublisher(ctx context.Context, cfg Config, natsJS adapter.NatsJetStream) (messaging.Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	if err := js.EnsureStream(ctx, cfg.StreamName, []string{SubjectPrefix + ".>"}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
	}

	return &publisher{nc: nc, js: js}, nil
}

// PublishEvent publishes an event to marketplace.<network>.<event_type>. The message id is the
// event position, so JetStream drops the duplicate when a range is replayed within its window.
func (p *publisher) PublishEvent(ctx context.Context, chain domain.Chain, event domain.Event) error {
	msg := messaging.NewMessage(chain, event)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := Subject(chain, msg.EventType)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(MessageID(chain, event))); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	logger.DebugCtx(ctx, "Published event", zap.String("subject", subject), zap.String("tx_hash", event.Position().TxHash))
	return nil
}

// Subject builds the subject of an event type on a chain
func Subject(chain domain.Chain, eventType domain.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, chain.Subject(), strings.ToLower(string(eventType)))
}

// MessageID identifies an event by its chain position
func MessageID(chain domain.Chain, event domain.Event) string {
	pos := event.Position()
	return fmt.Sprintf("%s:%s:%d:%s", chain, pos.TxHash, pos.LogIndex, event.Kind())
}

// Close drains and closes the NATS connection
func (p *publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logger.Warn("Failed to drain NATS connection", zap.Error(err))
		p.nc.Close()
	}
}
