package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/metrics"
	"github.com/feral-file/ff-marketplace-mirror/internal/queue"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

// DeliveryTimeout bounds a single delivery request
const DeliveryTimeout = 10 * time.Second

// Notifier fans mirrored events out to subscribed endpoints
//
//go:generate mockgen -source=webhook.go -destination=../mocks/webhook.go -package=mocks -mock_names=Notifier=MockNotifier,Deliverer=MockDeliverer
type Notifier interface {
	// Fanout creates one delivery and one WEBHOOK_DELIVER job per subscribed endpoint
	Fanout(ctx context.Context, eventType domain.EventType, payload domain.EventPayload) error
}

// Deliverer performs webhook deliveries
type Deliverer interface {
	// Deliver POSTs a delivery to its endpoint. Non-2xx responses and network errors are
	// returned so the job is retried.
	Deliver(ctx context.Context, deliveryID string) error
}

// Service implements Notifier and Deliverer
type Service struct {
	store      store.Store
	queue      queue.Queue
	httpClient adapter.HTTPClient
	jcs        adapter.JCS
	clock      adapter.Clock
}

// NewService creates a new webhook service
func NewService(st store.Store, q queue.Queue, httpClient adapter.HTTPClient, jcs adapter.JCS, clock adapter.Clock) *Service {
	return &Service{
		store:      st,
		queue:      q,
		httpClient: httpClient,
		jcs:        jcs,
		clock:      clock,
	}
}

// Fanout creates deliveries for the endpoints subscribed to eventType. Failures of one
// endpoint are logged and do not stop the others.
func (s *Service) Fanout(ctx context.Context, eventType domain.EventType, payload domain.EventPayload) error {
	endpoints, err := s.store.GetActiveWebhookEndpointsByEventType(ctx, eventType)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	logger.DebugCtx(ctx, "Fanning out webhooks",
		zap.String("event_type", string(eventType)),
		zap.Int("count", len(endpoints)),
	)

	for _, endpoint := range endpoints {
		deliveryID := uuid.NewString()
		err := s.store.WithTx(ctx, func(tx store.Store) error {
			jobID, err := s.queue.Enqueue(ctx, schema.JobTypeWebhookDeliver, queue.WebhookDeliverPayload{
				DeliveryID: deliveryID,
			}, queue.EnqueueOptions{
				MaxAttempts: domain.WEBHOOK_MAX_ATTEMPTS,
				Tx:          tx,
			})
			if err != nil {
				return err
			}

			return tx.CreateWebhookDelivery(ctx, &schema.WebhookDelivery{
				ID:         deliveryID,
				EndpointID: endpoint.ID,
				EventType:  string(eventType),
				Payload:    datatypes.JSON(data),
				JobID:      jobID,
			})
		})
		if err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to fan out webhook: %w", err),
				zap.String("endpoint_id", endpoint.ID),
				zap.String("event_type", string(eventType)),
			)
		}
	}

	return nil
}

// Deliver sends one delivery and records the response on it
func (s *Service) Deliver(ctx context.Context, deliveryID string) error {
	delivery, err := s.store.GetWebhookDelivery(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery == nil {
		logger.WarnCtx(ctx, "Delivery not found, skipping", zap.String("delivery_id", deliveryID))
		return nil
	}

	endpoint, err := s.store.GetWebhookEndpoint(ctx, delivery.EndpointID)
	if err != nil {
		return err
	}
	if endpoint == nil || endpoint.Status == schema.WebhookEndpointStatusDisabled {
		logger.InfoCtx(ctx, "Endpoint unavailable, skipping delivery",
			zap.String("delivery_id", deliveryID),
			zap.String("endpoint_id", delivery.EndpointID),
		)
		return nil
	}

	body, signature, err := SignedBody(s.jcs, endpoint.Secret, DeliveryBody{
		ID:    deliveryID,
		Event: delivery.EventType,
		Data:  json.RawMessage(delivery.Payload),
	})
	if err != nil {
		return err
	}

	result := s.post(ctx, endpoint.URL, delivery.EventType, deliveryID, body, signature)
	metrics.WebhookDeliveries.WithLabelValues(metrics.StatusClass(result.StatusCode)).Inc()

	update := store.UpdateWebhookDeliveryResultInput{
		ID:           deliveryID,
		ResponseBody: &result.Body,
	}
	if result.StatusCode != 0 {
		code := result.StatusCode
		update.StatusCode = &code
	}
	if result.Success {
		now := s.clock.Now()
		update.DeliveredAt = &now
	}
	if err := s.store.UpdateWebhookDeliveryResult(ctx, update); err != nil {
		if result.Success {
			return err
		}
		logger.WarnCtx(ctx, "Failed to record delivery result",
			zap.Error(err),
			zap.String("delivery_id", deliveryID),
		)
	}

	if result.StatusCode == 0 {
		return fmt.Errorf("webhook delivery failed: %s", result.Body)
	}
	if !result.Success {
		return fmt.Errorf("endpoint returned %d", result.StatusCode)
	}

	logger.DebugCtx(ctx, "Webhook delivered",
		zap.String("delivery_id", deliveryID),
		zap.Int("status_code", result.StatusCode),
	)
	return nil
}

func (s *Service) post(ctx context.Context, url, eventType, deliveryID string, body []byte, signature string) DeliveryResult {
	resp, err := s.httpClient.Do(ctx, adapter.HTTPRequest{
		Method: http.MethodPost,
		URL:    url,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			HeaderEventType:  eventType,
			HeaderSignature:  signature,
			HeaderDeliveryID: deliveryID,
		},
		Body:    body,
		Timeout: DeliveryTimeout,
	}, domain.WEBHOOK_RESPONSE_BODY_LIMIT)
	if err != nil {
		return DeliveryResult{Body: truncate(err.Error(), domain.WEBHOOK_RESPONSE_BODY_LIMIT)}
	}

	return DeliveryResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       truncate(string(resp.Body), domain.WEBHOOK_RESPONSE_BODY_LIMIT),
	}
}

// truncate makes s safe for a TEXT column and cuts it to at most n bytes on a rune boundary
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
