package queue

import (
	"encoding/json"
	"fmt"

	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/store/schema"
)

// MetadataFetchPayload is the payload of a METADATA_FETCH job
type MetadataFetchPayload struct {
	Chain           domain.Chain `json:"chain"`
	ContractAddress string       `json:"contractAddress"`
	TokenID         string       `json:"tokenId"`
}

// MetadataPinPayload is the payload of a METADATA_PIN job
type MetadataPinPayload struct {
	CID string `json:"cid"`
}

// StatsUpdatePayload is the payload of a STATS_UPDATE job
type StatsUpdatePayload struct {
	Chain           domain.Chain `json:"chain"`
	ContractAddress string       `json:"contractAddress"`
}

// WebhookDeliverPayload is the payload of a WEBHOOK_DELIVER job
type WebhookDeliverPayload struct {
	DeliveryID string `json:"deliveryId"`
}

// DecodePayload unmarshals the payload of a job
func DecodePayload[T any](job *schema.Job) (T, error) {
	var payload T
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode %s payload: %w", job.Type, err)
	}
	return payload, nil
}
