package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	pkgkafka "SentiPulse/pkg/kafka"
)

// KafkaIngestHandler consumes ingest requests from Kafka.
type KafkaIngestHandler struct {
	topic   string
	ingest  *Ingest
	metrics domrepo.Metrics
}

func NewKafkaIngestHandler(topic string, ingest *Ingest, metrics domrepo.Metrics) *KafkaIngestHandler {
	return &KafkaIngestHandler{topic: topic, ingest: ingest, metrics: metrics}
}

func (h *KafkaIngestHandler) Topic() string { return h.topic }

// Handle decodes the same payload as POST /messages. Malformed, invalid, unknown and late
// messages go straight to the dead-letter topic.
func (h *KafkaIngestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.IngestRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode ingest message: %w", err))
	}
	if !req.Timestamp.IsZero() {
		h.metrics.RecordLatency("ingest_e2e", time.Since(req.Timestamp).Seconds())
	}

	start := time.Now()
	_, err := h.ingest.Ingest(ctx, "kafka", &req)
	h.metrics.RecordLatency("consumer_ingest", time.Since(start).Seconds())
	if err != nil {
		if IsPermanent(err) {
			return pkgkafka.Permanent(err)
		}
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaIngestHandler)(nil)
