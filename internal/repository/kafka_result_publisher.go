package repository

import (
	"context"

	"GridAdvisor/internal/domain/models"
	domrepo "GridAdvisor/internal/domain/repository"
	pkgkafka "GridAdvisor/pkg/kafka"
)

// KafkaResultPublisher publishes job results keyed by request id, so replies for one
// request stay on one partition.
type KafkaResultPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaResultPublisher(p *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (k *KafkaResultPublisher) PublishResult(ctx context.Context, res *models.AnalysisJobResult) error {
	var key []byte
	if res.RequestID != "" {
		key = []byte(res.RequestID)
	}
	return k.producer.Publish(ctx, k.topic, key, res)
}

func (k *KafkaResultPublisher) Close() error { return k.producer.Close() }

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
