package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"inflow/internal/config"
	"inflow/internal/constants"
	"inflow/internal/logger"
	"inflow/pkg/metrics"
	"inflow/pkg/models"
)

type KafkaProducer struct {
	writer *kafka.Writer
	logger logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: constants.KafkaBatchTimeout,
		WriteTimeout: constants.KafkaWriteTimeout,
		Async:        false,
	}
	return &KafkaProducer{writer: w, logger: log}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, ev models.InboundEvent) error {
	if err := models.ValidateInboundEvent(&ev); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			// Key by correspondent so one contact's events stay ordered
			// within a partition.
			Key:   []byte(ev.CorrespondentID),
			Value: body,
			Time:  time.Now(),
		},
	)

	if err != nil {
		metrics.EventPublishTotal.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	metrics.EventPublishTotal.WithLabelValues(topic, "success").Inc()
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
