package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/JeremiasMeza/IA-Rag/internal/logger"
)

// 文档生命周期事件类型
const (
	EventDocumentAdded   = "document.added"
	EventDocumentDeleted = "document.deleted"
	EventTenantDeleted   = "tenant.deleted"
	EventIndexReset      = "index.reset"
)

// DocumentEvent 文档生命周期事件
type DocumentEvent struct {
	Type       string    `json:"event"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Filename   string    `json:"source,omitempty"`
	ChunkCount int       `json:"chunks,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Producer 文档事件Kafka生产者
// 事件发布是尽力而为的，失败只记日志不影响主流程
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer 创建Kafka生产者
func NewProducer(brokers []string, topic string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &Producer{producer: producer, topic: topic}, nil
}

// Publish 发布文档事件
func (p *Producer) Publish(event DocumentEvent) {
	if p == nil || p.producer == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Warn("failed to marshal document event", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.TenantID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logger.Warn("failed to publish document event",
			zap.String("type", event.Type),
			zap.String("tenant_id", event.TenantID),
			zap.Error(err))
		return
	}

	logger.Debug("document event published",
		zap.String("type", event.Type),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
}

// Close 关闭生产者
func (p *Producer) Close() error {
	if p != nil && p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
