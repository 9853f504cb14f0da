package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/trimwell/insight-service/internal/adapters/handler"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// RecordSyncMessage represents a daily sync message from a device gateway.
// A message carries one user-day; any of the three sections may be absent
// when the device has nothing for that category.
type RecordSyncMessage struct {
	UserID   string                       `json:"user_id"`
	Date     string                       `json:"date"` // YYYY-MM-DD
	Sleep    *ports.IngestSleepRequest    `json:"sleep,omitempty"`
	Activity *ports.IngestActivityRequest `json:"activity,omitempty"`
	Heart    *ports.IngestHeartRequest    `json:"heart,omitempty"`
}

// RecordConsumer consumes daily health record sync messages from RabbitMQ
// Runs in background as a goroutine within the insight-service pod
// (For multi-replica deployments, RabbitMQ distributes messages across replicas)
type RecordConsumer struct {
	conn           *amqp091.Connection
	channel        *amqp091.Channel
	queueName      string
	recordService  ports.HealthRecordService
	connMutex      sync.RWMutex
	reconnectCh    chan bool
	stopReconnect  chan bool
	maxRetries     int
	retryDelay     time.Duration
	consumingCtx   context.Context
	consumingMutex sync.Mutex
	isConsuming    bool
}

// NewRecordConsumer creates a new RabbitMQ consumer for health record sync
func NewRecordConsumer(rabbitMQURL string, queueName string, recordService ports.HealthRecordService) (*RecordConsumer, error) {
	if queueName == "" {
		queueName = "health_records"
	}

	consumer := &RecordConsumer{
		queueName:     queueName,
		recordService: recordService,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
	}

	if err := consumer.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Start reconnection handler
	go consumer.handleReconnection(rabbitMQURL)

	return consumer, nil
}

// connect establishes connection to RabbitMQ
func (c *RecordConsumer) connect(rabbitMQURL string) error {
	var err error
	for i := 0; i < c.maxRetries; i++ {
		c.conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v", i+1, c.maxRetries, err)
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay)
		}
	}

	if err != nil {
		return err
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return err
	}

	// Declare queue (idempotent)
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)

	if err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	log.Println("Record consumer connected to RabbitMQ successfully")
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (c *RecordConsumer) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-c.reconnectCh:
			log.Println("Attempting to reconnect to RabbitMQ...")
			c.connMutex.Lock()
			if c.conn != nil && !c.conn.IsClosed() {
				c.conn.Close()
			}
			if c.channel != nil && !c.channel.IsClosed() {
				c.channel.Close()
			}
			c.connMutex.Unlock()

			if err := c.connect(rabbitMQURL); err != nil {
				log.Printf("Reconnection failed: %v", err)
				time.Sleep(5 * time.Second)
				c.reconnectCh <- true
			} else {
				// Restart consuming after reconnection using the original context
				c.consumingMutex.Lock()
				if c.consumingCtx != nil && c.consumingCtx.Err() == nil {
					if !c.isConsuming {
						go c.StartConsuming(c.consumingCtx)
					}
				}
				c.consumingMutex.Unlock()
			}
		case <-c.stopReconnect:
			return
		}
	}
}

// StartConsuming starts consuming messages from the queue in a background goroutine
// QoS=1 keeps deliveries sequential; a day's three sections are ingested
// before the next message is received
func (c *RecordConsumer) StartConsuming(ctx context.Context) error {
	// Prevent multiple consumers from starting in the same pod instance
	c.consumingMutex.Lock()
	if c.isConsuming {
		c.consumingMutex.Unlock()
		log.Println("Record consumer is already running in this pod, skipping duplicate start")
		return nil
	}
	c.isConsuming = true
	c.consumingCtx = ctx
	c.consumingMutex.Unlock()

	c.connMutex.RLock()
	channel := c.channel
	conn := c.conn
	c.connMutex.RUnlock()

	if channel == nil || channel.IsClosed() || conn == nil || conn.IsClosed() {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("RabbitMQ connection is closed")
	}

	err := channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	)
	if err != nil {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	consumerTag := fmt.Sprintf("record-consumer-%d", time.Now().UnixNano())
	msgs, err := channel.Consume(
		c.queueName, // queue
		consumerTag, // consumer tag
		false,       // auto-ack (manual ack after successful ingestion)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		c.consumingMutex.Lock()
		c.isConsuming = false
		c.consumingMutex.Unlock()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf("Record consumer started (tag: %s), waiting for messages on queue: %s", consumerTag, c.queueName)

	go func() {
		defer func() {
			c.consumingMutex.Lock()
			c.isConsuming = false
			c.consumingMutex.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				log.Println("Record consumer context cancelled")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Record consumer channel closed, attempting reconnection...")
					c.reconnectCh <- true
					return
				}

				c.processMessage(ctx, msg)
			}
		}
	}()

	return nil
}

// processMessage processes a single sync message from RabbitMQ
// Message is acknowledged ONLY after every present section was ingested.
// Ingestion is an upsert per user-day, so redelivery is safe.
func (c *RecordConsumer) processMessage(ctx context.Context, msg amqp091.Delivery) {
	var req RecordSyncMessage
	if err := json.Unmarshal(msg.Body, &req); err != nil {
		log.Printf("Failed to unmarshal record sync message: %v", err)
		// Invalid message format - reject and don't requeue
		handler.RecordsConsumedTotal.WithLabelValues("rejected").Inc()
		msg.Nack(false, false)
		return
	}

	if req.UserID == "" {
		log.Printf("Invalid record sync message: user_id is required")
		handler.RecordsConsumedTotal.WithLabelValues("rejected").Inc()
		msg.Nack(false, false)
		return
	}
	if req.Sleep == nil && req.Activity == nil && req.Heart == nil {
		log.Printf("Invalid record sync message: no record sections present")
		handler.RecordsConsumedTotal.WithLabelValues("rejected").Inc()
		msg.Nack(false, false)
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		log.Printf("Invalid record sync message: user_id is not a valid UUID: %v", err)
		handler.RecordsConsumedTotal.WithLabelValues("rejected").Inc()
		msg.Nack(false, false)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		log.Printf("Invalid record sync message: date is not YYYY-MM-DD: %v", err)
		handler.RecordsConsumedTotal.WithLabelValues("rejected").Inc()
		msg.Nack(false, false)
		return
	}

	log.Printf("Received record sync message: user_id=%s, date=%s", req.UserID, req.Date)

	// The device gateway acts on behalf of the user, so the caller is the
	// record owner
	if req.Sleep != nil {
		sleep := *req.Sleep
		sleep.Date = date
		if _, err := c.recordService.IngestSleepRecord(ctx, userID, sleep, userID, false); err != nil {
			log.Printf("Failed to ingest sleep record from sync message: %v", err)
			handler.RecordsConsumedTotal.WithLabelValues("requeued").Inc()
			msg.Nack(false, true)
			return
		}
	}
	if req.Activity != nil {
		activity := *req.Activity
		activity.Date = date
		if _, err := c.recordService.IngestActivityRecord(ctx, userID, activity, userID, false); err != nil {
			log.Printf("Failed to ingest activity record from sync message: %v", err)
			handler.RecordsConsumedTotal.WithLabelValues("requeued").Inc()
			msg.Nack(false, true)
			return
		}
	}
	if req.Heart != nil {
		heart := *req.Heart
		heart.Date = date
		if _, err := c.recordService.IngestHeartRecord(ctx, userID, heart, userID, false); err != nil {
			log.Printf("Failed to ingest heart record from sync message: %v", err)
			handler.RecordsConsumedTotal.WithLabelValues("requeued").Inc()
			msg.Nack(false, true)
			return
		}
	}

	log.Printf("Successfully ingested record sync message: user_id=%s, date=%s", req.UserID, req.Date)
	handler.RecordsConsumedTotal.WithLabelValues("success").Inc()

	// Ack only after every section succeeded; redelivery repeats the upserts
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to acknowledge record sync message: %v", err)
	}
}

// Close closes the RabbitMQ connection and stops consuming
// The consuming context is cancelled by main.go during graceful shutdown
func (c *RecordConsumer) Close() error {
	close(c.stopReconnect)

	c.consumingMutex.Lock()
	c.isConsuming = false
	c.consumingMutex.Unlock()

	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		if err := c.channel.Close(); err != nil {
			log.Printf("Error closing RabbitMQ channel: %v", err)
		}
	}

	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			log.Printf("Error closing RabbitMQ connection: %v", err)
		}
	}

	log.Println("Record consumer closed")
	return nil
}
