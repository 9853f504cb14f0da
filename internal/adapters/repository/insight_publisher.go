package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"github.com/trimwell/insight-service/internal/adapters/handler"
	"github.com/trimwell/insight-service/internal/core/domain"
	"github.com/trimwell/insight-service/internal/core/ports"
)

// RabbitMQPublisher implements InsightPublisher for publishing summary
// contexts and metric alerts to RabbitMQ
// Includes retry logic and circuit breaker for resilience
type RabbitMQPublisher struct {
	conn          *amqp091.Connection
	channel       *amqp091.Channel
	insightsQueue string
	alertsQueue   string
	cb            *gobreaker.CircuitBreaker
	maxRetries    int
	retryDelay    time.Duration
	connMutex     sync.RWMutex
	reconnectCh   chan bool
	stopReconnect chan bool
}

// InsightContextEvent wraps a daily summary for the AI insight pipeline.
// ContextHash lets the consumer reuse cached insights for identical context.
type InsightContextEvent struct {
	Summary     *domain.DailySummary `json:"summary"`
	ContextHash string               `json:"context_hash"`
	Timestamp   time.Time            `json:"timestamp"`
}

// NewRabbitMQPublisher creates a new RabbitMQ publisher with circuit breaker
func NewRabbitMQPublisher(rabbitMQURL, insightsQueue, alertsQueue string) (*RabbitMQPublisher, error) {
	if insightsQueue == "" {
		insightsQueue = "insight_contexts"
	}
	if alertsQueue == "" {
		alertsQueue = "metric_alerts"
	}

	publisher := &RabbitMQPublisher{
		insightsQueue: insightsQueue,
		alertsQueue:   alertsQueue,
		maxRetries:    3,
		retryDelay:    1 * time.Second,
		reconnectCh:   make(chan bool, 1),
		stopReconnect: make(chan bool),
	}

	// Circuit breaker settings
	settings := gobreaker.Settings{
		Name:        "rabbitmq",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}
	publisher.cb = gobreaker.NewCircuitBreaker(settings)

	if err := publisher.connect(rabbitMQURL); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	// Start reconnection handler
	go publisher.handleReconnection(rabbitMQURL)

	return publisher, nil
}

// connect establishes connection to RabbitMQ and declares both queues
func (p *RabbitMQPublisher) connect(rabbitMQURL string) error {
	var err error
	for i := 0; i < p.maxRetries; i++ {
		p.conn, err = amqp091.Dial(rabbitMQURL)
		if err == nil {
			break
		}
		log.Printf("Failed to connect to RabbitMQ (attempt %d/%d): %v", i+1, p.maxRetries, err)
		if i < p.maxRetries-1 {
			time.Sleep(p.retryDelay)
		}
	}

	if err != nil {
		return err
	}

	p.channel, err = p.conn.Channel()
	if err != nil {
		p.conn.Close()
		return err
	}

	// Declare queues (idempotent)
	for _, queue := range []string{p.insightsQueue, p.alertsQueue} {
		_, err = p.channel.QueueDeclare(
			queue, // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			p.channel.Close()
			p.conn.Close()
			return err
		}
	}

	log.Println("Connected to RabbitMQ successfully")
	return nil
}

// handleReconnection handles automatic reconnection to RabbitMQ
func (p *RabbitMQPublisher) handleReconnection(rabbitMQURL string) {
	for {
		select {
		case <-p.reconnectCh:
			log.Println("Attempting to reconnect to RabbitMQ...")
			p.connMutex.Lock()
			if p.channel != nil {
				p.channel.Close()
			}
			if p.conn != nil {
				p.conn.Close()
			}
			p.connMutex.Unlock()

			if err := p.connect(rabbitMQURL); err != nil {
				log.Printf("Reconnection failed: %v", err)
			}
		case <-p.stopReconnect:
			return
		}
	}
}

// PublishInsightContext publishes a daily summary to the insights queue
// Implements InsightPublisher interface
func (p *RabbitMQPublisher) PublishInsightContext(ctx context.Context, summary *domain.DailySummary) error {
	event := InsightContextEvent{
		Summary:     summary,
		ContextHash: summary.ContextHash(),
		Timestamp:   time.Now(),
	}

	logEntry := map[string]interface{}{
		"event":        "insight_context_publish_attempt",
		"user_id":      summary.UserID.String(),
		"date":         summary.Date,
		"context_hash": event.ContextHash,
		"timestamp":    time.Now().Format(time.RFC3339),
	}
	jsonBytes, _ := json.Marshal(logEntry)
	log.Printf("%s", string(jsonBytes))

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal insight context event: %w", err)
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.publishWithRetry(ctx, p.insightsQueue, body)
	})
	if err != nil {
		handler.SummariesPublishedTotal.WithLabelValues("error").Inc()
		return err
	}
	handler.SummariesPublishedTotal.WithLabelValues("success").Inc()
	return nil
}

// PublishAlert publishes a worst-bucket metric alert to the alerts queue
// Implements InsightPublisher interface
func (p *RabbitMQPublisher) PublishAlert(ctx context.Context, alert *domain.MetricAlert) error {
	logEntry := map[string]interface{}{
		"event":     "alert_publish_attempt",
		"user_id":   alert.UserID.String(),
		"metric":    string(alert.Metric),
		"value":     alert.Value,
		"status":    string(alert.Evaluation.Status),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	jsonBytes, _ := json.Marshal(logEntry)
	log.Printf("%s", string(jsonBytes))

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal metric alert: %w", err)
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.publishWithRetry(ctx, p.alertsQueue, body)
	})
	if err != nil {
		return err
	}
	handler.AlertsPublishedTotal.WithLabelValues(string(alert.Metric)).Inc()
	return nil
}

// publishWithRetry publishes with retry logic
func (p *RabbitMQPublisher) publishWithRetry(ctx context.Context, queue string, body []byte) error {
	var lastErr error
	for i := 0; i < p.maxRetries; i++ {
		p.connMutex.RLock()
		ch := p.channel
		conn := p.conn
		p.connMutex.RUnlock()

		if ch == nil || conn == nil || conn.IsClosed() {
			// Trigger reconnection
			select {
			case p.reconnectCh <- true:
			default:
			}
			time.Sleep(p.retryDelay)
			continue
		}

		err := ch.PublishWithContext(
			ctx,
			"",    // exchange
			queue, // routing key
			false, // mandatory
			false, // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				Body:         body,
				DeliveryMode: amqp091.Persistent,
				Timestamp:    time.Now(),
			},
		)

		if err == nil {
			return nil
		}

		lastErr = err
		log.Printf("Failed to publish to %s (attempt %d/%d): %v", queue, i+1, p.maxRetries, err)

		if i < p.maxRetries-1 {
			// Trigger reconnection on error
			select {
			case p.reconnectCh <- true:
			default:
			}
			time.Sleep(p.retryDelay)
		}
	}

	return fmt.Errorf("failed to publish after %d retries: %w", p.maxRetries, lastErr)
}

// Close closes the RabbitMQ connection
func (p *RabbitMQPublisher) Close() error {
	close(p.stopReconnect)
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Ensure RabbitMQPublisher implements InsightPublisher
var _ ports.InsightPublisher = (*RabbitMQPublisher)(nil)
