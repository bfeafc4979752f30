package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// OTelMetrics holds the websocket instruments
type OTelMetrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messageBytes       metric.Int64Counter
	messagesReceived   metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewOTelMetrics registers the websocket instruments on meter. A nil meter
// yields no-op instruments.
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("bizpulse.websocket")
	}

	var (
		m   OTelMetrics
		err error
	)

	if m.connectionsTotal, err = meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	); err != nil {
		return nil, err
	}

	if m.connectionsActive, err = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	); err != nil {
		return nil, err
	}

	if m.connectionDuration, err = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("WebSocket connection lifetime in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.messagesSent, err = meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Total number of messages delivered to client buffers"),
	); err != nil {
		return nil, err
	}

	if m.messageBytes, err = meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes written to WebSocket clients"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.messagesReceived, err = meter.Int64Counter(
		"websocket_messages_received_total",
		metric.WithDescription("Total number of messages received from clients"),
	); err != nil {
		return nil, err
	}

	if m.droppedMessages, err = meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Messages dropped because a client buffer was full"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordConnection counts a new client
func (m *OTelMetrics) RecordConnection(ctx context.Context) {
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection records how long the client stayed and why it left
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, duration time.Duration, reason string) {
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordMessageSent counts an event queued for a client
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, eventType string) {
	m.messagesSent.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordBytesWritten counts bytes written to a client socket
func (m *OTelMetrics) RecordBytesWritten(ctx context.Context, size int) {
	m.messageBytes.Add(ctx, int64(size))
}

// RecordMessageReceived counts a client message by type
func (m *OTelMetrics) RecordMessageReceived(ctx context.Context, messageType string) {
	m.messagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", messageType)))
}

// RecordDroppedMessage counts an event a slow client missed
func (m *OTelMetrics) RecordDroppedMessage(ctx context.Context, eventType string) {
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
