package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Ingestor accepts one raw telemetry document, shared with the HTTP path so
// both transports validate and store identically.
type Ingestor interface {
	IngestReading(raw []byte) (int64, error)
}

// Bridge subscribes to a telemetry topic and feeds each message through the
// ingestion pipeline. Topics follow fleet/<vehicle_id>/telemetry; when the
// payload itself lacks a vehicle_id, the topic segment fills it in.
type Bridge struct {
	client paho.Client
	topic  string
	ingest Ingestor
	logger *slog.Logger
}

// NewBridge configures an MQTT client against the broker.
func NewBridge(brokerURL, topic string, ingest Ingestor, logger *slog.Logger) *Bridge {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("fleetwatch-ingest").
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	return &Bridge{
		client: paho.NewClient(opts),
		topic:  topic,
		ingest: ingest,
		logger: logger,
	}
}

// Start connects and subscribes, then blocks until the context is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect mqtt broker: %w", token.Error())
	}
	if token := b.client.Subscribe(b.topic, 1, b.handleMessage); token.Wait() && token.Error() != nil {
		b.client.Disconnect(250)
		return fmt.Errorf("subscribe %s: %w", b.topic, token.Error())
	}
	b.logger.Info("mqtt ingest bridge started", "topic", b.topic)

	<-ctx.Done()
	b.client.Disconnect(250)
	b.logger.Info("mqtt ingest bridge stopped")
	return nil
}

func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	raw := b.withTopicVehicleID(msg.Topic(), msg.Payload())
	id, err := b.ingest.IngestReading(raw)
	if err != nil {
		b.logger.Warn("drop mqtt telemetry", "topic", msg.Topic(), "err", err)
		return
	}
	b.logger.Debug("mqtt telemetry stored", "topic", msg.Topic(), "id", id)
}

// withTopicVehicleID injects the topic's vehicle segment into documents that
// omit vehicle_id. Malformed payloads pass through untouched so that the
// ingestion path reports the validation error.
func (b *Bridge) withTopicVehicleID(topic string, payload []byte) []byte {
	vehicleID := topicVehicleID(topic)
	if vehicleID == "" {
		return payload
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(payload, &doc); err != nil || doc == nil {
		return payload
	}
	if _, ok := doc["vehicle_id"]; ok {
		return payload
	}
	idRaw, err := json.Marshal(vehicleID)
	if err != nil {
		return payload
	}
	doc["vehicle_id"] = idRaw
	merged, err := json.Marshal(doc)
	if err != nil {
		return payload
	}
	return merged
}

func topicVehicleID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "fleet" || parts[2] != "telemetry" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
