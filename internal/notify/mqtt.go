// Package notify pushes saved timetables to mosque display screens over MQTT.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

const publishTimeout = 10 * time.Second

// TimetableMessage is the retained payload on a mosque's timetable topic.
type TimetableMessage struct {
	Type        string                  `json:"type"`
	TimetableID string                  `json:"timetableId"`
	MosqueName  string                  `json:"mosqueName"`
	UpdatedAt   time.Time               `json:"updatedAt"`
	Times       []model.DailyPrayerTime `json:"times"`
}

// MQTTPublisher publishes each saved timetable as a retained message so a
// screen that connects later still receives the current one.
type MQTTPublisher struct {
	client mqtt.Client
}

// Topic returns the timetable topic for a mosque.
func Topic(mosqueName string) string {
	slug := model.Slug(mosqueName)
	if slug == "" {
		slug = "unnamed"
	}
	return fmt.Sprintf("mosques/%s/timetable", slug)
}

// Connect dials the broker and returns a publisher.
func Connect(brokerURL, clientID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(publishTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("component", "notify").Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("component", "notify").Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return NewMQTTPublisher(client), nil
}

// NewMQTTPublisher wraps a connected client.
func NewMQTTPublisher(client mqtt.Client) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// Publish sends t to its mosque topic with QoS 1.
func (p *MQTTPublisher) Publish(ctx context.Context, t *model.Timetable) error {
	payload, err := json.Marshal(TimetableMessage{
		Type:        "timetable_update",
		TimetableID: t.ID,
		MosqueName:  t.MosqueName,
		UpdatedAt:   t.UpdatedAt,
		Times:       t.Times,
	})
	if err != nil {
		return fmt.Errorf("encode timetable message: %w", err)
	}

	topic := Topic(t.MosqueName)
	token := p.client.Publish(topic, 1, true, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return errors.New("timed out publishing timetable")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	log.Info().Str("component", "notify").Str("topic", topic).Str("timetable_id", t.ID).Msg("published timetable")
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
