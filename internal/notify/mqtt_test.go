package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

type doneToken struct {
	err  error
	done chan struct{}
}

func newDoneToken(err error) *doneToken {
	ch := make(chan struct{})
	close(ch)
	return &doneToken{err: err, done: ch}
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Done() <-chan struct{}          { return t.done }
func (t *doneToken) Error() error                   { return t.err }

type fakeClient struct {
	mqtt.Client
	topic    string
	qos      byte
	retained bool
	payload  []byte
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.retained = retained
	c.payload = payload.([]byte)
	return newDoneToken(c.err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "mosques/east-london-mosque/timetable", Topic("East London Mosque"))
	assert.Equal(t, "mosques/unnamed/timetable", Topic("مسجد"))
}

func TestPublish(t *testing.T) {
	client := &fakeClient{}
	p := NewMQTTPublisher(client)
	updated := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), &model.Timetable{
		ID:         "tt-1",
		MosqueName: "Al-Noor",
		UpdatedAt:  updated,
		Times:      []model.DailyPrayerTime{{Date: "2025-03-01", PrayerTimeSet: model.PrayerTimeSet{Fajr: "05:10"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "mosques/al-noor/timetable", client.topic)
	assert.Equal(t, byte(1), client.qos)
	assert.True(t, client.retained)

	var msg TimetableMessage
	require.NoError(t, json.Unmarshal(client.payload, &msg))
	assert.Equal(t, "timetable_update", msg.Type)
	assert.Equal(t, "tt-1", msg.TimetableID)
	assert.Equal(t, updated, msg.UpdatedAt)
	require.Len(t, msg.Times, 1)
	assert.Equal(t, "05:10", msg.Times[0].Fajr)
}

func TestPublishError(t *testing.T) {
	p := NewMQTTPublisher(&fakeClient{err: errors.New("not connected")})
	err := p.Publish(context.Background(), &model.Timetable{ID: "x", MosqueName: "Central"})
	assert.ErrorContains(t, err, "failed to publish to mosques/central/timetable")
}
