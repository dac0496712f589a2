package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	skafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []skafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...skafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaProducer_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaProducerWithWriter(fw)

	require.NoError(t, p.Publish(context.Background(), "key1", map[string]string{"a": "b"}))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "key1", string(fw.msgs[0].Key))
	assert.JSONEq(t, `{"a":"b"}`, string(fw.msgs[0].Value))
}

func TestEmitter_RSVPSwallowsErrors(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	e := NewEmitter(NewKafkaProducerWithWriter(fw), zerolog.Nop())

	assert.NotPanics(t, func() {
		e.RSVP(context.Background(), RSVPEvent{Type: RSVPCreated, RSVPID: "r1"})
	})
	assert.Empty(t, fw.msgs)
}

func TestEmitter_RSVPPayload(t *testing.T) {
	fw := &fakeWriter{}
	e := NewEmitter(NewKafkaProducerWithWriter(fw), zerolog.Nop())
	attending := true

	e.RSVP(context.Background(), RSVPEvent{Type: RSVPUpdated, RSVPID: "r1", Attending: &attending})

	require.Len(t, fw.msgs, 1)
	var got RSVPEvent
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, RSVPUpdated, got.Type)
	assert.Equal(t, "r1", got.RSVPID)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() {
		e.RSVP(context.Background(), RSVPEvent{Type: RSVPDeleted})
	})
}
