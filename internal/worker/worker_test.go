package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/space-todo/internal/cache"
	"github.com/Tomlord1122/space-todo/internal/events"
)

type recordingCache struct {
	cache.Nop
	mu          sync.Mutex
	invalidated []string
}

func (r *recordingCache) Invalidate(_ context.Context, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, keys...)
}

type fakeReader struct {
	msgs      []kafka.Message
	committed int
	closed    bool
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.msgs[0]
	f.msgs = f.msgs[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed += len(msgs)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func payload(t *testing.T, ev events.Event) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleInvalidatesTaskCache(t *testing.T) {
	c := &recordingCache{}
	err := Handle(context.Background(), payload(t, events.Event{Type: events.TaskCreated, SpaceID: "s1"}), c)
	require.NoError(t, err)
	assert.Equal(t, []string{cache.TasksKey("s1")}, c.invalidated)

	err = Handle(context.Background(), payload(t, events.Event{Type: events.TodoCreated, ListID: "l1"}), c)
	require.NoError(t, err)
	assert.Len(t, c.invalidated, 1)
}

func TestRunCommitsEvenPoisonMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &recordingCache{}
	reader := &fakeReader{
		cancel: cancel,
		msgs: []kafka.Message{
			{Value: []byte("not json")},
			{Value: payload(t, events.Event{Type: events.TaskCreated, SpaceID: "s2"})},
		},
	}

	Run(ctx, reader, c)

	assert.Equal(t, 2, reader.committed)
	assert.True(t, reader.closed)
	assert.Equal(t, []string{cache.TasksKey("s2")}, c.invalidated)
	assert.True(t, errors.Is(ctx.Err(), context.Canceled))
}
