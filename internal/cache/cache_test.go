package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestNopAlwaysMisses(t *testing.T) {
	var c Cache = Nop{}
	c.Set(context.Background(), "k", []byte("v"))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestTasksKey(t *testing.T) {
	assert.Equal(t, "tasks:space:abc", TasksKey("abc"))
}

func TestRedisRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	r, err := NewRedis(ctx, fmt.Sprintf("redis://%s/0", endpoint), 4, time.Minute)
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.Get(ctx, TasksKey("s1"))
	assert.False(t, ok)

	r.Set(ctx, TasksKey("s1"), []byte(`[]`))
	b, ok := r.Get(ctx, TasksKey("s1"))
	require.True(t, ok)
	assert.Equal(t, "[]", string(b))

	r.Invalidate(ctx, TasksKey("s1"))
	_, ok = r.Get(ctx, TasksKey("s1"))
	assert.False(t, ok)
}
