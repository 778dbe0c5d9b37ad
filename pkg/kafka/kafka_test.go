package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileEvent struct {
	Path string `json:"path"`
	Op   string `json:"op"`
}

func TestDecodeJSON(t *testing.T) {
	ev, err := DecodeJSON[fileEvent]([]byte(`{"path":"src/a.go","op":"change"}`))
	require.NoError(t, err)
	assert.Equal(t, fileEvent{Path: "src/a.go", Op: "change"}, ev)

	_, err = DecodeJSON[fileEvent]([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{{Key: "search", Value: map[string]int{"returned": 3}}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "search", string(msgs[0].Key))
	assert.JSONEq(t, `{"returned":3}`, string(msgs[0].Value))

	_, err = encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestPingWithoutBrokers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, Ping(ctx, nil))
}
