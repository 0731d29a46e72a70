package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouterDispatchesByRoutingKey(t *testing.T) {
	r := NewRouter(zap.NewNop())

	var got string
	r.Register("a.b", func(ctx context.Context, data json.RawMessage) error {
		got = string(data)
		return nil
	})

	err := r.Handle(context.Background(), "a.b", json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, got)
}

func TestRouterUnknownKeyIsAcked(t *testing.T) {
	// unknown keys are dropped, not nacked into a redelivery loop
	r := NewRouter(zap.NewNop())
	assert.NoError(t, r.Handle(context.Background(), "no.such.key", nil))
}

func TestRouterPropagatesHandlerError(t *testing.T) {
	r := NewRouter(zap.NewNop())

	boom := errors.New("boom")
	r.Register("a.b", func(ctx context.Context, data json.RawMessage) error {
		return boom
	})

	assert.ErrorIs(t, r.Handle(context.Background(), "a.b", nil), boom)
}
