package mq

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

type TypedHandlerFunc func(ctx context.Context, data json.RawMessage) error

// Router dispatches deliveries to a handler by routing key.
type Router struct {
	routes map[string]TypedHandlerFunc
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		routes: make(map[string]TypedHandlerFunc),
		logger: logger,
	}
}

func (r *Router) Register(routingKey string, h TypedHandlerFunc) {
	r.routes[routingKey] = h
}

// Handle implements MessageHandler.
func (r *Router) Handle(ctx context.Context, routingKey string, data json.RawMessage) error {
	h, ok := r.routes[routingKey]
	if !ok {
		r.logger.Warn("No handler for routing key", zap.String("routing_key", routingKey))
		return nil
	}

	return h(ctx, data)
}
