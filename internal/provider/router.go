package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router manages registered clients and routes generation requests to the
// default one. It satisfies Client itself so callers need not care whether
// one or several providers are configured.
type Router struct {
	clients  map[string]Client
	defaults string
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewRouter creates an empty provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		clients: make(map[string]Client),
		logger:  logger,
	}
}

// Register adds a client. The first registered client becomes the default.
func (r *Router) Register(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ID()] = c
	if r.defaults == "" {
		r.defaults = c.ID()
	}
	r.logger.Info("registered provider", zap.String("id", c.ID()), zap.String("name", c.Name()))
}

// SetDefault selects the default client by ID.
func (r *Router) SetDefault(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = id
}

func (r *Router) ID() string   { return "router" }
func (r *Router) Name() string { return "provider router" }

// Generate routes the request to the default client.
func (r *Router) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	r.mu.RLock()
	c, ok := r.clients[r.defaults]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no provider registered")
	}
	return c.Generate(ctx, systemPrompt, userPrompt, maxTokens)
}
