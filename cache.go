package main

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ModelLister is implemented by gateways that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelCatalog caches the gateway's model list for a fixed TTL.
type ModelCatalog struct {
	lister ModelLister
	ttl    time.Duration
	logger *logrus.Logger

	mu          sync.RWMutex
	models      []ModelInfo
	lastUpdated time.Time
}

// NewModelCatalog creates a catalog backed by lister with the specified TTL.
func NewModelCatalog(lister ModelLister, ttl time.Duration, logger *logrus.Logger) *ModelCatalog {
	if logger == nil {
		logger = discardLogger()
	}
	return &ModelCatalog{lister: lister, ttl: ttl, logger: logger}
}

// Get retrieves models from cache if not expired
func (c *ModelCatalog) Get() ([]ModelInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.models) == 0 || time.Since(c.lastUpdated) > c.ttl {
		return nil, false
	}

	modelsCopy := make([]ModelInfo, len(c.models))
	copy(modelsCopy, c.models)
	return modelsCopy, true
}

// Set replaces the cached models.
func (c *ModelCatalog) Set(models []ModelInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = make([]ModelInfo, len(models))
	copy(c.models, models)
	c.lastUpdated = time.Now()
}

// Clear removes all models from the cache
func (c *ModelCatalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.models = nil
	c.lastUpdated = time.Time{}
}

// LastUpdated returns when the cache was last filled.
func (c *ModelCatalog) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdated
}

// Models returns the cached list, fetching from the gateway when the cache is
// empty, expired, or refresh is set.
func (c *ModelCatalog) Models(ctx context.Context, refresh bool) ([]ModelInfo, error) {
	if !refresh {
		if models, ok := c.Get(); ok {
			return models, nil
		}
	}

	models, err := c.lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(models)
	c.logger.WithField("count", len(models)).Debug("model catalog refreshed")
	return models, nil
}

// ValidateModels reports, for the chairman and every council member, whether
// the gateway currently serves it. Unavailable models are logged as warnings;
// the council still runs and those members fail individually.
func (c *ModelCatalog) ValidateModels(ctx context.Context, council CouncilConfig) (map[string]bool, error) {
	models, err := c.Models(ctx, false)
	if err != nil {
		return nil, err
	}

	available := make(map[string]bool, len(models))
	for _, m := range models {
		available[m.ID] = true
	}

	validation := make(map[string]bool, len(council.Members)+1)
	for _, id := range append(council.Clone().Members, council.Chairman) {
		validation[id] = available[id]
		if !available[id] {
			c.logger.WithField("model", id).Warn("configured model is not available from the gateway")
		}
	}
	return validation, nil
}
