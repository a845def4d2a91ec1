package cache

import "github.com/jobsift/jobsift/internal/model"

// NopCache is a no-op cache used when result caching is disabled. Every
// lookup misses and stores are dropped, so each run re-analyzes everything.
type NopCache struct{}

func NewNopCache() *NopCache { return &NopCache{} }

func (c *NopCache) Lookup(fp model.Fingerprint) (*model.AnalysisResult, error) { return nil, nil }
func (c *NopCache) Store(fp model.Fingerprint, result model.AnalysisResult) error { return nil }
func (c *NopCache) ClearExpired() (int, error)       { return 0, nil }
func (c *NopCache) ClearAll() error                  { return nil }
func (c *NopCache) Stats() (model.CacheStats, error) { return model.CacheStats{}, nil }
