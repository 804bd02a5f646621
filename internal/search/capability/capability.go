// Package capability probes the database for optional text-search extensions
// and resolves the probe result into a search strategy configuration.
//
// Capability does not change within a deployment's lifetime, so the result is
// probed once and cached; Refresh exists for tests and operational reloads.
package capability

import (
	"context"
	"sync"

	"inventory_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ExtensionStatus reports which optional Postgres extensions are installed.
type ExtensionStatus struct {
	PgTrgm                bool `json:"pg_trgm"`
	Unaccent              bool `json:"unaccent"`
	UUIDOSSP              bool `json:"uuid_ossp"`
	FullTextSearchCapable bool `json:"fullTextSearchCapable"`
}

// SearchConfiguration is the strategy selection derived from ExtensionStatus.
// Exactly one of the three strategies is the starting point for a request.
type SearchConfiguration struct {
	UseFullTextSearch bool
	UseTrigramSearch  bool
	UseUnaccent       bool
	FallbackToILike   bool
}

// Resolve maps an extension status to a strategy configuration. Pure, no I/O.
// Full-text search is built atop the trigram indexes in this schema, so it
// requires pg_trgm as a prerequisite. When neither capability is present the
// ILIKE fallback is the one viable strategy.
func Resolve(status ExtensionStatus) SearchConfiguration {
	cfg := SearchConfiguration{
		UseFullTextSearch: status.FullTextSearchCapable && status.PgTrgm,
		UseTrigramSearch:  status.PgTrgm,
		UseUnaccent:       status.Unaccent,
	}
	cfg.FallbackToILike = !cfg.UseFullTextSearch && !cfg.UseTrigramSearch
	return cfg
}

// Prober inspects the system catalogs for installed extensions.
type Prober struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewProber creates a prober bound to the given pool.
func NewProber(pool *pgxpool.Pool, log *logger.Logger) *Prober {
	return &Prober{pool: pool, log: log}
}

const extensionQuery = `SELECT extname FROM pg_extension WHERE extname IN ('pg_trgm', 'unaccent', 'uuid-ossp')`

// Probe inspects pg_extension for the capabilities search cares about.
// On any failure it returns an all-false status and no error: environments
// without introspection privileges must degrade, never crash.
func (p *Prober) Probe(ctx context.Context) ExtensionStatus {
	var status ExtensionStatus

	rows, err := p.pool.Query(ctx, extensionQuery)
	if err != nil {
		if p.log != nil {
			p.log.Warn("extension probe failed, assuming no extensions", "error", err)
		}
		return status
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			if p.log != nil {
				p.log.Warn("extension probe scan failed, assuming no extensions", "error", err)
			}
			return ExtensionStatus{}
		}
		switch name {
		case "pg_trgm":
			status.PgTrgm = true
		case "unaccent":
			status.Unaccent = true
		case "uuid-ossp":
			status.UUIDOSSP = true
		}
	}
	if rows.Err() != nil {
		if p.log != nil {
			p.log.Warn("extension probe iteration failed, assuming no extensions", "error", rows.Err())
		}
		return ExtensionStatus{}
	}

	// Full-text search only performs acceptably with the trigram-backed
	// indexes this schema ships, so capability follows pg_trgm.
	status.FullTextSearchCapable = status.PgTrgm
	return status
}

// StatusSource yields the current extension status. Implemented by Cache and
// by test fakes that pin a scenario.
type StatusSource interface {
	Status() ExtensionStatus
}

// Cache holds the probed status as explicitly initialized, injectable state
// rather than an ambient global. Refresh re-probes; Invalidate forces the
// next Refresh (probing never happens implicitly on Status reads).
type Cache struct {
	mu     sync.RWMutex
	prober *Prober
	status ExtensionStatus
	probed bool
}

// NewCache creates an unprobed cache. Call Refresh before serving traffic.
func NewCache(prober *Prober) *Cache {
	return &Cache{prober: prober}
}

// Status returns the cached extension status (all-false until first Refresh).
func (c *Cache) Status() ExtensionStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Refresh re-probes the database and replaces the cached status.
func (c *Cache) Refresh(ctx context.Context) ExtensionStatus {
	status := c.prober.Probe(ctx)
	c.mu.Lock()
	c.status = status
	c.probed = true
	c.mu.Unlock()
	return status
}

// Invalidate resets the cache to the safe all-false default.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.status = ExtensionStatus{}
	c.probed = false
	c.mu.Unlock()
}

var _ StatusSource = (*Cache)(nil)
