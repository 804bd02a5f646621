// Package search wires the search subsystem: fallback strategy execution,
// ranking, enrichment, suggestions, rate limiting, and analytics recording.
package search

import (
	householdrepo "inventory_backend/internal/households/repository"
	householdsvc "inventory_backend/internal/households/service"
	apphttp "inventory_backend/internal/http"
	"inventory_backend/internal/search/analytics"
	"inventory_backend/internal/search/capability"
	"inventory_backend/internal/search/handler"
	"inventory_backend/internal/search/ratelimit"
	"inventory_backend/internal/search/repository"
	"inventory_backend/internal/search/service"
	"inventory_backend/platform/config"
	"inventory_backend/platform/logger"
	"inventory_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig is the configuration surface the module needs.
type ModuleConfig interface {
	config.SearchConfig
	config.SuggestConfig
}

type Module struct {
	handler *handler.Handler
}

// NewModule assembles the search module. The capability cache and analytics
// recorder are built by the composition root: the cache is probed at startup,
// and the recorder depends on whether redis is configured.
func NewModule(
	pool *pgxpool.Pool,
	caps *capability.Cache,
	recorder analytics.Recorder,
	val *validator.Validator,
	cfg ModuleConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	households := householdsvc.New(householdrepo.New(pool))

	svc := service.New(repo, caps, recorder, log, cfg.GetSearchQueryTimeout())
	suggester := service.NewSuggester(repo, recorder, log, service.Budget{
		ItemShare:        cfg.GetSuggestItemShare(),
		LocationShare:    cfg.GetSuggestLocationShare(),
		TagShare:         cfg.GetSuggestTagShare(),
		DescriptionShare: cfg.GetSuggestDescriptionShare(),
	})

	h := handler.New(svc, suggester, households, ratelimit.New(), caps, val, cfg, log)

	return &Module{handler: h}
}

func (m *Module) Name() string {
	return "search"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/search")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
