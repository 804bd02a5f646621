package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	householdsvc "inventory_backend/internal/households/service"
	"inventory_backend/internal/search/capability"
	"inventory_backend/internal/search/ratelimit"
	searchsvc "inventory_backend/internal/search/service"
	"inventory_backend/internal/search/transport"
	"inventory_backend/platform/apperr"
	"inventory_backend/platform/config"
	"inventory_backend/platform/httpkit"
	"inventory_backend/platform/logger"
	"inventory_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"

	apiVersion = "1.0"
)

// Rate limit action buckets. Each endpoint draws from its own window so
// exhausting one never blocks the others.
const (
	actionSearch         = "search"
	actionSearchAdvanced = "search-advanced"
	actionSuggestions    = "search-suggestions"
)

type Handler struct {
	svc        *searchsvc.Service
	suggester  *searchsvc.Suggester
	households *householdsvc.Service
	limiter    *ratelimit.Limiter
	caps       *capability.Cache
	val        *validator.Validator
	cfg        config.SearchConfig
	log        *logger.Logger
}

func New(
	svc *searchsvc.Service,
	suggester *searchsvc.Suggester,
	households *householdsvc.Service,
	limiter *ratelimit.Limiter,
	caps *capability.Cache,
	val *validator.Validator,
	cfg config.SearchConfig,
	log *logger.Logger,
) *Handler {
	return &Handler{
		svc:        svc,
		suggester:  suggester,
		households: households,
		limiter:    limiter,
		caps:       caps,
		val:        val,
		cfg:        cfg,
		log:        log,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Search)
	rg.POST("", h.AdvancedSearch)
	rg.GET("/suggestions", h.Suggestions)
	rg.POST("/capabilities/refresh", h.RefreshCapabilities)
}

// Search handles the simple query-string search.
func (h *Handler) Search(c *gin.Context) {
	var req transport.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	h.runSearch(c, req, actionSearch, h.searchLimit())
}

// AdvancedSearch handles the JSON body variant with structured filters.
func (h *Handler) AdvancedSearch(c *gin.Context) {
	var req transport.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	h.runSearch(c, req, actionSearchAdvanced, h.searchLimit())
}

func (h *Handler) runSearch(c *gin.Context, req transport.SearchRequest, action string, limit ratelimit.Config) {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	householdID, err := h.households.Resolve(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	if !h.allow(c, identity.UserID().String(), action, limit) {
		return
	}

	result, err := h.svc.Search(c.Request.Context(), householdID, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SearchResponse{
		Data: *result,
		Meta: transport.Meta{
			Timestamp:          time.Now().UTC(),
			Version:            apiVersion,
			SearchCapabilities: h.caps.Status(),
		},
	})
}

// Suggestions handles autocomplete queries.
func (h *Handler) Suggestions(c *gin.Context) {
	var req transport.SuggestionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	householdID, err := h.households.Resolve(c.Request.Context(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	if !h.allow(c, identity.UserID().String(), actionSuggestions, h.suggestLimit()) {
		return
	}

	var types []string
	if req.Types != "" {
		types = strings.Split(req.Types, ",")
	}

	result, err := h.suggester.Suggest(c.Request.Context(), householdID, identity.UserID(), req.Text, req.Limit, types)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SuggestionResponse{Data: *result})
}

// RefreshCapabilities re-probes the database extensions. Operational hook for
// after an extension install; not part of the regular request flow.
func (h *Handler) RefreshCapabilities(c *gin.Context) {
	status := h.caps.Refresh(c.Request.Context())
	httpkit.OK(c, gin.H{"searchCapabilities": status})
}

// allow runs the per-user fixed-window check and writes the 429 response when
// the budget is exhausted.
func (h *Handler) allow(c *gin.Context, userID, action string, cfg ratelimit.Config) bool {
	result := h.limiter.Check(userID, action, cfg)

	c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime.Unix(), 10))

	if result.Allowed {
		return true
	}

	retryAfter := int(time.Until(result.ResetTime).Seconds()) + 1
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	h.log.RateLimitExceeded(userID, action)

	err := apperr.TooManyRequests("rate limit exceeded").WithDetails(map[string]interface{}{
		"action":    action,
		"limit":     cfg.MaxRequests,
		"resetTime": result.ResetTime.UTC(),
	})
	c.Abort()
	httpkit.HandleError(c, err)
	return false
}

func (h *Handler) searchLimit() ratelimit.Config {
	return ratelimit.Config{
		MaxRequests: h.cfg.GetSearchRateLimitMax(),
		Window:      h.cfg.GetSearchRateLimitWindow(),
	}
}

func (h *Handler) suggestLimit() ratelimit.Config {
	return ratelimit.Config{
		MaxRequests: h.cfg.GetSuggestRateLimitMax(),
		Window:      h.cfg.GetSuggestRateLimitWindow(),
	}
}
