// Package transport defines the wire types for the search API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"inventory_backend/internal/search/capability"
)

// Search method identifiers reported to clients so they can interpret the
// confidence of the ranking.
const (
	MethodFullText = "full_text_search"
	MethodTrigram  = "trigram_search"
	MethodILike    = "ilike_fallback"
)

// ValueRange filters items by value in cents.
type ValueRange struct {
	MinCents *int64 `json:"minCents" validate:"omitempty,min=0"`
	MaxCents *int64 `json:"maxCents" validate:"omitempty,min=0"`
}

// SearchFilters narrows the result set identically across all strategies.
type SearchFilters struct {
	ValueRange  *ValueRange `json:"valueRange" validate:"omitempty"`
	Statuses    []string    `json:"statuses" validate:"omitempty,dive,oneof=active archived lent_out disposed"`
	LocationIDs []string    `json:"locationIds" validate:"omitempty,dive,uuid"`
}

// SearchRequest is the full search query, immutable per request.
// The GET endpoint binds the flat fields from the query string; the POST
// endpoint accepts the whole struct including structured filters.
type SearchRequest struct {
	Text            string        `form:"q" json:"text" validate:"max=500"`
	Limit           int           `form:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
	Offset          int           `form:"offset" json:"offset" validate:"omitempty,min=0"`
	IncludePhotos   bool          `form:"includePhotos" json:"includePhotos"`
	IncludeTags     bool          `form:"includeTags" json:"includeTags"`
	IncludeLocation bool          `form:"includeLocation" json:"includeLocation"`
	Filters         SearchFilters `json:"filters"`
	SortBy          string        `form:"sortBy" json:"sortBy" validate:"omitempty,oneof=name created_at updated_at value"`
	SortOrder       string        `form:"sortOrder" json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Photo is an attached item photo.
type Photo struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	IsPrimary    bool      `json:"isPrimary"`
}

// Tag is an item label.
type Tag struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Location is the place an item is stored.
type Location struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// RankedItem is one search hit with a strategy-agnostic relevance score in
// [0,1]. Enrichment attaches the optional relations without touching the
// score or position.
type RankedItem struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	ValueCents     *int64     `json:"valueCents,omitempty"`
	LocationID     *uuid.UUID `json:"locationId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	RelevanceScore float64    `json:"relevanceScore"`
	Photos         []Photo    `json:"photos,omitempty"`
	Tags           []Tag      `json:"tags,omitempty"`
	Location       *Location  `json:"location,omitempty"`
}

// SearchResult is the ranked, enriched response payload.
type SearchResult struct {
	Items          []RankedItem `json:"items"`
	TotalCount     int64        `json:"totalCount"`
	ResponseTimeMs int64        `json:"responseTime"`
	SearchMethod   string       `json:"searchMethod"`
	HasMore        bool         `json:"hasMore"`
}

// Meta is the response envelope metadata.
type Meta struct {
	Timestamp          time.Time                  `json:"timestamp"`
	Version            string                     `json:"version"`
	SearchCapabilities capability.ExtensionStatus `json:"searchCapabilities"`
}

// SearchResponse is the GET/POST /search envelope.
type SearchResponse struct {
	Data SearchResult `json:"data"`
	Meta Meta         `json:"meta"`
}

// SuggestionRequest is the GET /search/suggestions query.
type SuggestionRequest struct {
	Text  string `form:"text" validate:"required,min=1,max=100"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=50"`
	Types string `form:"types"` // comma-separated subset of item,location,tag,description
}

// SearchSuggestion is one autocomplete candidate. Deduplicated by
// (text, type); merging keeps the max score and sums counts.
type SearchSuggestion struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Count int     `json:"count"`
	Score float64 `json:"score"`
}

// SuggestionResult is the suggestions payload.
type SuggestionResult struct {
	Suggestions    []SearchSuggestion `json:"suggestions"`
	HasMore        bool               `json:"hasMore"`
	ResponseTimeMs int64              `json:"responseTime"`
}

// SuggestionResponse is the GET /search/suggestions envelope.
type SuggestionResponse struct {
	Data SuggestionResult `json:"data"`
}
