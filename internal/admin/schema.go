package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/mkellner/shopctl/internal/apierr"
)

// SchemaSlice is the portion of the store's OpenAPI document that concerns
// one entity.
type SchemaSlice struct {
	Entity  string                     `json:"entity"`
	Paths   map[string]json.RawMessage `json:"paths"`
	Schemas map[string]json.RawMessage `json:"schemas"`
}

// Definition is one entity definition from the entity schema document.
type Definition struct {
	Entity     string          `json:"entity"`
	MatchedKey string          `json:"matchedKey,omitempty"`
	Definition json.RawMessage `json:"definition"`
}

// Entities returns all entity names known to the store, sorted. The
// definitions document is fetched once per Service and memoized.
func (s *Service) Entities(ctx context.Context) ([]string, error) {
	defs, err := s.definitions(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// EntityDefinition returns the structure of one entity, tolerating kebab- vs
// snake-case spellings of the name.
func (s *Service) EntityDefinition(ctx context.Context, entity string) (*Definition, error) {
	if entity == "" {
		return nil, &apierr.ValidationError{Detail: "entity name is required"}
	}
	defs, err := s.definitions(ctx)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(strings.ReplaceAll(entity, "_", "-"))
	if raw, ok := defs[key]; ok {
		return &Definition{Entity: entity, Definition: raw}, nil
	}
	for candidate, raw := range defs {
		if normalizeEntityName(candidate) == normalizeEntityName(entity) {
			return &Definition{Entity: entity, MatchedKey: candidate, Definition: raw}, nil
		}
	}
	return nil, &apierr.NotFoundError{Entity: "entity definition", ID: entity}
}

// EntitySchema extracts the paths and component schemas for one entity from
// the store's OpenAPI document.
func (s *Service) EntitySchema(ctx context.Context, entity string) (*SchemaSlice, error) {
	if entity == "" {
		return nil, &apierr.ValidationError{Detail: "entity name is required"}
	}

	res, err := s.dispatcher.Dispatch(ctx, http.MethodGet, "/_info/openapi3.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Paths      map[string]json.RawMessage `json:"paths"`
		Components struct {
			Schemas map[string]json.RawMessage `json:"schemas"`
		} `json:"components"`
	}
	if err := json.Unmarshal(res.Raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAPI document: %w", err)
	}

	kebab := strings.ToLower(strings.ReplaceAll(entity, "_", "-"))
	slice := &SchemaSlice{
		Entity:  entity,
		Paths:   map[string]json.RawMessage{},
		Schemas: map[string]json.RawMessage{},
	}
	for path, data := range doc.Paths {
		lower := strings.ToLower(path)
		if strings.Contains(lower, "/"+kebab) || strings.Contains(lower, kebab) {
			slice.Paths[path] = data
		}
	}
	for name, data := range doc.Components.Schemas {
		if normalizeEntityName(name) == normalizeEntityName(entity) {
			slice.Schemas[name] = data
		}
	}

	if len(slice.Paths) == 0 && len(slice.Schemas) == 0 {
		return nil, &apierr.NotFoundError{Entity: "OpenAPI schema", ID: entity}
	}
	return slice, nil
}

// definitions fetches /_info/open-api-schema.json once and caches the
// decoded document for the lifetime of the Service. Failed fetches are not
// cached.
func (s *Service) definitions(ctx context.Context) (map[string]json.RawMessage, error) {
	s.defsMu.Lock()
	defer s.defsMu.Unlock()
	if s.defs != nil {
		return s.defs, nil
	}

	res, err := s.dispatcher.Dispatch(ctx, http.MethodGet, "/_info/open-api-schema.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var defs map[string]json.RawMessage
	if err := json.Unmarshal(res.Raw, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode entity definitions: %w", err)
	}
	s.defs = defs
	return defs, nil
}

// normalizeEntityName folds case and separator differences so "order_line_item",
// "order-line-item" and "OrderLineItem" compare equal.
func normalizeEntityName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}
