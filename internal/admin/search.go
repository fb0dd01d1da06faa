// Package admin exposes the Admin API's entity operations — search, by-ID
// fetch, bulk sync and schema discovery — on top of the request dispatcher.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mkellner/shopctl/internal/apierr"
	"github.com/mkellner/shopctl/internal/client"
)

// Dispatcher is the slice of the request dispatcher the facades need.
type Dispatcher interface {
	Dispatch(ctx context.Context, method, endpoint string, body any, params url.Values, opts ...client.RequestOption) (*client.Result, error)
}

// Service bundles the search, sync and schema facades. Stateless per call
// apart from the memoized entity definitions document.
type Service struct {
	dispatcher Dispatcher
	logger     zerolog.Logger

	defsMu sync.Mutex
	defs   map[string]json.RawMessage
}

// NewService creates the facade layer over a dispatcher.
func NewService(dispatcher Dispatcher, logger zerolog.Logger) *Service {
	return &Service{dispatcher: dispatcher, logger: logger}
}

// Search returns full records matching the criteria via
// POST /api/search/{entity}. For the product entity a caller who supplies no
// filter clauses gets the parent-only default filter; any caller filter
// suppresses the default entirely.
func (s *Service) Search(ctx context.Context, entity string, criteria Criteria) (*client.Result, error) {
	if entity == "" {
		return nil, &apierr.ValidationError{Detail: "entity name is required"}
	}
	return s.dispatcher.Dispatch(ctx, http.MethodPost, "/search/"+entity, applyDefaultFilter(entity, criteria), nil)
}

// SearchIDs returns only matching IDs via POST /api/search-ids/{entity}.
// The same product default filter policy applies.
func (s *Service) SearchIDs(ctx context.Context, entity string, criteria Criteria) (*client.Result, error) {
	if entity == "" {
		return nil, &apierr.ValidationError{Detail: "entity name is required"}
	}
	return s.dispatcher.Dispatch(ctx, http.MethodPost, "/search-ids/"+entity, applyDefaultFilter(entity, criteria), nil)
}

// GetByID fetches a single entity record, optionally loading associations in
// the same request. A remote 404 surfaces as a NotFoundError carrying the
// entity and id.
func (s *Service) GetByID(ctx context.Context, entity, id string, associations map[string]Criteria) (*client.Result, error) {
	if entity == "" {
		return nil, &apierr.ValidationError{Detail: "entity name is required"}
	}
	if id == "" {
		return nil, &apierr.ValidationError{Detail: "entity id is required"}
	}

	var params url.Values
	if len(associations) > 0 {
		encoded, err := json.Marshal(associations)
		if err != nil {
			return nil, &apierr.ValidationError{Detail: fmt.Sprintf("associations are not serializable: %v", err)}
		}
		params = url.Values{"associations": []string{string(encoded)}}
	}

	res, err := s.dispatcher.Dispatch(ctx, http.MethodGet, "/"+entity+"/"+id, nil, params)
	if err != nil {
		var nf *apierr.NotFoundError
		if errors.As(err, &nf) {
			return nil, &apierr.NotFoundError{Entity: entity, ID: id}
		}
		return nil, err
	}
	return res, nil
}

func applyDefaultFilter(entity string, criteria Criteria) Criteria {
	if entity == "product" && len(criteria.Filter) == 0 {
		criteria.Filter = []Filter{parentOnlyFilter()}
	}
	return criteria
}
