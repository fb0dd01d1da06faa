package admin

import "encoding/json"

// Criteria is the Admin API search criteria document. Ordered parts (filter,
// sort, aggregations) are slices so their wire order always matches caller
// order.
type Criteria struct {
	Page           int                 `json:"page,omitempty"`
	Limit          int                 `json:"limit,omitempty"`
	Filter         []Filter            `json:"filter,omitempty"`
	PostFilter     []Filter            `json:"post-filter,omitempty"`
	Sort           []Sort              `json:"sort,omitempty"`
	Associations   map[string]Criteria `json:"associations,omitempty"`
	Aggregations   []Aggregation       `json:"aggregations,omitempty"`
	Grouping       []string            `json:"grouping,omitempty"`
	Fields         []string            `json:"fields,omitempty"`
	IDs            []string            `json:"ids,omitempty"`
	Includes       map[string][]string `json:"includes,omitempty"`
	TotalCountMode string              `json:"total-count-mode,omitempty"`
}

// Filter is one filter clause. Value-bearing types (equals, equalsAny,
// contains, prefix, suffix) use Field/Value; range uses Parameters;
// composite types (multi, not) use Operator/Queries.
type Filter struct {
	Type       string         `json:"type"`
	Field      string         `json:"field,omitempty"`
	Value      any            `json:"value,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Operator   string         `json:"operator,omitempty"`
	Queries    []Filter       `json:"queries,omitempty"`
}

// MarshalJSON emits only the members that belong to the filter's shape. An
// equals filter always carries "value", even when it is null — the default
// parent-product filter depends on an explicit null.
func (f Filter) MarshalJSON() ([]byte, error) {
	switch {
	case len(f.Queries) > 0 || f.Operator != "":
		return json.Marshal(struct {
			Type     string   `json:"type"`
			Field    string   `json:"field,omitempty"`
			Operator string   `json:"operator,omitempty"`
			Queries  []Filter `json:"queries,omitempty"`
		}{f.Type, f.Field, f.Operator, f.Queries})
	case len(f.Parameters) > 0:
		return json.Marshal(struct {
			Type       string         `json:"type"`
			Field      string         `json:"field,omitempty"`
			Parameters map[string]any `json:"parameters"`
		}{f.Type, f.Field, f.Parameters})
	default:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Field string `json:"field,omitempty"`
			Value any    `json:"value"`
		}{f.Type, f.Field, f.Value})
	}
}

// Sort is one sort clause.
type Sort struct {
	Field          string `json:"field"`
	Order          string `json:"order,omitempty"`
	NaturalSorting bool   `json:"naturalSorting,omitempty"`
}

// Aggregation is one statistical aggregation request.
type Aggregation struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// parentOnlyFilter restricts product searches to parent products, matching
// the admin panel's default view. Unfiltered product search is dominated by
// generated variants otherwise.
func parentOnlyFilter() Filter {
	return Filter{Type: "equals", Field: "parentId", Value: nil}
}
