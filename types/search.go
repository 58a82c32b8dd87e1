package types

// SearchOperator is a filter comparison understood by the backend search endpoint.
type SearchOperator string

const (
	OpIs        SearchOperator = "is"
	OpEquals    SearchOperator = "equals"
	OpContains  SearchOperator = "contains"
	OpGT        SearchOperator = "gt"
	OpLT        SearchOperator = "lt"
	OpGTE       SearchOperator = "gte"
	OpLTE       SearchOperator = "lte"
	OpNotEquals SearchOperator = "not_equals"
	OpIn        SearchOperator = "in"
	OpNotIn     SearchOperator = "not_in"
	OpIsNull    SearchOperator = "is_null"
	OpIsNotNull SearchOperator = "is_not_null"
)

// SearchFilter is one field/operator/value condition.
type SearchFilter struct {
	Field    string         `json:"field" binding:"required" validate:"required"`
	Operator SearchOperator `json:"operator" binding:"required" validate:"required,oneof=is equals contains gt lt gte lte not_equals in not_in is_null is_not_null"`
	Value    interface{}    `json:"value"`
}

// SearchRequest is the invoice search payload.
type SearchRequest struct {
	Filters   []SearchFilter `json:"filters" validate:"dive"`
	SortBy    string         `json:"sort_by,omitempty"`
	SortOrder string         `json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
}
