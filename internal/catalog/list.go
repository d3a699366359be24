package catalog

import (
	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/pkg/enums"
	"github.com/innkeeplabs/innkeep-backend/pkg/pagination"
)

// ResourceListFilters describe the supported filter knobs for the list endpoint.
type ResourceListFilters struct {
	Kind           *enums.ResourceKind `json:"kind,omitempty"`
	IncludeRetired bool                `json:"include_retired,omitempty"`
	Tag            string              `json:"tag,omitempty"`
}

// ListResourcesInput captures the inputs needed to paginate resources for a property.
type ListResourcesInput struct {
	PropertyID uuid.UUID
	Filters    ResourceListFilters
	Pagination pagination.Params
}
