package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/innkeeplabs/innkeep-backend/pkg/db/models"
)

// ResourceDTO represents the resource payload returned to clients.
type ResourceDTO struct {
	ID            uuid.UUID  `json:"id"`
	PropertyID    uuid.UUID  `json:"property_id"`
	Kind          string     `json:"kind"`
	CapacityModel string     `json:"capacity_model"`
	Granularity   string     `json:"granularity"`
	Name          string     `json:"name"`
	Capacity      int        `json:"capacity"`
	Tags          []string   `json:"tags,omitempty"`
	RetiredAt     *time.Time `json:"retired_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewResourceDTO builds a DTO from the persisted model.
func NewResourceDTO(resource *models.Resource) *ResourceDTO {
	return &ResourceDTO{
		ID:            resource.ID,
		PropertyID:    resource.PropertyID,
		Kind:          string(resource.Kind),
		CapacityModel: string(resource.CapacityModel),
		Granularity:   string(resource.Granularity),
		Name:          resource.Name,
		Capacity:      resource.Capacity,
		Tags:          append([]string{}, resource.Tags...),
		RetiredAt:     resource.RetiredAt,
		CreatedAt:     resource.CreatedAt,
		UpdatedAt:     resource.UpdatedAt,
	}
}

// ResourceListResult is one page of resources plus the cursor for the next.
type ResourceListResult struct {
	Resources  []ResourceDTO `json:"resources"`
	NextCursor string        `json:"next_cursor,omitempty"`
}
