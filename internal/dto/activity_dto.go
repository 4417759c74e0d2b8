package dto

import (
	"fmt"
	"time"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// ActivityListRequest filters the audit trail. Zero ids and nil bounds mean "any";
// Since and Until are inclusive on created_at.
type ActivityListRequest struct {
	Page       int
	PageSize   int
	ActorID    uint
	Action     string
	EntityType string
	EntityID   uint
	Since      *time.Time
	Until      *time.Time
}

// ActivityResponse is one audit entry. Subject is "<entity_type>/<entity_id>", or the bare type
// for singleton entities such as the similarity policy.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	At         time.Time              `json:"created_at"`
	ActorID    uint                   `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	Subject    string                 `json:"subject"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type ActivityListResponse struct {
	Items      []ActivityResponse
	Pagination PaginationMeta
}

func NewActivityResponse(row models.ActivityLog) ActivityResponse {
	out := ActivityResponse{
		ID:         row.ID,
		At:         row.CreatedAt,
		ActorID:    row.ActorID,
		ActorRole:  row.ActorRole,
		Action:     row.Action,
		Subject:    row.EntityType,
		EntityType: row.EntityType,
		EntityID:   row.EntityID,
		Metadata:   map[string]interface{}{},
	}
	if row.EntityID != nil {
		out.Subject = fmt.Sprintf("%s/%d", row.EntityType, *row.EntityID)
	}
	for key, value := range row.Metadata {
		out.Metadata[key] = value
	}
	return out
}
