package model

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ActorID    string    `db:"actor_id" json:"actorId"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID string    `db:"resource_id" json:"resourceId"`
	Changes    JSONMap   `db:"changes" json:"changes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type AuditFilters struct {
	ActorID  string
	Resource string
	Action   string
	Limit    int
}
