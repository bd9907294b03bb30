package model

import (
	"time"

	"github.com/google/uuid"
)

// GenerationLog records one attempt to generate a recipe, successful or not.
type GenerationLog struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	RecipeID        *uuid.UUID       `gorm:"type:uuid;index" json:"recipe_id,omitempty"`
	OriginalRequest string           `gorm:"type:text" json:"original_request"`
	ProcessLog      JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"process_log"`
	Success         bool             `json:"success"`
	ErrorMessage    string           `gorm:"type:text" json:"error_message"`
	GenerationTime  int              `gorm:"column:generation_time_seconds" json:"generation_time_seconds"`
}

func (GenerationLog) TableName() string {
	return "generation_logs"
}
