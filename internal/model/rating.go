package model

import (
	"time"

	"github.com/google/uuid"
)

type RecipeRating struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	RecipeID  uuid.UUID `gorm:"type:uuid;not null;index" json:"recipe_id"`
	UserIP    string    `gorm:"size:64" json:"-"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
}

func (RecipeRating) TableName() string {
	return "recipe_ratings"
}
