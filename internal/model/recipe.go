package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// JSONBMap stores an arbitrary JSON object column, used for raw nutrition data
type JSONBMap map[string]interface{}

// Value implements the driver.Valuer interface
func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface
func (m *JSONBMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONBMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Recipe rows always carry an application-assigned uuid; no database-side
// default, so the schema migrates onto sqlite in tests.
type Recipe struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
	Title           string           `gorm:"size:255;not null" json:"title"`
	Description     string           `gorm:"type:text" json:"description"`
	OriginalRequest string           `gorm:"type:text" json:"original_request"`
	PrepTime        string           `gorm:"size:50" json:"prep_time"`
	CookTime        string           `gorm:"size:50" json:"cook_time"`
	TotalTime       string           `gorm:"size:50" json:"total_time"`
	Servings        string           `gorm:"size:50" json:"servings"`
	Difficulty      string           `gorm:"size:50" json:"difficulty"`
	Complexity      string           `gorm:"size:50" json:"complexity"`
	CuisineType     string           `gorm:"size:50" json:"cuisine_type"`
	MealType        string           `gorm:"size:50" json:"meal_type"`
	Ingredients     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Instructions    JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"instructions"`
	Tags            JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"tags"`
	ChefNotes       JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"chef_notes"`
	Enhancements    JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"enhancements"`
	QualityScore    float64          `gorm:"type:float" json:"quality_score"`
	QualityLevel    string           `gorm:"size:50" json:"quality_level"`
	NutritionData   JSONBMap         `gorm:"type:jsonb;default:'{}'" json:"nutrition_data"`
	NutritionScore  float64          `gorm:"type:float" json:"nutrition_score"`
	DietaryTags     JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"dietary_tags"`
	IterationsCount int              `json:"iterations_count"`
	GenerationTime  int              `gorm:"column:generation_time_seconds" json:"generation_time_seconds"`
	ViewsCount      int              `json:"views_count"`
	Embedding       pgvector.Vector  `gorm:"type:vector(3)" json:"-"`
}
