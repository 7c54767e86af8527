package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserPreference captures one buyer's search intent. At most one row exists per user.
type UserPreference struct {
	ID              string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID          string           `json:"user_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	BudgetRangeID   string           `json:"budget_range_id" gorm:"type:varchar(36)"`
	SearchRadiusKm  int              `json:"search_radius_km" gorm:"default:10"`
	Latitude        *float64         `json:"latitude"`
	Longitude       *float64         `json:"longitude"`
	BudgetRange     *BudgetRange     `json:"budget_range,omitempty" gorm:"foreignKey:BudgetRangeID"`
	PropertyTypes   []PropertyType   `json:"property_types" gorm:"many2many:property_type_user_preference"`
	BhkTypes        []BhkType        `json:"bhk_types" gorm:"many2many:bhk_type_user_preference"`
	MoveInTimelines []MoveInTimeline `json:"move_in_timelines" gorm:"many2many:move_in_timeline_user_preference"`
	NearbyLocations []NearbyLocation `json:"nearby_locations" gorm:"many2many:nearby_location_user_preference"`
	Localities      []Locality       `json:"localities" gorm:"many2many:locality_user_preference"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (p *UserPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type BudgetRange struct {
	ID        string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Label     string `json:"label" gorm:"not null"`
	MinPrice  int64  `json:"min_price"`
	MaxPrice  int64  `json:"max_price"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`
}

type PropertyType struct {
	ID       string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name     string `json:"name" gorm:"not null"`
	Slug     string `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

type BhkType struct {
	ID        string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Label     string `json:"label" gorm:"not null"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`
}

type MoveInTimeline struct {
	ID        string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Label     string `json:"label" gorm:"not null"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`
}

type NearbyLocation struct {
	ID    string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Label string `json:"label" gorm:"not null"`
	Icon  string `json:"icon"`
}

type Locality struct {
	ID   string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name string `json:"name" gorm:"not null"`
	City string `json:"city" gorm:"default:Bangalore"`
}

func (Locality) TableName() string {
	return "localities"
}
