package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FilterType controls how a facet is rendered and matched.
type FilterType string

const (
	FilterTypeSelect   FilterType = "select"
	FilterTypeRange    FilterType = "range"
	FilterTypeCheckbox FilterType = "checkbox"
)

// Filter is a facet category such as "BHK" or "Price". The slug is the
// stable lookup key used by seeders and query strings.
type Filter struct {
	ID        string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	Slug      string         `json:"slug" gorm:"type:varchar(191);uniqueIndex;not null"`
	Type      FilterType     `json:"type" gorm:"type:varchar(20);not null;default:select"`
	SortOrder int            `json:"sort_order" gorm:"default:0"`
	Options   []FilterOption `json:"options,omitempty" gorm:"foreignKey:FilterID;references:ID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FilterOption is one selectable value within a Filter. Value holds the raw,
// machine comparable value (numbers are stored as strings too); Label is for display.
type FilterOption struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	FilterID  string    `json:"filter_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_filter_options_filter_value"`
	Label     string    `json:"label" gorm:"not null"`
	Value     string    `json:"value" gorm:"type:varchar(191);not null;uniqueIndex:idx_filter_options_filter_value"`
	SortOrder int       `json:"sort_order" gorm:"default:0"`
	Filter    *Filter   `json:"filter,omitempty" gorm:"foreignKey:FilterID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *Filter) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Type == "" {
		f.Type = FilterTypeSelect
	}
	return nil
}

func (o *FilterOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

func (Filter) TableName() string {
	return "filters"
}

func (FilterOption) TableName() string {
	return "filter_options"
}

// FilterOptionCount is a FilterOption annotated with the number of tagged properties.
type FilterOptionCount struct {
	FilterOption
	Count int64 `json:"count"`
}

// FilterWithCounts is a Filter whose options carry property counts, used by facet UIs.
type FilterWithCounts struct {
	Filter
	Options []FilterOptionCount `json:"options"`
}
