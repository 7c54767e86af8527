package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PropertyStatus string

const (
	PropertyAvailable PropertyStatus = "Available"
	PropertyReserved  PropertyStatus = "Reserved"
	PropertySold      PropertyStatus = "Sold"
)

// PropertyFilterOptionTable is the tagging pivot between properties and filter options.
const PropertyFilterOptionTable = "property_filter_option"

// Property is a sellable unit, optionally grouped under a Project.
type Property struct {
	ID                 string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProjectID          *string        `json:"project_id" gorm:"type:varchar(36);index"`
	PartnerID          string         `json:"partner_id" gorm:"type:varchar(36);index;not null"`
	Title              string         `json:"title" gorm:"not null"`
	Description        string         `json:"description" gorm:"type:text"`
	Price              int64          `json:"price" gorm:"not null;default:0"`
	CarpetArea         int            `json:"carpet_area"`
	BHK                string         `json:"bhk" gorm:"column:bhk;type:varchar(20)"`
	PropertyType       string         `json:"property_type" gorm:"type:varchar(50)"`
	Location           string         `json:"location" gorm:"type:varchar(255);index"`
	FloorNumber        int            `json:"floor_number"`
	TotalFloors        int            `json:"total_floors"`
	ConstructionStatus string         `json:"construction_status" gorm:"type:varchar(50)"`
	PossessionDate     string         `json:"possession_date" gorm:"type:varchar(50)"`
	FinancingOption    string         `json:"financing_option" gorm:"type:varchar(50)"`
	Status             PropertyStatus `json:"status" gorm:"type:varchar(20);default:Available"`
	Project            *Project       `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Attachments        []Attachment   `json:"attachments" gorm:"polymorphic:Owner;polymorphicValue:property"`
	FilterOptions      []FilterOption `json:"filter_options" gorm:"many2many:property_filter_option;joinForeignKey:PropertyID;joinReferences:FilterOptionID"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = PropertyAvailable
	}
	return nil
}

// AttachmentOwner identifies the kind of entity an Attachment belongs to.
type AttachmentOwner string

const (
	OwnerProperty AttachmentOwner = "property"
	OwnerProject  AttachmentOwner = "project"
	OwnerUser     AttachmentOwner = "user"
)

type AttachmentGroup string

const (
	GroupPhoto    AttachmentGroup = "photo"
	GroupKYC      AttachmentGroup = "kyc"
	GroupDocument AttachmentGroup = "document"
)

// Attachment is a stored file (photo, KYC document, brochure) linked to
// a property, project or user.
type Attachment struct {
	ID           string          `json:"id" gorm:"type:varchar(36);primaryKey"`
	OwnerType    string          `json:"owner_type" gorm:"type:varchar(20);index:idx_attachments_owner;not null"`
	OwnerID      string          `json:"owner_id" gorm:"type:varchar(36);index:idx_attachments_owner;not null"`
	Group        AttachmentGroup `json:"group" gorm:"column:group_name;type:varchar(20);not null"`
	OriginalName string          `json:"original_name"`
	ObjectName   string          `json:"-" gorm:"not null"`
	MimeType     string          `json:"mime_type"`
	Size         int64           `json:"size"`
	URL          string          `json:"url,omitempty" gorm:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
