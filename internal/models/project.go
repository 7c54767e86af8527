package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VerificationStatus is the admin-controlled approval state shared by
// builder accounts and projects.
type VerificationStatus string

const (
	VerificationNone     VerificationStatus = ""
	VerificationDraft    VerificationStatus = "draft"
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type ProjectStatus string

const (
	ProjectUpcoming  ProjectStatus = "Upcoming"
	ProjectOngoing   ProjectStatus = "Ongoing"
	ProjectCompleted ProjectStatus = "Completed"
)

type Project struct {
	ID                 string             `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID             string             `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Name               string             `json:"name" gorm:"not null"`
	Description        string             `json:"description" gorm:"type:text"`
	Location           string             `json:"location"`
	ReraNumber         *string            `json:"rera_number" gorm:"type:varchar(100);uniqueIndex"`
	ProjectType        string             `json:"project_type" gorm:"type:varchar(50);default:residential"`
	Status             ProjectStatus      `json:"status" gorm:"type:varchar(20);default:Upcoming"`
	VerificationStatus VerificationStatus `json:"verification_status" gorm:"type:varchar(20);default:draft;index"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	TotalUnits         int                `json:"total_units"`
	ViewsCount         int64              `json:"views_count" gorm:"default:0"`
	Builder            *User              `json:"builder,omitempty" gorm:"foreignKey:UserID"`
	Properties         []Property         `json:"properties,omitempty" gorm:"foreignKey:ProjectID"`
	Leads              []Lead             `json:"leads,omitempty" gorm:"foreignKey:ProjectID"`
	Attachments        []Attachment       `json:"attachments,omitempty" gorm:"polymorphic:Owner;polymorphicValue:project"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProjectUpcoming
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = VerificationDraft
	}
	return nil
}

type LeadStatus string

const (
	LeadNew       LeadStatus = "New"
	LeadContacted LeadStatus = "Contacted"
)

// Lead is a buyer enquiry against a project.
type Lead struct {
	ID          string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProjectID   string     `json:"project_id" gorm:"type:varchar(36);index;not null"`
	Name        string     `json:"name" gorm:"not null"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone" gorm:"not null"`
	Message     string     `json:"message" gorm:"type:text"`
	Status      LeadStatus `json:"status" gorm:"type:varchar(20);default:New;index"`
	ContactedAt *time.Time `json:"contacted_at,omitempty"`
	Project     *Project   `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (l *Lead) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = LeadNew
	}
	return nil
}
