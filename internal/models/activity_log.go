package models

import "time"

// ActivityLog is one audited HTTP request.
type ActivityLog struct {
	ID           string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Method       string    `json:"method" gorm:"type:varchar(10);index"`
	Path         string    `json:"path" gorm:"type:varchar(255);index"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address" gorm:"type:varchar(64)"`
	RequestBody  string    `json:"request_body,omitempty" gorm:"type:text"`
	QueryParams  string    `json:"query_params,omitempty" gorm:"type:text"`
	StatusCode   int       `json:"status_code"`
	ResponseTime int64     `json:"response_time"` // milliseconds
	UserID       string    `json:"user_id,omitempty" gorm:"type:varchar(36);index"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time `json:"updated_at"`
}
