package item

import (
	"time"

	"lostfound_backend/internal/common"

	"github.com/google/uuid"
)

// DateLayout is the wire format of an item's date.
const DateLayout = "2006-01-02"

// Item is a reported lost or found object.
// ClaimedBy is set exactly when Status is claimed.
type Item struct {
	common.BaseModel
	Name              string     `gorm:"type:varchar(255);not null" json:"name"`
	Category          string     `gorm:"type:varchar(100);not null" json:"category"`
	CategorySlug      string     `gorm:"type:varchar(120);not null;index" json:"category_slug"`
	Description       string     `gorm:"type:text" json:"description"`
	Location          string     `gorm:"type:varchar(255)" json:"location"`
	Date              time.Time  `gorm:"column:occurred_on;not null" json:"date"`
	ContactInfo       string     `gorm:"type:varchar(255)" json:"contact_info"`
	ImageURL          *string    `gorm:"type:text" json:"image_url,omitempty"`
	ImageKey          *string    `gorm:"type:varchar(512)" json:"-"`
	ReportedBy        uuid.UUID  `gorm:"type:char(36);not null;index" json:"reported_by"`
	Status            Status     `gorm:"type:varchar(20);not null;index" json:"status"`
	ClaimedBy         *uuid.UUID `gorm:"type:char(36);index" json:"claimed_by,omitempty"`
	ReturnedTo        *uuid.UUID `gorm:"type:char(36)" json:"returned_to,omitempty"`
	DeletedByReporter bool       `gorm:"not null;index" json:"deleted_by_reporter"`
}

// TableName specifies the table name for GORM.
func (Item) TableName() string {
	return "items"
}

// IsReporter reports whether userID reported the item.
func (i *Item) IsReporter(userID uuid.UUID) bool {
	return i.ReportedBy == userID
}

// CreateItemRequest is the multipart body of POST /items/report.
type CreateItemRequest struct {
	Name        string `form:"name" json:"name" binding:"required,max=255"`
	Category    string `form:"category" json:"category" binding:"required,max=100"`
	Description string `form:"description" json:"description" binding:"max=5000"`
	Location    string `form:"location" json:"location" binding:"max=255"`
	Date        string `form:"date" json:"date" binding:"required,datetime=2006-01-02"`
	ContactInfo string `form:"contact_info" json:"contact_info" binding:"max=255"`
	Status      string `form:"status" json:"status" binding:"required,oneof=lost found"`
}

// UpdateItemRequest carries the descriptive fields a reporter or administrator may edit.
// Status changes go through the claim workflow instead.
type UpdateItemRequest struct {
	Name        *string `form:"name" json:"name" binding:"omitempty,min=1,max=255"`
	Category    *string `form:"category" json:"category" binding:"omitempty,min=1,max=100"`
	Description *string `form:"description" json:"description" binding:"omitempty,max=5000"`
	Location    *string `form:"location" json:"location" binding:"omitempty,max=255"`
	Date        *string `form:"date" json:"date" binding:"omitempty,datetime=2006-01-02"`
	ContactInfo *string `form:"contact_info" json:"contact_info" binding:"omitempty,max=255"`
}

// ReportIssueRequest is the body of POST /items/{id}/report-issue.
type ReportIssueRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// ListFilter narrows item listings.
type ListFilter struct {
	Statuses       []Status
	CategorySlug   string
	ReporterID     *uuid.UUID
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// SearchQuery is a full-text item search.
type SearchQuery struct {
	Text         string
	Statuses     []Status
	CategorySlug string
	Page         int
	PageSize     int
}

// Stats counts items per status.
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[Status]int64 `json:"by_status"`
}
