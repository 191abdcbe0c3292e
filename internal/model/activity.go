package model

import "time"

// EntityType names the kind of record an activity, task or note links to.
type EntityType string

const (
	EntityLead        EntityType = "lead"
	EntityAccount     EntityType = "account"
	EntityContact     EntityType = "contact"
	EntityOpportunity EntityType = "opportunity"
	EntityProject     EntityType = "project"
)

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	switch e {
	case EntityLead, EntityAccount, EntityContact, EntityOpportunity, EntityProject:
		return true
	}
	return false
}

// ActivityType tags an audit log entry.
type ActivityType string

const (
	ActivityEmail        ActivityType = "email"
	ActivityCall         ActivityType = "call"
	ActivityMeeting      ActivityType = "meeting"
	ActivityTask         ActivityType = "task"
	ActivityNote         ActivityType = "note"
	ActivityStageChange  ActivityType = "stage_change"
	ActivityStatusChange ActivityType = "status_change"
	ActivityCreated      ActivityType = "created"
	ActivityUpdated      ActivityType = "updated"
	ActivityConverted    ActivityType = "converted"
)

// Activity is an audit log entry attached to a record.
type Activity struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        ActivityType   `json:"type"`
	Description *string        `json:"description"`
	LinkedType  EntityType     `json:"linked_type"`
	LinkedID    string         `json:"linked_id"`
	Metadata    map[string]any `json:"metadata"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	Owner       *string        `json:"owner"`
	CreatedAt   time.Time      `json:"created_at"`
}
