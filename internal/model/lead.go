// Package model defines the CRM records persisted by the store.
package model

import (
	"strings"
	"time"
)

// LeadStatus is the qualification state of a lead.
type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "New"
	LeadStatusWorking      LeadStatus = "Working"
	LeadStatusNurturing    LeadStatus = "Nurturing"
	LeadStatusQualified    LeadStatus = "Qualified"
	LeadStatusDisqualified LeadStatus = "Disqualified"
)

// Valid reports whether s is one of the known lead statuses.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusWorking, LeadStatusNurturing, LeadStatusQualified, LeadStatusDisqualified:
		return true
	}
	return false
}

// Lead is a prospect not yet linked to an account or contact.
type Lead struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	FirstName   string     `json:"first_name"`
	LastName    *string    `json:"last_name"`
	CompanyName *string    `json:"company_name"`
	Email       *string    `json:"email"`
	Phone       *string    `json:"phone"`
	Title       *string    `json:"title"`
	Source      *string    `json:"source"`
	Status      LeadStatus `json:"status"`
	Owner       *string    `json:"owner"`
	Industry    *string    `json:"industry"`
	CompanySize *string    `json:"company_size"`
	Region      *string    `json:"region"`
	LinkedInURL *string    `json:"linkedin_url"`
	Notes       *string    `json:"notes"`

	// Written once, together, by lead conversion.
	ConvertedAccountID     *string    `json:"converted_account_id"`
	ConvertedContactID     *string    `json:"converted_contact_id"`
	ConvertedOpportunityID *string    `json:"converted_opportunity_id"`
	ConvertedAt            *time.Time `json:"converted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (l *Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + Deref(l.LastName))
}

// IsConverted reports whether the lead has been through conversion.
func (l *Lead) IsConverted() bool {
	return l.ConvertedAt != nil
}

// Conversion holds the back-references written to a lead when it converts.
type Conversion struct {
	AccountID     string
	ContactID     string
	OpportunityID *string
	ConvertedAt   time.Time
}
