package model

import (
	"strings"
	"time"
)

// ContactStatus is the relationship state of a contact.
type ContactStatus string

const (
	ContactStatusLead     ContactStatus = "lead"
	ContactStatusProspect ContactStatus = "prospect"
	ContactStatusClient   ContactStatus = "client"
	ContactStatusInactive ContactStatus = "inactive"
	ContactStatusChurned  ContactStatus = "churned"
)

// Contact is a person, optionally linked to one account.
type Contact struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	FirstName       string        `json:"first_name"`
	LastName        *string       `json:"last_name"`
	Email           *string       `json:"email"`
	Phone           *string       `json:"phone"`
	AccountID       *string       `json:"account_id"`
	Title           *string       `json:"title"`
	Source          *string       `json:"source"`
	Status          ContactStatus `json:"status"`
	Owner           *string       `json:"owner"`
	LinkedInURL     *string       `json:"linkedin_url"`
	LastContactedAt *time.Time    `json:"last_contacted_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// FullName joins first and last name.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + Deref(c.LastName))
}
