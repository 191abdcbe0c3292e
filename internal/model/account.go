package model

import "time"

// AccountType classifies an account relationship.
type AccountType string

const (
	AccountTypeProspect AccountType = "Prospect"
	AccountTypeCustomer AccountType = "Customer"
	AccountTypePartner  AccountType = "Partner"
	AccountTypeOther    AccountType = "Other"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeProspect, AccountTypeCustomer, AccountTypePartner, AccountTypeOther:
		return true
	}
	return false
}

// AccountStage is the lifecycle stage of an account.
type AccountStage string

const (
	AccountStageProspecting AccountStage = "Prospecting"
	AccountStageActive      AccountStage = "Active"
	AccountStageDormant     AccountStage = "Dormant"
)

func (s AccountStage) Valid() bool {
	switch s {
	case AccountStageProspecting, AccountStageActive, AccountStageDormant:
		return true
	}
	return false
}

// Account is an organization that owns contacts and opportunities.
type Account struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"name"`
	Website   *string      `json:"website"`
	Industry  *string      `json:"industry"`
	Size      *string      `json:"size"`
	Phone     *string      `json:"phone"`
	Email     *string      `json:"email"`
	Address   *string      `json:"address"`
	Type      AccountType  `json:"type"`
	Region    *string      `json:"region"`
	Stage     AccountStage `json:"stage"`
	Owner     *string      `json:"owner"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
