package model

import "time"

// Opportunity types.
const (
	OpportunityTypeNewBusiness = "New Business"
	OpportunityTypeExpansion   = "Expansion"
	OpportunityTypeRenewal     = "Renewal"
)

// DefaultCurrency is used when an opportunity has no currency set.
const DefaultCurrency = "USD"

// Opportunity is a monetary item moving through a sales pipeline.
type Opportunity struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Name             string     `json:"name"`
	Amount           *float64   `json:"amount"`
	Currency         string     `json:"currency"`
	PipelineID       *string    `json:"pipeline_id"`
	Stage            string     `json:"stage"`
	Probability      int        `json:"probability"`
	ContactID        *string    `json:"contact_id"`
	PrimaryContactID *string    `json:"primary_contact_id"`
	AccountID        *string    `json:"account_id"`
	Owner            *string    `json:"owner"`
	CloseDate        *time.Time `json:"close_date"`
	Source           *string    `json:"source"`
	Type             *string    `json:"type"`
	NextStep         *string    `json:"next_step"`
	ProposalNotes    *string    `json:"proposal_notes"`
	WonAt            *time.Time `json:"won_at"`
	LostAt           *time.Time `json:"lost_at"`
	LostReason       *string    `json:"lost_reason"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// AmountOrZero returns the amount, treating a missing amount as zero.
func (o *Opportunity) AmountOrZero() float64 {
	if o.Amount == nil {
		return 0
	}
	return *o.Amount
}
