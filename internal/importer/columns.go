// Package importer turns Apollo-style CSV and XLSX exports into leads.
package importer

import (
	"strings"

	"github.com/sells-group/crm-cli/internal/model"
)

// Lead fields a column can map to. Fields prefixed with "_" are sentinels:
// city, state and country feed the synthesized region, website and company
// LinkedIn are read and dropped.
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldTitle           = "title"
	FieldCompanyName     = "company_name"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldLinkedInURL     = "linkedin_url"
	FieldIndustry        = "industry"
	FieldCompanySize     = "company_size"
	FieldCity            = "_city"
	FieldState           = "_state"
	FieldCountry         = "_country"
	FieldWebsite         = "_website"
	FieldCompanyLinkedIn = "_company_linkedin"
)

// DefaultFirstName is used when a row has no first name.
const DefaultFirstName = "Unknown"

// ColumnMap maps export header names to lead fields. Several headers may
// feed the same field; the first non-empty one in header order wins.
var ColumnMap = map[string]string{
	"First Name":              FieldFirstName,
	"Last Name":               FieldLastName,
	"Title":                   FieldTitle,
	"Company":                 FieldCompanyName,
	"Company Name for Emails": FieldCompanyName,
	"Email":                   FieldEmail,
	"Phone":                   FieldPhone,
	"LinkedIn Url":            FieldLinkedInURL,
	"LinkedIn URL":            FieldLinkedInURL,
	"Person Linkedin Url":     FieldLinkedInURL,
	"Industry":                FieldIndustry,
	"# Employees":             FieldCompanySize,
	"Employees":               FieldCompanySize,
	"City":                    FieldCity,
	"State":                   FieldState,
	"Country":                 FieldCountry,
	"Website":                 FieldWebsite,
	"Company Linkedin Url":    FieldCompanyLinkedIn,
}

// Plan reports which headers of a file are recognized.
type Plan struct {
	Matched []string `json:"matched"`
	Skipped []string `json:"skipped"`
}

// PlanColumns splits headers into mapped and ignored ones, keeping file order.
func PlanColumns(headers []string) Plan {
	var p Plan
	for _, h := range headers {
		if _, ok := ColumnMap[h]; ok {
			p.Matched = append(p.Matched, h)
		} else {
			p.Skipped = append(p.Skipped, h)
		}
	}
	return p
}

// MapRow converts one record into a lead using ColumnMap. Headers are read
// in order; a mapped field keeps the first non-empty value seen. Cells past
// the end of a short record count as empty.
func MapRow(headers, record []string) model.Lead {
	mapped := make(map[string]string)
	var city, state, country string

	for i, h := range headers {
		field, ok := ColumnMap[h]
		if !ok {
			continue
		}
		var val string
		if i < len(record) {
			val = strings.TrimSpace(record[i])
		}

		switch field {
		case FieldCity:
			city = val
			continue
		case FieldState:
			state = val
			continue
		case FieldCountry:
			country = val
			continue
		case FieldWebsite, FieldCompanyLinkedIn:
			continue
		}

		if mapped[field] == "" {
			mapped[field] = val
		}
	}

	firstName := mapped[FieldFirstName]
	if firstName == "" {
		firstName = DefaultFirstName
	}

	return model.Lead{
		FirstName:   firstName,
		LastName:    model.NullString(mapped[FieldLastName]),
		CompanyName: model.NullString(mapped[FieldCompanyName]),
		Email:       model.NullString(mapped[FieldEmail]),
		Phone:       model.NullString(mapped[FieldPhone]),
		Title:       model.NullString(mapped[FieldTitle]),
		Industry:    model.NullString(mapped[FieldIndustry]),
		CompanySize: model.NullString(mapped[FieldCompanySize]),
		Region:      Region(city, state, country),
		LinkedInURL: model.NullString(mapped[FieldLinkedInURL]),
	}
}

// Region joins the non-empty location parts with ", ". It returns nil when
// every part is empty.
func Region(city, state, country string) *string {
	var parts []string
	for _, p := range []string{city, state, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	region := strings.Join(parts, ", ")
	return &region
}
