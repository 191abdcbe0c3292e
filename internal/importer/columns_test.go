package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-cli/internal/model"
)

func TestMapRow_ApolloExport(t *testing.T) {
	headers := []string{"First Name", "Last Name", "Title", "Company", "Email", "Phone", "Person Linkedin Url",
		"Industry", "# Employees", "City", "State", "Country", "Website", "Company Linkedin Url"}
	record := []string{" Jane ", "Doe", "VP Sales", "Acme", "jane@acme.com", "555-0100",
		"https://linkedin.com/in/jane", "Software", "51-200", "Austin", "TX", "United States",
		"https://acme.com", "https://linkedin.com/company/acme"}

	l := MapRow(headers, record)
	assert.Equal(t, "Jane", l.FirstName)
	assert.Equal(t, "Doe", model.Deref(l.LastName))
	assert.Equal(t, "VP Sales", model.Deref(l.Title))
	assert.Equal(t, "Acme", model.Deref(l.CompanyName))
	assert.Equal(t, "jane@acme.com", model.Deref(l.Email))
	assert.Equal(t, "555-0100", model.Deref(l.Phone))
	assert.Equal(t, "https://linkedin.com/in/jane", model.Deref(l.LinkedInURL))
	assert.Equal(t, "Software", model.Deref(l.Industry))
	assert.Equal(t, "51-200", model.Deref(l.CompanySize))
	assert.Equal(t, "Austin, TX, United States", model.Deref(l.Region))
	assert.Nil(t, l.Source)
	assert.Nil(t, l.Notes)
}

func TestMapRow_FirstNonEmptyWins(t *testing.T) {
	headers := []string{"Company", "Company Name for Emails", "LinkedIn Url", "Person Linkedin Url"}

	l := MapRow(headers, []string{"Acme Corp", "Acme", "", "https://li/jane"})
	assert.Equal(t, "Acme Corp", model.Deref(l.CompanyName))
	assert.Equal(t, "https://li/jane", model.Deref(l.LinkedInURL))

	l = MapRow(headers, []string{"  ", "Acme", "https://li/a", "https://li/b"})
	assert.Equal(t, "Acme", model.Deref(l.CompanyName))
	assert.Equal(t, "https://li/a", model.Deref(l.LinkedInURL))
}

func TestMapRow_NoNameColumns(t *testing.T) {
	l := MapRow([]string{"Email", "Favorite Color"}, []string{"x@y.com", "blue"})
	assert.Equal(t, DefaultFirstName, l.FirstName)
	assert.Equal(t, "Unknown", l.FirstName)
	assert.Nil(t, l.LastName)
	assert.Equal(t, "x@y.com", model.Deref(l.Email))
}

func TestMapRow_BlankFirstName(t *testing.T) {
	l := MapRow([]string{"First Name", "Last Name"}, []string{"", "Doe"})
	assert.Equal(t, "Unknown", l.FirstName)
	assert.Equal(t, "Doe", model.Deref(l.LastName))
}

func TestMapRow_ShortRecord(t *testing.T) {
	l := MapRow([]string{"First Name", "Last Name", "Email"}, []string{"Jane"})
	assert.Equal(t, "Jane", l.FirstName)
	assert.Nil(t, l.LastName)
	assert.Nil(t, l.Email)
}

func TestMapRow_LocationSentinelsLastWins(t *testing.T) {
	l := MapRow([]string{"City", "City"}, []string{"Austin", "Dallas"})
	assert.Equal(t, "Dallas", model.Deref(l.Region))
}

func TestMapRow_WebsiteDiscarded(t *testing.T) {
	l := MapRow([]string{"Website", "Company Linkedin Url"}, []string{"https://acme.com", "https://li/acme"})
	assert.Nil(t, l.CompanyName)
	assert.Nil(t, l.LinkedInURL)
	assert.Nil(t, l.Region)
}

func TestRegion(t *testing.T) {
	tests := []struct {
		name                 string
		city, state, country string
		want                 *string
	}{
		{"city and state", "Austin", "TX", "", model.NullString("Austin, TX")},
		{"all", "Austin", "TX", "US", model.NullString("Austin, TX, US")},
		{"country only", "", "", "Canada", model.NullString("Canada")},
		{"state and country", "", "Ontario", "Canada", model.NullString("Ontario, Canada")},
		{"none", "", "", "", nil},
		{"whitespace", " ", "\t", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Region(tt.city, tt.state, tt.country))
		})
	}
}

func TestPlanColumns(t *testing.T) {
	p := PlanColumns([]string{"First Name", "Seniority", "Email", "Departments"})
	assert.Equal(t, []string{"First Name", "Email"}, p.Matched)
	assert.Equal(t, []string{"Seniority", "Departments"}, p.Skipped)
}

func TestColumnMap_SentinelsArePrefixed(t *testing.T) {
	for header, field := range ColumnMap {
		require.NotEmpty(t, field, header)
	}
	for _, h := range []string{"City", "State", "Country", "Website", "Company Linkedin Url"} {
		assert.Equal(t, byte('_'), ColumnMap[h][0], h)
	}
}
