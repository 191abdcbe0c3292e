package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullString(t *testing.T) {
	assert.Nil(t, NullString(""))
	assert.Nil(t, NullString("   "))
	v := NullString("  Acme ")
	if assert.NotNil(t, v) {
		assert.Equal(t, "Acme", *v)
	}
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "", Deref(nil))
	s := "x"
	assert.Equal(t, "x", Deref(&s))
}

func TestLeadStatus_Valid(t *testing.T) {
	for _, s := range []LeadStatus{LeadStatusNew, LeadStatusWorking, LeadStatusNurturing, LeadStatusQualified, LeadStatusDisqualified} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, LeadStatus("Converted").Valid())
	assert.False(t, LeadStatus("new").Valid())
}

func TestLead_FullName(t *testing.T) {
	l := &Lead{FirstName: "Jane", LastName: NullString("Doe")}
	assert.Equal(t, "Jane Doe", l.FullName())

	l.LastName = nil
	assert.Equal(t, "Jane", l.FullName())
}

func TestLead_IsConverted(t *testing.T) {
	l := &Lead{}
	assert.False(t, l.IsConverted())
	now := time.Now()
	l.ConvertedAt = &now
	assert.True(t, l.IsConverted())
}

func TestContact_FullName(t *testing.T) {
	c := &Contact{FirstName: "Jane", LastName: NullString("Doe")}
	assert.Equal(t, "Jane Doe", c.FullName())
}

func TestOpportunity_AmountOrZero(t *testing.T) {
	o := &Opportunity{}
	assert.Equal(t, 0.0, o.AmountOrZero())
	amt := 1250.5
	o.Amount = &amt
	assert.Equal(t, 1250.5, o.AmountOrZero())
}

func TestPipeline_StageNames(t *testing.T) {
	p := &Pipeline{Stages: []Stage{{Order: 1, Name: "A"}, {Order: 2, Name: "B"}}}
	assert.Equal(t, []string{"A", "B"}, p.StageNames())
}

func TestEntityType_Valid(t *testing.T) {
	assert.True(t, EntityLead.Valid())
	assert.True(t, EntityOpportunity.Valid())
	assert.False(t, EntityType("deal").Valid())
}
