package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"botforge/internal/models"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		profile  models.Profile
		entities []models.Entity
		want     string
	}{
		{
			name:     "profile value",
			template: "We open {{business_hours}}.",
			profile:  models.Profile{"business_hours": "9–5"},
			want:     "We open 9–5.",
		},
		{
			name:     "empty profile leaves template untouched",
			template: "{{missing}}",
			profile:  models.Profile{},
			want:     "{{missing}}",
		},
		{
			name:     "nil profile leaves template untouched",
			template: "Hi {{name}}",
			want:     "Hi {{name}}",
		},
		{
			name:     "entity when profile lacks the key",
			template: "Hi {{name}}",
			profile:  models.Profile{"company_name": "Acme"},
			entities: []models.Entity{{Key: "name", Value: "Sam"}},
			want:     "Hi Sam",
		},
		{
			name:     "first matching entity wins",
			template: "Table for {{pax}}",
			profile:  models.Profile{"company_name": "Acme"},
			entities: []models.Entity{{Key: "pax", Value: "4"}, {Key: "pax", Value: "6"}},
			want:     "Table for 4",
		},
		{
			name:     "nil profile value falls through to entity",
			template: "{{time}} works",
			profile:  models.Profile{"time": nil, "industry": "restaurant"},
			entities: []models.Entity{{Key: "time", Value: "7pm"}},
			want:     "7pm works",
		},
		{
			name:     "missing everywhere is visible",
			template: "Call {{ contact_phone }} or {{contact_email}}",
			profile:  models.Profile{"contact_email": "hi@acme.test"},
			want:     "Call <contact_phone> or hi@acme.test",
		},
		{
			name:     "scalar values are stringified",
			template: "{{seats}} seats, parking: {{parking}}, rating {{rating}}",
			profile:  models.Profile{"seats": 40, "parking": true, "rating": 4.5},
			want:     "40 seats, parking: True, rating 4.5",
		},
		{
			name:     "empty template",
			template: "",
			profile:  models.Profile{"company_name": "Acme"},
			want:     NoAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, tt.profile, tt.entities))
		})
	}
}
