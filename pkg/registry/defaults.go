package registry

// DefaultFallbackTemplate is the terminal template for the default industry.
const DefaultFallbackTemplate = "Sorry — I’m not sure about that yet. Please contact {{contact_email}}."

// DefaultPack returns the built-in content. It carries no keyword rules so the intent
// package defaults apply unless a pack overrides them. Every call returns a fresh copy.
func DefaultPack() *ContentPack {
	return &ContentPack{
		Version:      "builtin",
		Templates:    defaultTemplates(),
		QuickReplies: defaultQuickReplies(),
		Exclusions: map[string][]string{
			"en": {"Make a booking"},
			"fr": {"Faire une réservation"},
			"zh": {"预约"},
		},
	}
}

func defaultTemplates() []TemplateEntry {
	byIndustry := []struct {
		industry  string
		templates [][2]string
	}{
		{"restaurant", [][2]string{
			{"greeting", "Hi! Welcome to {{company_name}} 😊 How can I help you today?"},
			{"business_hours", "🍽️ {{company_name}} is open from {{business_hours}} at {{location}}."},
			{"pricing", "Our pricing may vary depending on your order. For details, contact us at {{contact_email}}."},
			{"booking", "Sure! What date/time would you like to reserve, and how many pax?"},
			{"location", "{{company_name}} is located at {{location}}."},
			{"contact_support", "You can reach us at {{contact_email}} or {{contact_phone}}."},
			{"fallback", "Sorry — I’m not sure about that. You can contact us at {{contact_email}}."},
		}},
		{"education", [][2]string{
			{"greeting", "Hi! Welcome to {{company_name}} 🎓 How can I assist you today?"},
			{"business_hours", "{{company_name}} operates during {{business_hours}}. Would you like admissions help?"},
			{"pricing", "Fees vary by course or program. Please email {{contact_email}} for the latest details."},
			{"booking", "Sure — are you looking to book a consultation or enroll in a course?"},
			{"location", "{{company_name}} is located at {{location}}."},
			{"contact_support", "You can contact our team at {{contact_email}} or {{contact_phone}}."},
			{"fallback", "Sorry — I’m not sure about that. Please reach out at {{contact_email}}."},
		}},
		{"retail", [][2]string{
			{"greeting", "Hi! Welcome to {{company_name}} 🛍️ How can I help you today?"},
			{"business_hours", "{{company_name}} is open from {{business_hours}} at {{location}}."},
			{"pricing", "Prices may vary by product. For promotions or inquiries, contact us at {{contact_email}}."},
			{"booking", "Are you looking to reserve an item, check availability, or place an order?"},
			{"location", "{{company_name}} store is located at {{location}}."},
			{"contact_support", "You can reach our support team at {{contact_email}} or {{contact_phone}}."},
			{"fallback", "Sorry — I’m not sure about that. Please contact us at {{contact_email}}."},
		}},
		{"default", [][2]string{
			{"greeting", "Hi! How can I help you today?"},
			{"fallback", DefaultFallbackTemplate},
		}},
	}

	var out []TemplateEntry
	for _, ind := range byIndustry {
		for _, t := range ind.templates {
			out = append(out, TemplateEntry{Industry: ind.industry, Intent: t[0], Body: t[1]})
		}
	}
	return out
}

func defaultQuickReplies() []QuickReplyEntry {
	common := []string{"Pricing", "Business hours", "Contact support"}
	withCommon := func(extra ...string) []string {
		return append(append([]string{}, common...), extra...)
	}

	return []QuickReplyEntry{
		{Industry: "restaurant", Language: "en", Intent: "any", Labels: withCommon("Make a reservation", "Menu", "Location")},
		{Industry: "restaurant", Language: "en", Intent: "booking", Labels: []string{"Make a booking", "Business hours", "Location"}},
		{Industry: "education", Language: "en", Intent: "any", Labels: withCommon("Courses", "Admissions", "Schedule")},
		{Industry: "retail", Language: "en", Intent: "any", Labels: withCommon("FAQ", "Services")},
	}
}
