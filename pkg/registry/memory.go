package registry

import (
	"context"
	"fmt"
	"strconv"

	apperrors "botforge/internal/common/errors"
	"botforge/internal/models"
)

type templateKey struct {
	orgID    int64
	industry string
	intent   string
}

type quickReplyKey struct {
	orgID    int64
	industry string
	language string
	intent   string
}

// MemoryStore serves a content pack from memory. It satisfies the same lookups as the SQL store.
// Later entries in the pack win over earlier ones for the same key.
type MemoryStore struct {
	profiles     map[int64]models.Profile
	templates    map[templateKey]string
	quickReplies map[quickReplyKey][]string
}

func NewMemoryStore(pack *ContentPack) *MemoryStore {
	s := &MemoryStore{
		profiles:     make(map[int64]models.Profile),
		templates:    make(map[templateKey]string),
		quickReplies: make(map[quickReplyKey][]string),
	}
	if pack == nil {
		return s
	}

	for _, org := range pack.Organisations {
		s.profiles[org.ID] = OrganisationProfile(org)
	}
	for _, t := range pack.Templates {
		key := templateKey{industry: t.Industry, intent: t.Intent}
		if t.OrganisationID != nil {
			key = templateKey{orgID: *t.OrganisationID, intent: t.Intent}
		}
		s.templates[key] = t.Body
	}
	for _, q := range pack.QuickReplies {
		key := quickReplyKey{industry: q.Industry, language: q.Language, intent: q.Intent}
		if q.OrganisationID != nil {
			key.orgID = *q.OrganisationID
		}
		s.quickReplies[key] = append([]string(nil), q.Labels...)
	}
	return s
}

// OrganisationProfile flattens an organisation into the attribute map handed to the renderer.
// Named columns win over free-form attributes with the same key.
func OrganisationProfile(org Organisation) models.Profile {
	p := make(models.Profile, len(org.Attributes)+6)
	for k, v := range org.Attributes {
		p[k] = v
	}
	p["organisation_id"] = org.ID
	p["company_id"] = strconv.FormatInt(org.ID, 10)
	p["company_name"] = org.Name
	p["industry"] = string(models.NormalizeIndustry(org.Industry))
	if org.PrimaryLanguage != "" {
		p["primary_language"] = org.PrimaryLanguage
	}
	if org.WelcomeMessage != "" {
		p["welcome_message"] = org.WelcomeMessage
	}
	return p
}

func (s *MemoryStore) GetProfile(_ context.Context, orgID int64) (models.Profile, error) {
	p, ok := s.profiles[orgID]
	if !ok {
		return nil, apperrors.NewNotFoundError(strconv.FormatInt(orgID, 10))
	}
	out := make(models.Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) OrganisationTemplate(_ context.Context, orgID int64, intent string) (string, bool, error) {
	body, ok := s.templates[templateKey{orgID: orgID, intent: intent}]
	return body, ok && body != "", nil
}

func (s *MemoryStore) IndustryTemplate(_ context.Context, industry, intent string) (string, bool, error) {
	body, ok := s.templates[templateKey{industry: industry, intent: intent}]
	return body, ok && body != "", nil
}

// QuickReplies returns the labels stored for the key. A nil orgID selects global rows.
func (s *MemoryStore) QuickReplies(_ context.Context, orgID *int64, industry, language, intent string) ([]string, error) {
	key := quickReplyKey{industry: industry, language: language, intent: intent}
	if orgID != nil {
		if *orgID == 0 {
			return nil, fmt.Errorf("organisation id 0 is reserved for global rows")
		}
		key.orgID = *orgID
	}
	return append([]string(nil), s.quickReplies[key]...), nil
}
