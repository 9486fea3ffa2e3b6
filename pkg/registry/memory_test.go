package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "botforge/internal/common/errors"
)

func newSampleStore(t *testing.T) *MemoryStore {
	t.Helper()
	overlay, err := ParsePack([]byte(samplePack), true)
	require.NoError(t, err)
	return NewMemoryStore(Merge(DefaultPack(), overlay))
}

func TestMemoryStore_GetProfile(t *testing.T) {
	store := newSampleStore(t)
	ctx := context.Background()

	profile, err := store.GetProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Bistro", profile["company_name"])
	assert.Equal(t, "7", profile["company_id"])
	assert.Equal(t, "restaurant", profile["industry"])
	assert.Equal(t, "10am–10pm", profile["business_hours"])

	profile["company_name"] = "mutated"
	again, err := store.GetProfile(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Harbour Bistro", again["company_name"])

	_, err = store.GetProfile(ctx, 99)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeOrganisationNotFound))
}

func TestMemoryStore_Templates(t *testing.T) {
	store := newSampleStore(t)
	ctx := context.Background()

	body, ok, err := store.OrganisationTemplate(ctx, 7, "business_hours")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, body, "walk-ins")

	_, ok, err = store.OrganisationTemplate(ctx, 7, "pricing")
	require.NoError(t, err)
	assert.False(t, ok)

	body, ok, err = store.IndustryTemplate(ctx, "default", "fallback")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, DefaultFallbackTemplate, body)
}

func TestMemoryStore_QuickReplies(t *testing.T) {
	store := newSampleStore(t)
	ctx := context.Background()
	org := int64(7)

	labels, err := store.QuickReplies(ctx, &org, "restaurant", "fr", "any")
	require.NoError(t, err)
	assert.Equal(t, []string{"Menu", "Faire une réservation"}, labels)

	labels, err = store.QuickReplies(ctx, nil, "education", "en", "any")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pricing", "Business hours", "Contact support", "Courses", "Admissions", "Schedule"}, labels)

	labels, err = store.QuickReplies(ctx, nil, "default", "zh", "any")
	require.NoError(t, err)
	assert.Empty(t, labels)
}
