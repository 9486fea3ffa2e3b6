package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botforge/internal/common/config"
	"botforge/internal/common/database"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/pkg/registry"
)

func int64Ptr(v int64) *int64 { return &v }

func seededSQLite(t *testing.T) *SQLStore {
	t.Helper()
	client, err := database.NewSQLite(config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	s := NewSQLStore(client, logger.NewTestLogger(t))
	ctx := context.Background()
	require.NoError(t, s.Migrate(ctx))

	pack := registry.Merge(registry.DefaultPack(), &registry.ContentPack{
		Version: "test",
		Organisations: []registry.Organisation{{
			ID:              42,
			Name:            "Maple Academy",
			Industry:        "Education",
			PrimaryLanguage: "fr",
			Attributes:      map[string]interface{}{"business_hours": "8h–17h", "seats": 30},
		}},
		Templates: []registry.TemplateEntry{
			{OrganisationID: int64Ptr(42), Intent: "pricing", Body: "First draft"},
			{OrganisationID: int64Ptr(42), Intent: "pricing", Body: "Tuition starts at {{tuition}}."},
		},
		QuickReplies: []registry.QuickReplyEntry{
			{OrganisationID: int64Ptr(42), Industry: "education", Language: "fr", Intent: "any", Labels: []string{"old"}},
			{OrganisationID: int64Ptr(42), Industry: "education", Language: "fr", Intent: "any", Labels: []string{"Tarifs", "Inscriptions", "Horaires"}},
		},
	})
	require.NoError(t, s.ReplaceContent(ctx, pack))
	return s
}

func TestSQLStore_SQLite_Profile(t *testing.T) {
	s := seededSQLite(t)
	ctx := context.Background()

	profile, err := s.GetProfile(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Maple Academy", profile["company_name"])
	assert.Equal(t, "education", profile["industry"])
	assert.Equal(t, "fr", profile["primary_language"])
	assert.Equal(t, "30", profile.String("seats"))

	_, err = s.GetProfile(ctx, 7)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeOrganisationNotFound))
}

func TestSQLStore_SQLite_Templates(t *testing.T) {
	s := seededSQLite(t)
	ctx := context.Background()

	body, ok, err := s.OrganisationTemplate(ctx, 42, "pricing")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Tuition starts at {{tuition}}.", body)

	_, ok, err = s.OrganisationTemplate(ctx, 42, "booking")
	require.NoError(t, err)
	assert.False(t, ok)

	body, ok, err = s.IndustryTemplate(ctx, "default", "fallback")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registry.DefaultFallbackTemplate, body)
}

func TestSQLStore_SQLite_QuickReplies(t *testing.T) {
	s := seededSQLite(t)
	ctx := context.Background()

	labels, err := s.QuickReplies(ctx, int64Ptr(42), "education", "fr", "any")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tarifs", "Inscriptions", "Horaires"}, labels)

	labels, err = s.QuickReplies(ctx, nil, "restaurant", "en", "booking")
	require.NoError(t, err)
	assert.Equal(t, []string{"Make a booking", "Business hours", "Location"}, labels)

	labels, err = s.QuickReplies(ctx, nil, "default", "en", "any")
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(database.NewSQLClient(db, database.DriverPostgres), logger.NewTestLogger(t)), mock
}

func TestSQLStore_Postgres(t *testing.T) {
	tests := []struct {
		name string
		mock func(mock sqlmock.Sqlmock)
		run  func(t *testing.T, s *SQLStore)
	}{
		{
			name: "profile with malformed attributes still resolves",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM organisations\s+WHERE id = \$1`).
					WithArgs(int64(5)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "industry", "primary_language", "welcome_message", "attributes"}).
						AddRow(int64(5), "Corner Shop", "retail", "", "", "{not json"))
			},
			run: func(t *testing.T, s *SQLStore) {
				profile, err := s.GetProfile(context.Background(), 5)
				require.NoError(t, err)
				assert.Equal(t, "retail", profile["industry"])
				assert.NotContains(t, profile, "primary_language")
			},
		},
		{
			name: "profile query failure is a store error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM organisations`).WillReturnError(errors.New("connection reset"))
			},
			run: func(t *testing.T, s *SQLStore) {
				_, err := s.GetProfile(context.Background(), 5)
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreQueryFailed))
			},
		},
		{
			name: "global quick replies keep display order",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`organisation_id IS NULL AND industry = \$1 AND language = \$2 AND intent = \$3`).
					WithArgs("retail", "en", "any").
					WillReturnRows(sqlmock.NewRows([]string{"label"}).AddRow("Pricing").AddRow("FAQ"))
			},
			run: func(t *testing.T, s *SQLStore) {
				labels, err := s.QuickReplies(context.Background(), nil, "retail", "en", "any")
				require.NoError(t, err)
				assert.Equal(t, []string{"Pricing", "FAQ"}, labels)
			},
		},
		{
			name: "replace content rolls back on insert failure",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM quick_replies`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(`DELETE FROM templates`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(`DELETE FROM organisations`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(`INSERT INTO templates`).WillReturnError(errors.New("disk full"))
				mock.ExpectRollback()
			},
			run: func(t *testing.T, s *SQLStore) {
				err := s.ReplaceContent(context.Background(), &registry.ContentPack{
					Version:   "1",
					Templates: []registry.TemplateEntry{{Industry: "default", Intent: "fallback", Body: "x"}},
				})
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreQueryFailed))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStore(t)
			tt.mock(mock)
			tt.run(t, s)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
