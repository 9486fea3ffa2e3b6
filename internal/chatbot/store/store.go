// Package store reads organisation profiles, response templates and quick replies from SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"botforge/internal/common/database"
	apperrors "botforge/internal/common/errors"
	"botforge/internal/common/logger"
	"botforge/internal/models"
	"botforge/pkg/registry"
)

// SQLStore serves content lookups from postgres or sqlite.
type SQLStore struct {
	db     *database.SQLClient
	logger logger.Logger
}

func NewSQLStore(db *database.SQLClient, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "content-store", "driver": db.Driver}),
	}
}

// Migrate creates the content tables when they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaFor(s.db.Driver) {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return apperrors.NewStoreQueryFailedError("migrate", err)
		}
	}
	return nil
}

func (s *SQLStore) GetProfile(ctx context.Context, orgID int64) (models.Profile, error) {
	var (
		org        registry.Organisation
		attributes string
	)
	err := s.db.QueryRow(ctx, queryProfile, orgID).Scan(
		&org.ID, &org.Name, &org.Industry, &org.PrimaryLanguage, &org.WelcomeMessage, &attributes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(strconv.FormatInt(orgID, 10))
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("get_profile", err)
	}

	if attributes != "" {
		if err := json.Unmarshal([]byte(attributes), &org.Attributes); err != nil {
			s.logger.Warn("ignoring malformed organisation attributes", map[string]interface{}{
				"organisationId": orgID,
				"error":          err,
			})
		}
	}

	return registry.OrganisationProfile(org), nil
}

func (s *SQLStore) OrganisationTemplate(ctx context.Context, orgID int64, intent string) (string, bool, error) {
	return s.template(ctx, "organisation_template", queryOrganisationTemplate, orgID, intent)
}

func (s *SQLStore) IndustryTemplate(ctx context.Context, industry, intent string) (string, bool, error) {
	return s.template(ctx, "industry_template", queryIndustryTemplate, industry, intent)
}

func (s *SQLStore) template(ctx context.Context, op, query string, args ...interface{}) (string, bool, error) {
	var body string
	err := s.db.QueryRow(ctx, query, args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.NewStoreQueryFailedError(op, err)
	}
	return body, true, nil
}

// QuickReplies returns labels in display order. A nil orgID selects global rows.
func (s *SQLStore) QuickReplies(ctx context.Context, orgID *int64, industry, language, intent string) ([]string, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if orgID != nil {
		rows, err = s.db.Query(ctx, queryOrganisationQuickReplies, *orgID, industry, language, intent)
	} else {
		rows, err = s.db.Query(ctx, queryGlobalQuickReplies, industry, language, intent)
	}
	if err != nil {
		return nil, apperrors.NewStoreQueryFailedError("quick_replies", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, apperrors.NewStoreQueryFailedError("quick_replies", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreQueryFailedError("quick_replies", err)
	}
	return labels, nil
}

// ReplaceContent swaps the stored content for pack in one transaction.
func (s *SQLStore) ReplaceContent(ctx context.Context, pack *registry.ContentPack) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range clearContent {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		for _, org := range pack.Organisations {
			attrs, err := json.Marshal(nonNilAttributes(org.Attributes))
			if err != nil {
				return fmt.Errorf("organisation %d attributes: %w", org.ID, err)
			}
			if _, err := tx.ExecContext(ctx, s.db.Rebind(insertOrganisation),
				org.ID, org.Name, string(models.NormalizeIndustry(org.Industry)),
				org.PrimaryLanguage, org.WelcomeMessage, string(attrs),
			); err != nil {
				return fmt.Errorf("insert organisation %d: %w", org.ID, err)
			}
		}

		for _, t := range pack.Templates {
			if _, err := tx.ExecContext(ctx, s.db.Rebind(insertTemplate),
				nullableID(t.OrganisationID), t.Industry, t.Intent, t.Body,
			); err != nil {
				return fmt.Errorf("insert template %s/%s: %w", t.Industry, t.Intent, err)
			}
		}

		for _, q := range latestQuickReplies(pack.QuickReplies) {
			for i, label := range q.Labels {
				if _, err := tx.ExecContext(ctx, s.db.Rebind(insertQuickReply),
					nullableID(q.OrganisationID), q.Industry, q.Language, q.Intent, label, i,
				); err != nil {
					return fmt.Errorf("insert quick reply %q: %w", label, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStoreQueryFailedError("replace_content", err)
	}

	s.logger.Info("content replaced", map[string]interface{}{
		"version":       pack.Version,
		"organisations": len(pack.Organisations),
		"templates":     len(pack.Templates),
		"quickReplies":  len(pack.QuickReplies),
	})
	return nil
}

// latestQuickReplies keeps one entry per key, the last one in pack order, at its first position.
func latestQuickReplies(entries []registry.QuickReplyEntry) []registry.QuickReplyEntry {
	type key struct {
		org      int64
		industry string
		language string
		intent   string
	}
	index := make(map[key]int, len(entries))
	out := make([]registry.QuickReplyEntry, 0, len(entries))
	for _, e := range entries {
		k := key{industry: e.Industry, language: e.Language, intent: e.Intent}
		if e.OrganisationID != nil {
			k.org = *e.OrganisationID
		}
		if i, ok := index[k]; ok {
			out[i] = e
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nonNilAttributes(attrs map[string]interface{}) map[string]interface{} {
	if attrs == nil {
		return map[string]interface{}{}
	}
	return attrs
}
