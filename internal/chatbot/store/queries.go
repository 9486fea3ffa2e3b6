package store

const (
	queryProfile = `
		SELECT id, name, industry, primary_language, welcome_message, attributes
		FROM organisations
		WHERE id = $1`

	// Later rows win so a reseeded override replaces the earlier one.
	queryOrganisationTemplate = `
		SELECT body FROM templates
		WHERE organisation_id = $1 AND intent = $2 AND body <> ''
		ORDER BY id DESC
		LIMIT 1`

	queryIndustryTemplate = `
		SELECT body FROM templates
		WHERE organisation_id IS NULL AND industry = $1 AND intent = $2 AND body <> ''
		ORDER BY id DESC
		LIMIT 1`

	queryOrganisationQuickReplies = `
		SELECT label FROM quick_replies
		WHERE organisation_id = $1 AND industry = $2 AND language = $3 AND intent = $4
		ORDER BY display_order, id`

	queryGlobalQuickReplies = `
		SELECT label FROM quick_replies
		WHERE organisation_id IS NULL AND industry = $1 AND language = $2 AND intent = $3
		ORDER BY display_order, id`

	insertOrganisation = `
		INSERT INTO organisations (id, name, industry, primary_language, welcome_message, attributes)
		VALUES ($1, $2, $3, $4, $5, $6)`

	insertTemplate = `
		INSERT INTO templates (organisation_id, industry, intent, body)
		VALUES ($1, $2, $3, $4)`

	insertQuickReply = `
		INSERT INTO quick_replies (organisation_id, industry, language, intent, label, display_order)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

// Children first so the foreign keys never dangle mid-transaction.
var clearContent = []string{
	`DELETE FROM quick_replies`,
	`DELETE FROM templates`,
	`DELETE FROM organisations`,
}
