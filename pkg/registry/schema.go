package registry

// ContentPack is the full set of chatbot content: organisation profiles,
// response templates, quick replies and keyword rules.
type ContentPack struct {
	Version       string              `json:"version" yaml:"version"`
	Organisations []Organisation      `json:"organisations,omitempty" yaml:"organisations,omitempty"`
	Templates     []TemplateEntry     `json:"templates,omitempty" yaml:"templates,omitempty"`
	QuickReplies  []QuickReplyEntry   `json:"quick_replies,omitempty" yaml:"quick_replies,omitempty"`
	Exclusions    map[string][]string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
	Keywords      []KeywordRule       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

type Organisation struct {
	ID              int64                  `json:"id" yaml:"id"`
	Name            string                 `json:"name" yaml:"name"`
	Industry        string                 `json:"industry,omitempty" yaml:"industry,omitempty"`
	PrimaryLanguage string                 `json:"primary_language,omitempty" yaml:"primary_language,omitempty"`
	WelcomeMessage  string                 `json:"welcome_message,omitempty" yaml:"welcome_message,omitempty"`
	Attributes      map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// TemplateEntry with an OrganisationID is an override for that organisation
// and ignores Industry. Without one it is the industry default.
type TemplateEntry struct {
	OrganisationID *int64 `json:"organisation_id,omitempty" yaml:"organisation_id,omitempty"`
	Industry       string `json:"industry,omitempty" yaml:"industry,omitempty"`
	Intent         string `json:"intent" yaml:"intent"`
	Body           string `json:"body" yaml:"body"`
}

// QuickReplyEntry lists labels in display order. Intent "any" applies to every intent.
type QuickReplyEntry struct {
	OrganisationID *int64   `json:"organisation_id,omitempty" yaml:"organisation_id,omitempty"`
	Industry       string   `json:"industry" yaml:"industry"`
	Language       string   `json:"language" yaml:"language"`
	Intent         string   `json:"intent" yaml:"intent"`
	Labels         []string `json:"labels" yaml:"labels"`
}

type KeywordRule struct {
	Intent   string   `json:"intent" yaml:"intent"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// packSchema is the JSON Schema every pack file must satisfy before it is decoded.
const packSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "organisations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer", "minimum": 1},
          "name": {"type": "string", "minLength": 1},
          "industry": {"type": "string"},
          "primary_language": {"type": "string"},
          "welcome_message": {"type": "string"},
          "attributes": {
            "type": "object",
            "additionalProperties": {"type": ["string", "number", "boolean", "null"]}
          }
        }
      }
    },
    "templates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["intent", "body"],
        "additionalProperties": false,
        "properties": {
          "organisation_id": {"type": "integer", "minimum": 1},
          "industry": {"enum": ["restaurant", "education", "retail", "default"]},
          "intent": {"type": "string", "pattern": "^[a-z_]+$"},
          "body": {"type": "string", "minLength": 1}
        },
        "anyOf": [
          {"required": ["organisation_id"]},
          {"required": ["industry"]}
        ]
      }
    },
    "quick_replies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["industry", "language", "intent", "labels"],
        "additionalProperties": false,
        "properties": {
          "organisation_id": {"type": "integer", "minimum": 1},
          "industry": {"enum": ["restaurant", "education", "retail", "default"]},
          "language": {"enum": ["en", "fr", "zh"]},
          "intent": {"type": "string", "pattern": "^[a-z_]+$"},
          "labels": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
        }
      }
    },
    "exclusions": {
      "type": "object",
      "propertyNames": {"enum": ["en", "fr", "zh"]},
      "additionalProperties": {"type": "array", "items": {"type": "string"}}
    },
    "keywords": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["intent", "keywords"],
        "additionalProperties": false,
        "properties": {
          "intent": {"type": "string", "pattern": "^[a-z_]+$"},
          "keywords": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}}
        }
      }
    }
  }
}`
