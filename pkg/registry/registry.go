package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"botforge/internal/common/validation"
)

var ErrInvalidPack = errors.New("CONTENT_PACK_INVALID")

var (
	schemaOnce     sync.Once
	compiledSchema *validation.Schema
	schemaErr      error
)

// LoadPack reads a YAML or JSON content pack and validates it against the pack schema.
func LoadPack(path string) (*ContentPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParsePack(data, false)
	default:
		return ParsePack(data, true)
	}
}

// ParsePack validates then decodes raw pack content.
func ParsePack(data []byte, isYAML bool) (*ContentPack, error) {
	var doc interface{}
	var err error
	if isYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}

	var pack ContentPack
	if isYAML {
		err = yaml.Unmarshal(data, &pack)
	} else {
		err = json.Unmarshal(data, &pack)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	return &pack, nil
}

// Validate checks a decoded document against the pack schema.
func Validate(doc interface{}) error {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = validation.Compile(packSchema)
	})
	if schemaErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPack, schemaErr)
	}

	result, err := compiledSchema.ValidateDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPack, err)
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidPack, result.Error())
	}
	return nil
}

// Merge layers overlay on top of base. Organisations are replaced by id and
// keyword rules replace the base set when the overlay defines any.
func Merge(base, overlay *ContentPack) *ContentPack {
	out := &ContentPack{
		Version:    base.Version,
		Exclusions: map[string][]string{},
	}
	if overlay.Version != "" {
		out.Version = overlay.Version
	}

	byID := map[int64]int{}
	for _, org := range append(append([]Organisation{}, base.Organisations...), overlay.Organisations...) {
		if idx, ok := byID[org.ID]; ok {
			out.Organisations[idx] = org
			continue
		}
		byID[org.ID] = len(out.Organisations)
		out.Organisations = append(out.Organisations, org)
	}

	out.Templates = append(append([]TemplateEntry{}, base.Templates...), overlay.Templates...)
	out.QuickReplies = append(append([]QuickReplyEntry{}, base.QuickReplies...), overlay.QuickReplies...)

	for lang, labels := range base.Exclusions {
		out.Exclusions[lang] = append([]string{}, labels...)
	}
	for lang, labels := range overlay.Exclusions {
		out.Exclusions[lang] = append([]string{}, labels...)
	}

	out.Keywords = base.Keywords
	if len(overlay.Keywords) > 0 {
		out.Keywords = overlay.Keywords
	}
	return out
}
