package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// UntitledTitle replaces a missing or blank specification title.
const UntitledTitle = "Без названия"

// MaxTimeEstimate caps a single item estimate in minutes. Larger values are
// treated as malformed replies rather than converted.
const MaxTimeEstimate = 1000000

const treeSchemaURL = "tree.schema.json"

const treeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["sections"],
  "properties": {
    "title": {"type": ["string", "null"]},
    "sections": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["title", "items"],
        "properties": {
          "title": {"type": "string", "pattern": "\\S"},
          "items": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["content"],
              "properties": {
                "content": {"type": "string", "pattern": "\\S"},
                "timeEstimate": {"type": ["number", "null"], "minimum": 0, "maximum": 1000000}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func treeValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(treeSchema))
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse tree schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(treeSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to add tree schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(treeSchemaURL)
	})
	return schema, schemaErr
}

// rawTree mirrors Tree with the loose types a backend is allowed to send.
type rawTree struct {
	Title    *string `json:"title"`
	Sections []struct {
		Title string `json:"title"`
		Items []struct {
			Content      string   `json:"content"`
			TimeEstimate *float64 `json:"timeEstimate"`
		} `json:"items"`
	} `json:"sections"`
}

// Normalize strips fence wrapping from a raw backend reply and validates it
// into a Tree. Every failure wraps ErrMalformedGeneration; nothing partial is returned.
func Normalize(raw string) (Tree, error) {
	body := StripFence(raw)
	if body == "" {
		return Tree{}, fmt.Errorf("%w: model returned an empty reply", ErrMalformedGeneration)
	}
	tree, err := decodeTree([]byte(body))
	if err != nil {
		return Tree{}, fmt.Errorf("%w: %v", ErrMalformedGeneration, err)
	}
	return tree, nil
}

// ValidateTree applies the reply rules to a caller-authored tree.
func ValidateTree(t Tree) (Tree, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return Tree{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out, err := decodeTree(data)
	if err != nil {
		return Tree{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return out, nil
}

func decodeTree(data []byte) (Tree, error) {
	sch, err := treeValidator()
	if err != nil {
		return Tree{}, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return Tree{}, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return Tree{}, fmt.Errorf("reply does not match the schema: %s", strings.TrimSpace(verr.Error()))
		}
		return Tree{}, err
	}

	var raw rawTree
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tree{}, fmt.Errorf("reply is not valid JSON: %w", err)
	}

	tree := Tree{Title: UntitledTitle, Sections: make([]Section, 0, len(raw.Sections))}
	if raw.Title != nil && strings.TrimSpace(*raw.Title) != "" {
		tree.Title = strings.TrimSpace(*raw.Title)
	}
	for _, rs := range raw.Sections {
		sec := Section{Title: strings.TrimSpace(rs.Title), Items: make([]Item, 0, len(rs.Items))}
		for _, ri := range rs.Items {
			item := Item{Content: strings.TrimSpace(ri.Content)}
			if ri.TimeEstimate != nil {
				m := int(math.Round(*ri.TimeEstimate))
				item.TimeEstimate = &m
			}
			sec.Items = append(sec.Items, item)
		}
		tree.Sections = append(tree.Sections, sec)
	}
	return tree, nil
}

// StripFence removes surrounding whitespace and a surrounding fenced-block
// wrapper such as "```json ... ```".
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "```"), "json")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
