package catalog

import (
	"errors"
	"fmt"
	"strings"

	"sales_server/core/domain"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidConfig wraps schema and syntax failures of a configuration document.
var ErrInvalidConfig = errors.New("invalid business config")

const businessConfigSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "name":                {"type": "string", "maxLength": 128},
    "description":         {"type": "string"},
    "whatsapp":            {"type": "string", "maxLength": 32},
    "phone":               {"type": "string", "maxLength": 32},
    "enable_lead_capture": {"type": "boolean"},
    "products": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name":        {"type": "string"},
          "description": {"type": "string"},
          "price":       {"type": ["number", "null"], "minimum": 0},
          "image_url":   {"type": "string"},
          "video_url":   {"type": "string"},
          "url":         {"type": "string"},
          "tags":        {"type": "string"}
        }
      }
    }
  }
}`

var configSchema = jsonschema.MustCompileString("business_config.json", businessConfigSchema)

// ValidateConfig checks a raw configuration document against the schema.
// An empty document is valid.
func ValidateConfig(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := configSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ParseConfig validates and decodes a configuration document. Inline
// products without a name are dropped and tagged with SourceConfig.
func ParseConfig(raw string) (*domain.BusinessConfig, error) {
	cfg := &domain.BusinessConfig{}
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}
	if err := ValidateConfig(raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	products := cfg.Products[:0]
	for _, p := range cfg.Products {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		p.Source = domain.SourceConfig
		products = append(products, p)
	}
	cfg.Products = products
	return cfg, nil
}

// ConfigFor decodes a business's configuration, falling back to the business
// name when the document does not set one. A broken document yields an
// empty configuration and the parse error.
func ConfigFor(b *domain.Business) (*domain.BusinessConfig, error) {
	cfg, err := ParseConfig(b.Config)
	if err != nil {
		cfg = &domain.BusinessConfig{}
	}
	if cfg.Name == "" {
		cfg.Name = b.Name
	}
	return cfg, err
}
