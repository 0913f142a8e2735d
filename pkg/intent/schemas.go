package intent

import (
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/averith/murmur/pkg/state"
)

// Per-variant schemas for the documented proposal shapes. Validation is
// deliberately permissive about extra keys; it rejects wrong types so a
// structurally alien document falls through to the next parse step.

const commerceSchema = `{
	"type": "object",
	"required": ["reply"],
	"properties": {
		"reply": {"type": "string"},
		"intent": {"type": "string", "enum": ["none", "search", "order", "history"]},
		"filters": {
			"type": "object",
			"properties": {
				"category": {"type": "string"},
				"color": {"type": "string"},
				"max_price": {"type": "string"}
			}
		},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["product_id"],
				"properties": {
					"product_id": {"type": "string"},
					"quantity": {"type": "integer"},
					"size": {"type": "string"}
				}
			}
		}
	}
}`

const fraudCheckSchema = `{
	"type": "object",
	"required": ["reply"],
	"properties": {
		"reply": {"type": "string"},
		"next_phase": {"type": "string"},
		"verified": {"type": "boolean"},
		"case_status": {"type": "string"}
	}
}`

const wellnessSchema = `{
	"type": "object",
	"required": ["reply"],
	"properties": {
		"reply": {"type": "string"},
		"mood": {"type": "string"},
		"energy": {"type": "string"},
		"goals": {"type": "string"}
	}
}`

const improvSchema = `{
	"type": "object",
	"required": ["reply"],
	"properties": {
		"reply": {"type": "string"},
		"next_phase": {"type": "string", "enum": ["intro", "playing", "summary", "ended"]},
		"player_name": {"type": "string"},
		"next_scenario": {"type": "integer"}
	}
}`

var proposalSchemas = map[state.Variant]*gojsonschema.Schema{}

func init() {
	sources := map[state.Variant]string{
		state.VariantCommerce:   commerceSchema,
		state.VariantFraudCheck: fraudCheckSchema,
		state.VariantWellness:   wellnessSchema,
		state.VariantImprov:     improvSchema,
	}

	for variant, src := range sources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			// Schemas are compile-time constants; failing here is a bug.
			panic("invalid proposal schema for " + string(variant) + ": " + err.Error())
		}
		proposalSchemas[variant] = schema
	}
}

// validateProposal checks a candidate document against the variant's
// schema. Variants without a schema (story) accept anything.
func validateProposal(variant state.Variant, candidate string) bool {
	schema, ok := proposalSchemas[variant]
	if !ok {
		return true
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(candidate))
	if err != nil {
		return false
	}
	if !result.Valid() {
		log.Debug().
			Str("variant", string(variant)).
			Int("violations", len(result.Errors())).
			Msg("Proposal failed schema validation")
		return false
	}

	return true
}
