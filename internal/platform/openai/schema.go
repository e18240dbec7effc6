package openai

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects T into a strict structured-output schema: every object closed to
// additional properties and every property required.
func SchemaFor[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	delete(m, "$schema")
	delete(m, "$id")
	strictify(m)
	return m, nil
}

func strictify(schema map[string]any) {
	if t, ok := schema["type"].(string); ok && t == "object" {
		schema["additionalProperties"] = false
		if props, ok := schema["properties"].(map[string]any); ok {
			required := make([]string, 0, len(props))
			for name := range props {
				required = append(required, name)
			}
			if len(required) > 0 {
				schema["required"] = required
			}
		}
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		for _, p := range props {
			if pm, ok := p.(map[string]any); ok {
				strictify(pm)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		strictify(items)
	}
}
