package llm

// Type is a JSON Schema primitive type name.
type Type string

const (
	TypeObject  Type = "object"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
)

// Schema is the provider-neutral subset of JSON Schema that both providers
// can express. Providers translate it into their own schema types.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Strict marks every object property as required, recursively, which is
// what strict structured-output modes expect. Property order in Required
// follows order, then any remaining keys.
func (s *Schema) Strict(order ...string) *Schema {
	if s == nil {
		return nil
	}
	if len(s.Properties) > 0 {
		if s.Type == "" {
			s.Type = TypeObject
		}
		seen := map[string]bool{}
		req := make([]string, 0, len(s.Properties))
		for _, k := range order {
			if _, ok := s.Properties[k]; ok && !seen[k] {
				req = append(req, k)
				seen[k] = true
			}
		}
		for _, k := range s.Required {
			if _, ok := s.Properties[k]; ok && !seen[k] {
				req = append(req, k)
				seen[k] = true
			}
		}
		for k := range s.Properties {
			if !seen[k] {
				req = append(req, k)
				seen[k] = true
			}
		}
		s.Required = req
		for _, p := range s.Properties {
			p.Strict()
		}
	}
	if s.Items != nil {
		s.Items.Strict()
	}
	return s
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	if s.Properties != nil {
		c.Properties = make(map[string]*Schema, len(s.Properties))
		for k, p := range s.Properties {
			c.Properties[k] = p.Clone()
		}
	}
	c.Required = append([]string(nil), s.Required...)
	c.Enum = append([]string(nil), s.Enum...)
	c.Items = s.Items.Clone()
	return &c
}
