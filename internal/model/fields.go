package model

import (
	"encoding/json"
	"strings"
)

// Fields is what the appointments.comment column holds: either the versioned
// JSON document or free text written before the column was structured.
type Fields interface {
	// Flatten returns the three logical fields. Legacy text ends up in Comment.
	Flatten() StructuredFields
}

type StructuredFields struct {
	Description    string
	Comment        *string
	Considerations *string
}

type LegacyText struct {
	Text string
}

func (s StructuredFields) Flatten() StructuredFields { return s }

func (l LegacyText) Flatten() StructuredFields {
	text := l.Text
	return StructuredFields{Comment: &text}
}

const fieldsVersion = 1

type packedFields struct {
	Description    string  `json:"description"`
	Comment        *string `json:"comment"`
	Considerations *string `json:"considerations"`
	Version        int     `json:"_v"`
}

// Pack always writes the current structured encoding.
func Pack(f Fields) string {
	s := f.Flatten()
	b, _ := json.Marshal(packedFields{
		Description:    s.Description,
		Comment:        s.Comment,
		Considerations: s.Considerations,
		Version:        fieldsVersion,
	})
	return string(b)
}

func Unpack(raw *string) Fields {
	if raw == nil || *raw == "" {
		return StructuredFields{}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &obj); err != nil {
		return LegacyText{Text: *raw}
	}
	if _, ok := obj["description"]; !ok {
		return LegacyText{Text: *raw}
	}

	// keys are read one by one; a value of the wrong type is dropped
	var out StructuredFields
	if d := stringField(obj, "description"); d != nil {
		out.Description = *d
	}
	out.Comment = stringField(obj, "comment")
	out.Considerations = stringField(obj, "considerations")
	return out
}

func stringField(m map[string]json.RawMessage, key string) *string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	var s *string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil
	}
	return s
}

// Patch overlays the non-nil values on the flattened fields.
func Patch(f Fields, description, comment, considerations *string) StructuredFields {
	s := f.Flatten()
	if description != nil {
		s.Description = strings.TrimSpace(*description)
	}
	if comment != nil {
		s.Comment = comment
	}
	if considerations != nil {
		s.Considerations = considerations
	}
	return s
}

type appointmentJSON Appointment

func (a Appointment) MarshalJSON() ([]byte, error) {
	var s StructuredFields
	if a.Fields != nil {
		s = a.Fields.Flatten()
	}
	return json.Marshal(struct {
		appointmentJSON
		Description    string  `json:"description"`
		Comment        *string `json:"comment"`
		Considerations *string `json:"considerations"`
	}{
		appointmentJSON: appointmentJSON(a),
		Description:     s.Description,
		Comment:         s.Comment,
		Considerations:  s.Considerations,
	})
}
