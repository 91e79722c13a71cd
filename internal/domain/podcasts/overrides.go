package podcasts

import "strings"

// OverrideField names a content field that can be pinned against RSS sync.
type OverrideField string

const (
	OverrideTitle       OverrideField = "title"
	OverrideDescription OverrideField = "description"
	OverrideCoverImage  OverrideField = "cover_image"
	OverrideCategory    OverrideField = "category"
	OverrideLanguage    OverrideField = "language"
	OverrideCountry     OverrideField = "country"
)

// OverrideFields lists every pinnable field in a stable order.
var OverrideFields = []OverrideField{
	OverrideTitle,
	OverrideDescription,
	OverrideCoverImage,
	OverrideCategory,
	OverrideLanguage,
	OverrideCountry,
}

func ParseOverrideField(s string) (OverrideField, bool) {
	f := OverrideField(strings.TrimSpace(s))
	for _, known := range OverrideFields {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// ManualOverrides is stored as a JSON object on the podcast row.
type ManualOverrides struct {
	Title       bool `json:"title"`
	Description bool `json:"description"`
	CoverImage  bool `json:"cover_image"`
	Category    bool `json:"category"`
	Language    bool `json:"language"`
	Country     bool `json:"country"`
}

func (o ManualOverrides) Get(f OverrideField) bool {
	switch f {
	case OverrideTitle:
		return o.Title
	case OverrideDescription:
		return o.Description
	case OverrideCoverImage:
		return o.CoverImage
	case OverrideCategory:
		return o.Category
	case OverrideLanguage:
		return o.Language
	case OverrideCountry:
		return o.Country
	}
	return false
}

// With returns a copy with f set to v; every other flag is untouched.
func (o ManualOverrides) With(f OverrideField, v bool) ManualOverrides {
	switch f {
	case OverrideTitle:
		o.Title = v
	case OverrideDescription:
		o.Description = v
	case OverrideCoverImage:
		o.CoverImage = v
	case OverrideCategory:
		o.Category = v
	case OverrideLanguage:
		o.Language = v
	case OverrideCountry:
		o.Country = v
	}
	return o
}

// Any reports whether at least one field is pinned.
func (o ManualOverrides) Any() bool {
	return o != ManualOverrides{}
}

func (o ManualOverrides) Pinned() []OverrideField {
	out := make([]OverrideField, 0, len(OverrideFields))
	for _, f := range OverrideFields {
		if o.Get(f) {
			out = append(out, f)
		}
	}
	return out
}
