package entity

import "strings"

// Snapshot holds the subset of an entity's state requested from a Reader.
type Snapshot struct {
	Ref    Ref
	Found  bool
	values map[Attribute]any
}

func NewSnapshot(ref Ref, found bool) *Snapshot {
	return &Snapshot{
		Ref:    ref,
		Found:  found,
		values: make(map[Attribute]any),
	}
}

// Set records a present attribute value. nil values are treated as absent.
func (s *Snapshot) Set(attr Attribute, value any) {
	if value == nil {
		return
	}
	s.values[attr] = value
}

func (s *Snapshot) Get(attr Attribute) (any, bool) {
	if s == nil || !s.Found {
		return nil, false
	}
	v, ok := s.values[attr]
	return v, ok
}

func (s *Snapshot) Confidence() (float64, bool) {
	v, ok := s.Get(ATTR_CONFIDENCE)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func (s *Snapshot) DocumentType() (string, bool) {
	v, ok := s.Get(ATTR_DOCUMENT_TYPE)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	if !ok || str == "" {
		return "", false
	}
	return str, true
}

func (s *Snapshot) Status() (Status, bool) {
	v, ok := s.Get(ATTR_STATUS)
	if !ok {
		return "", false
	}
	st, ok := v.(Status)
	if !ok || st == "" {
		return "", false
	}
	return st, true
}

func (s *Snapshot) Priority() (int, bool) {
	v, ok := s.Get(ATTR_PRIORITY)
	if !ok {
		return 0, false
	}
	p, ok := v.(int)
	return p, ok
}

func (s *Snapshot) Field(name string) (any, bool) {
	return s.Get(FieldAttribute(name))
}

// FieldText returns the string value of an extracted field, unwrapping objects of the
// form {"value": "..."} produced by the extraction pipeline.
func (s *Snapshot) FieldText(name string) (string, bool) {
	v, ok := s.Field(name)
	if !ok {
		return "", false
	}
	return FieldValueText(v)
}

func FieldValueText(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case map[string]any:
		inner, ok := val["value"].(string)
		return inner, ok
	}
	return "", false
}

// HasValue reports whether an extracted field holds a non-blank value.
func HasValue(v any) bool {
	text, ok := FieldValueText(v)
	return ok && strings.TrimSpace(text) != ""
}
