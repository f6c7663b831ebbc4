// internal/model/metadata.go
package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/liminalhq/liminal/internal/domain"
)

// Metadata payloads arrive as freeform JSON from clients. Each kind admits a
// fixed shape; unknown fields are rejected at the boundary so nothing
// structure-less reaches the core.

type ThresholdMetadata struct {
	Mood       string   `json:"mood,omitempty"`
	Witnesses  []string `json:"witnesses,omitempty"`
	Reversible bool     `json:"reversible,omitempty"`
}

type AbsenceMetadata struct {
	Mood     string `json:"mood,omitempty"`
	Duration string `json:"duration,omitempty"`
	Ongoing  bool   `json:"ongoing,omitempty"`
}

type VeilMetadata struct {
	Mood      string `json:"mood,omitempty"`
	Clarity   int    `json:"clarity,omitempty"`
	Recurring bool   `json:"recurring,omitempty"`
}

type SignalMetadata struct {
	URL     string   `json:"url,omitempty"`
	Context string   `json:"context,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

type SpaceMetadata struct {
	Font     string `json:"font,omitempty"`
	Ambience string `json:"ambience,omitempty"`
	Locked   bool   `json:"locked,omitempty"`
}

type TagMetadata struct {
	Description string `json:"description,omitempty"`
}

// ValidateMetadata checks that raw decodes into the metadata shape for kind.
// An empty payload is always valid.
func ValidateMetadata(kind Kind, raw []byte) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var target any
	switch kind {
	case KindThreshold:
		target = &ThresholdMetadata{}
	case KindAbsence:
		target = &AbsenceMetadata{}
	case KindVeil:
		target = &VeilMetadata{}
	case KindSignal:
		target = &SignalMetadata{}
	case KindSpace:
		target = &SpaceMetadata{}
	case KindTag:
		target = &TagMetadata{}
	default:
		return domain.ErrUnknownEntryKind
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidMetadata, err)
	}
	return nil
}

// NewEntry returns a zero value of the row type for kind.
func NewEntry(kind Kind) (Entry, error) {
	switch kind {
	case KindThreshold:
		return &Threshold{}, nil
	case KindAbsence:
		return &Absence{}, nil
	case KindVeil:
		return &Veil{}, nil
	case KindSignal:
		return &Signal{}, nil
	case KindSpace:
		return &Space{}, nil
	case KindTag:
		return &Tag{}, nil
	default:
		return nil, domain.ErrUnknownEntryKind
	}
}
