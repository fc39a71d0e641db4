package main

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLabel is returned when a label does not belong to the round.
var ErrUnknownLabel = errors.New("unknown response label")

// AnonymizedSet maps the anonymous labels of one round to the models whose
// responses they stand for. It is built once per round and never reused.
type AnonymizedSet struct {
	labels       []string
	labelToModel map[string]string
	modelToLabel map[string]string
	contents     map[string]string
}

// AssignLabels labels responses A, B, C, ... in the order given. Past Z the
// labels continue AA, AB, ..., ZZ, AAA like spreadsheet columns.
func AssignLabels(responses []Stage1Response) *AnonymizedSet {
	set := &AnonymizedSet{
		labels:       make([]string, 0, len(responses)),
		labelToModel: make(map[string]string, len(responses)),
		modelToLabel: make(map[string]string, len(responses)),
		contents:     make(map[string]string, len(responses)),
	}
	for i, r := range responses {
		label := LabelForIndex(i)
		set.labels = append(set.labels, label)
		set.labelToModel[label] = r.Model
		set.contents[label] = r.Response
		if _, ok := set.modelToLabel[r.Model]; !ok {
			set.modelToLabel[r.Model] = label
		}
	}
	return set
}

// LabelForIndex returns the label for the zero-based index i using bijective
// base-26: 0 -> A, 25 -> Z, 26 -> AA, 701 -> ZZ, 702 -> AAA.
func LabelForIndex(i int) string {
	if i < 0 {
		return ""
	}
	var buf []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		buf = append(buf, byte('A'+(n-1)%26))
	}
	for l, r := 0, len(buf)-1; l < r; l, r = l+1, r-1 {
		buf[l], buf[r] = buf[r], buf[l]
	}
	return string(buf)
}

// Len returns the number of labelled responses.
func (s *AnonymizedSet) Len() int {
	return len(s.labels)
}

// Labels returns the labels in assignment order.
func (s *AnonymizedSet) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Reveal returns the model behind label.
func (s *AnonymizedSet) Reveal(label string) (string, error) {
	model, ok := s.labelToModel[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return model, nil
}

// Known returns the labels of parsed that belong to this set, in order.
// The result is never nil.
func (s *AnonymizedSet) Known(parsed []string) []string {
	out := make([]string, 0, len(parsed))
	for _, label := range parsed {
		if _, ok := s.labelToModel[label]; ok {
			out = append(out, label)
		}
	}
	return out
}

// LabelFor returns the label assigned to model, if any.
func (s *AnonymizedSet) LabelFor(model string) (string, bool) {
	label, ok := s.modelToLabel[model]
	return label, ok
}

// Content returns the anonymized response text for label.
func (s *AnonymizedSet) Content(label string) string {
	return s.contents[label]
}

// Mapping returns a copy of the label to model table.
func (s *AnonymizedSet) Mapping() map[string]string {
	out := make(map[string]string, len(s.labelToModel))
	for k, v := range s.labelToModel {
		out[k] = v
	}
	return out
}
