package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelForIndex(t *testing.T) {
	cases := map[int]string{
		0:   "A",
		1:   "B",
		25:  "Z",
		26:  "AA",
		27:  "AB",
		51:  "AZ",
		52:  "BA",
		701: "ZZ",
		702: "AAA",
		-1:  "",
	}
	for i, want := range cases {
		assert.Equal(t, want, LabelForIndex(i), "index %d", i)
	}
}

func TestLabelForIndexIsInjective(t *testing.T) {
	seen := make(map[string]int)
	for i := 0; i < 2000; i++ {
		label := LabelForIndex(i)
		prev, dup := seen[label]
		require.False(t, dup, "label %q assigned to both %d and %d", label, prev, i)
		seen[label] = i
	}
}

func TestAssignLabels(t *testing.T) {
	responses := []Stage1Response{
		{Model: "openai/gpt", Response: "first"},
		{Model: "google/gemini", Response: "second"},
		{Model: "x-ai/grok", Response: "third"},
	}
	set := AssignLabels(responses)

	require.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"A", "B", "C"}, set.Labels())
	assert.Equal(t, map[string]string{
		"A": "openai/gpt",
		"B": "google/gemini",
		"C": "x-ai/grok",
	}, set.Mapping())

	for _, r := range responses {
		label, ok := set.LabelFor(r.Model)
		require.True(t, ok)
		model, err := set.Reveal(label)
		require.NoError(t, err)
		assert.Equal(t, r.Model, model)
		assert.Equal(t, r.Response, set.Content(label))
	}
}

func TestAssignLabelsBeyondTwentySix(t *testing.T) {
	responses := make([]Stage1Response, 30)
	for i := range responses {
		responses[i] = Stage1Response{Model: fmt.Sprintf("model/%02d", i), Response: "r"}
	}
	set := AssignLabels(responses)

	labels := set.Labels()
	require.Len(t, labels, 30)
	assert.Equal(t, "Z", labels[25])
	assert.Equal(t, "AA", labels[26])
	assert.Equal(t, "AD", labels[29])

	model, err := set.Reveal("AD")
	require.NoError(t, err)
	assert.Equal(t, "model/29", model)
}

func TestRevealUnknownLabel(t *testing.T) {
	set := AssignLabels([]Stage1Response{{Model: "m1", Response: "x"}})

	_, err := set.Reveal("B")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	_, err = set.Reveal("")
	assert.ErrorIs(t, err, ErrUnknownLabel)

	model, err := set.Reveal(" a ")
	require.NoError(t, err)
	assert.Equal(t, "m1", model)
}

func TestAssignLabelsEmpty(t *testing.T) {
	set := AssignLabels(nil)
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.Labels())
	assert.NotNil(t, set.Mapping())
}

func TestAnonymizedSetCopies(t *testing.T) {
	set := AssignLabels([]Stage1Response{{Model: "m1", Response: "x"}})

	labels := set.Labels()
	labels[0] = "Z"
	mapping := set.Mapping()
	mapping["A"] = "tampered"

	assert.Equal(t, []string{"A"}, set.Labels())
	model, err := set.Reveal("A")
	require.NoError(t, err)
	assert.Equal(t, "m1", model)
}

func TestKnownKeepsRoundLabels(t *testing.T) {
	set := AssignLabels([]Stage1Response{{Model: "m/one", Response: "x"}, {Model: "m/two", Response: "y"}})

	assert.Equal(t, []string{"B", "A"}, set.Known([]string{"I", "B", "OK", "A", "C"}))
	assert.Equal(t, []string{}, set.Known(nil))
}
