package template

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate_SimplePath(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{"name": "Ann"},
	}

	assert.Equal(t, "Hello Ann", Interpolate("Hello {{user.name}}", data))
	assert.Equal(t, "Hello Ann", Interpolate("Hello {{ user.name }}", data))
}

func TestInterpolate_MissingPathKeepsToken(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{"name": "Ann"},
	}

	assert.Equal(t, "{{user.missing}}", Interpolate("{{user.missing}}", data))
	assert.Equal(t, "Hi {{user.name.first}}", Interpolate("Hi {{user.name.first}}", data))
	assert.Equal(t, "{{ }}", Interpolate("{{ }}", data))
}

func TestInterpolate_EmptyValueKeepsToken(t *testing.T) {
	data := map[string]any{
		"lead": map[string]any{"email": "", "phone": nil},
	}

	assert.Equal(t, "to: {{lead.email}}", Interpolate("to: {{lead.email}}", data))
	assert.Equal(t, "call {{lead.phone}}", Interpolate("call {{lead.phone}}", data))
}

func TestInterpolate_FalsyValueKeepsToken(t *testing.T) {
	data := map[string]any{
		"lead": map[string]any{
			"score":   0,
			"vip":     false,
			"balance": 0.0,
			"rank":    int64(0),
			"ratio":   math.NaN(),
		},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{name: "zero int", template: "score={{lead.score}}", expected: "score={{lead.score}}"},
		{name: "false", template: "vip={{lead.vip}}", expected: "vip={{lead.vip}}"},
		{name: "zero float", template: "{{lead.balance}}", expected: "{{lead.balance}}"},
		{name: "zero int64", template: "{{lead.rank}}", expected: "{{lead.rank}}"},
		{name: "NaN", template: "{{lead.ratio}}", expected: "{{lead.ratio}}"},
		{
			name:     "mixed tokens",
			template: "score={{lead.score}} vip={{lead.vip}}",
			expected: "score={{lead.score}} vip={{lead.vip}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InterpolateString(tt.template, data))
		})
	}
}

func TestInterpolate_NonStringPassesThrough(t *testing.T) {
	data := map[string]any{"a": 1}

	assert.Equal(t, 42, Interpolate(42, data))
	assert.Nil(t, Interpolate(nil, data))

	list := []any{"{{a}}"}
	assert.Equal(t, list, Interpolate(list, data))
}

func TestInterpolate_ScalarAndCompositeValues(t *testing.T) {
	data := map[string]any{
		"deal": map[string]any{
			"amount": 1500.0,
			"won":    true,
			"count":  3,
			"tags":   []any{"vip", "renewal"},
			"owner":  map[string]any{"id": "u-1"},
		},
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{name: "float without decimals", template: "{{deal.amount}}", expected: "1500"},
		{name: "boolean", template: "won={{deal.won}}", expected: "won=true"},
		{name: "integer", template: "{{deal.count}} items", expected: "3 items"},
		{name: "slice as json", template: "{{deal.tags}}", expected: `["vip","renewal"]`},
		{name: "map as json", template: "{{deal.owner}}", expected: `{"id":"u-1"}`},
		{name: "slice index", template: "{{deal.tags.1}}", expected: "renewal"},
		{name: "multiple tokens", template: "{{deal.tags.0}}/{{deal.owner.id}}", expected: "vip/u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InterpolateString(tt.template, data))
		})
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{
		"lead": map[string]any{
			"score":  80,
			"labels": map[string]string{"source": "web"},
			"notes":  []any{"first", map[string]any{"text": "second"}},
			"empty":  nil,
		},
	}

	value, found := Lookup(data, "lead.score")
	assert.True(t, found)
	assert.Equal(t, 80, value)

	value, found = Lookup(data, "lead.labels.source")
	assert.True(t, found)
	assert.Equal(t, "web", value)

	value, found = Lookup(data, "lead.notes.1.text")
	assert.True(t, found)
	assert.Equal(t, "second", value)

	value, found = Lookup(data, "lead.empty")
	assert.True(t, found)
	assert.Nil(t, value)

	_, found = Lookup(data, "lead.notes.5")
	assert.False(t, found)

	_, found = Lookup(data, "lead.score.value")
	assert.False(t, found)

	_, found = Lookup(data, "")
	assert.False(t, found)

	assert.Nil(t, Value(data, "contact.email"))
}
