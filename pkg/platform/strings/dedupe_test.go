package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{name: "trims whitespace", input: []string{"  foo  ", "bar  "}, expected: []string{"foo", "bar"}},
		{name: "removes duplicates preserving order", input: []string{"foo", "bar", "foo"}, expected: []string{"foo", "bar"}},
		{name: "removes blanks", input: []string{"foo", "", "  "}, expected: []string{"foo"}},
		{name: "preserves case", input: []string{"Foo", "foo"}, expected: []string{"Foo", "foo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"foo", "bar"}, DedupeAndTrimLower([]string{"  FOO ", "bar", "Foo", "BAR"}))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"http://a:8080", "http://b"}, SplitList("http://a:8080, http://b,,http://a:8080"))
}
