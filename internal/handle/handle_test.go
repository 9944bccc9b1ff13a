package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		h    string
		want bool
	}{
		{"ab_12", true},
		{"a", true},
		{"ABCDEFGHIJKLMNO", true}, // 15 chars
		{"this-is-too-long-handle", false},
		{"foo bar", false},
		{"", false},
		{"foo-bar", false},
		{"foo.bar", false},
		{"héllo", false},
		{"0123456789012345", false}, // 16 chars
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Valid(tt.h), "Valid(%q)", tt.h)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jack", Normalize("@jack"))
	assert.Equal(t, "jack", Normalize("  @jack "))
	assert.Equal(t, "jack", Normalize("jack"))
}

func TestFilter(t *testing.T) {
	in := []string{"@alice", "bob", "not a handle", "alice", "", "carol_1"}
	assert.Equal(t, []string{"alice", "bob", "carol_1"}, Filter(in))
}
