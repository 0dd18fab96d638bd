package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChglogArgs(t *testing.T) {
	assert.Equal(t, []string{"--output", "CHANGELOG.md"}, chglogArgs("", "", ""))
	assert.Equal(t, []string{"--next-tag", "v1.1.0", "--output", "CHANGES.md", "v1.0.0"}, chglogArgs("CHANGES.md", "v1.1.0", "v1.0.0"))
}
