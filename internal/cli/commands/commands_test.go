package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInspectCommand(t *testing.T) {
	cmd := NewInspectCommand()

	assert.Equal(t, "inspect <rom>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("filter"), "flag %q should exist", "filter")
}

func TestNewConfigCommand(t *testing.T) {
	cmd := NewConfigCommand()

	assert.Equal(t, "config", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Long, "Long should not be empty")
}
