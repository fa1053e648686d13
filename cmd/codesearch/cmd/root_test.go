package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["index"])
	assert.True(t, names["search"])
	assert.True(t, names["version"])
}

func TestNewRootCmd_HasDebugFlag(t *testing.T) {
	cmd := NewRootCmd()
	flag := cmd.PersistentFlags().Lookup("debug")
	assert.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
