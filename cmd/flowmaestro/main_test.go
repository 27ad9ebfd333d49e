package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbaghiro/flowmaestro/internal/api"
	"github.com/nbaghiro/flowmaestro/internal/cli"
)

func TestMainComponents(t *testing.T) {
	t.Run("client version available", func(t *testing.T) {
		assert.NotEmpty(t, api.Version)
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(api.Version)
		require.NotNil(t, root)
		assert.Equal(t, "flowmaestro", root.Use)
		assert.Equal(t, api.Version, root.Version)
	})
}
