package main

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"
)

func TestLoglevelFlagRejectsUnknownValues(t *testing.T) {
	parser, err := kong.New(&CLI, kong.Name("winbuild"))
	require.NoError(t, err)

	_, err = parser.Parse([]string{"--loglevel", "WARN", "fetch"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "WARN")

	_, err = parser.Parse([]string{"--loglevel", "DEBUG", "fetch"})
	require.NoError(t, err)
	require.Equal(t, "DEBUG", CLI.Loglevel)
}
