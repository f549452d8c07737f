package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"quote", "--base", "300000", "--qty", "2", "--period", "15", "--option", "booster=50000"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "total:   ₩950,000")
}

func TestQuoteCommandRejectsMalformedOption(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"quote", "--base", "1000", "--option", "booster"})
	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected id=price")
}

func TestCatalogCommandPrintsEmbeddedCatalog(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog"})
	require.NoError(t, cmd.Execute())
	require.True(t, strings.Contains(out.String(), "naver_place"), out.String())
}
