package main

import (
	"bytes"
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/drugbox/internal/auth"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestRun_MintsAdminToken(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-sub", "ops", "-ttl", "10m"}, &out, io.Discard, env(map[string]string{
		"DRUGBOX_ADMIN_JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	claims, err := auth.NewSigner("s3cret", "drugbox").ParseAdmin(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestRun_FlagOverridesEnv(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-secret", "flag-secret", "-issuer", "clinic"}, &out, io.Discard, env(map[string]string{
		"DRUGBOX_ADMIN_JWT_SECRET": "env-secret",
	}))
	require.NoError(t, err)

	_, err = auth.NewSigner("flag-secret", "clinic").ParseAdmin(strings.TrimSpace(out.String()))
	assert.NoError(t, err)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(nil, &out, io.Discard, env(nil)))
	assert.Error(t, run([]string{"-secret", "x", "-ttl", "0s"}, &out, io.Discard, env(nil)))
	assert.Error(t, run([]string{"-bogus"}, &out, io.Discard, env(nil)))
	assert.Empty(t, out.String())
}

func TestRun_HelpPrintsUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run([]string{"-h"}, &out, &errOut, env(nil))
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "-secret")
	assert.Contains(t, errOut.String(), "DRUGBOX_ADMIN_JWT_SECRET")
}
