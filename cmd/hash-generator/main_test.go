package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRunHashesValidPasswords(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--cost", "4", "passw0rd", "secret123"}, &stdout, &stderr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 2)
	for i, password := range []string{"passw0rd", "secret123"} {
		got, hash, ok := strings.Cut(lines[i], "\t")
		require.True(t, ok)
		assert.Equal(t, password, got)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)))
	}
	assert.Empty(t, stderr.String())
}

func TestRunRejectsWeakPasswords(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run([]string{"--cost", "4", "short", "passw0rd"}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, stderr.String(), "at least 6 characters")
	assert.Contains(t, stdout.String(), "passw0rd\t")
}

func TestRunSkipRules(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--cost", "4", "--skip-rules", "abc"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "abc\t"))
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.ErrorContains(t, run(nil, &stdout, &stderr), "usage")
	assert.ErrorContains(t, run([]string{"--cost", "2", "passw0rd"}, &stdout, &stderr), "cost must be")
}
