package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordPrintsVerifiableHash(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, hashPassword(strings.NewReader("s3cret\n"), &out))

	fields := strings.Fields(out.String())
	require.NotEmpty(t, fields)
	hash := fields[len(fields)-1]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, hashPassword(strings.NewReader("\n"), &out))
}
