package middleware

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBasicAuth(t *testing.T) {
	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("owner@studio.example:hunter22"))

	email, password, ok := parseBasicAuth(header)
	assert.True(t, ok)
	assert.Equal(t, "owner@studio.example", email)
	assert.Equal(t, "hunter22", password)
}

func TestParseBasicAuth_Rejects(t *testing.T) {
	cases := []string{
		"",
		"Bearer token",
		"Basic not-base64!!",
		"Basic " + base64.StdEncoding.EncodeToString([]byte("no-colon")),
	}
	for _, header := range cases {
		_, _, ok := parseBasicAuth(header)
		assert.False(t, ok, "header %q", header)
	}
}

func TestParseBasicAuth_PasswordMayContainColons(t *testing.T) {
	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("owner@studio.example:pa:ss:word"))

	email, password, ok := parseBasicAuth(header)
	assert.True(t, ok)
	assert.Equal(t, "owner@studio.example", email)
	assert.Equal(t, "pa:ss:word", password)
}
