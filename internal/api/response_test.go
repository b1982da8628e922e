package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studysync/studysync-cli/internal/output"
)

func TestResponseErr(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		header  http.Header
		code    string
		message string
	}{
		{400, `{"message":"title is required"}`, nil, output.CodeUsage, "title is required"},
		{401, `{}`, nil, output.CodeAuth, "Request failed (HTTP 401)"},
		{403, `{"error":"admins only"}`, nil, output.CodeForbidden, "admins only"},
		{404, `{"message":"group not found"}`, nil, output.CodeNotFound, "group not found"},
		{409, `{"message":"already a member"}`, nil, output.CodeConflict, "already a member"},
		{422, `not json`, nil, output.CodeAPI, "Request failed (HTTP 422)"},
		{429, ``, http.Header{"Retry-After": {"12"}}, output.CodeRateLimit, "Rate limited"},
		{502, `{"error":{"detail":"x"}}`, nil, output.CodeAPI, "Request failed (HTTP 502)"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			r := &Response{StatusCode: tt.status, Body: []byte(tt.body), Header: tt.header}
			if r.Header == nil {
				r.Header = http.Header{}
			}
			err := r.Err()
			require.Error(t, err)
			e := output.AsError(err)
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.message, e.Message)
		})
	}
}

func TestResponseErrRetryAfterHint(t *testing.T) {
	r := &Response{StatusCode: 429, Header: http.Header{"Retry-After": {"12"}}}
	e := output.AsError(r.Err())
	assert.Equal(t, "Try again in 12 seconds", e.Hint)
}

func TestResponseErrServerErrorsRetryable(t *testing.T) {
	r := &Response{StatusCode: 503, Header: http.Header{}}
	assert.True(t, output.AsError(r.Err()).Retryable)
}

func TestResponseOK(t *testing.T) {
	for _, code := range []int{200, 201, 204} {
		r := &Response{StatusCode: code}
		assert.True(t, r.OK())
		assert.NoError(t, r.Err())
	}
}

func TestResponseDecode(t *testing.T) {
	r := &Response{StatusCode: 200, Body: []byte(`{"name":"Calculus"}`)}
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, r.Decode(&v))
	assert.Equal(t, "Calculus", v.Name)

	assert.Error(t, (&Response{Body: nil}).Decode(&v))
	assert.Error(t, (&Response{Body: []byte("{")}).Decode(&v))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 0, parseRetryAfter(""))
	assert.Equal(t, 30, parseRetryAfter("30"))
	assert.Equal(t, 0, parseRetryAfter("-1"))
	assert.Equal(t, 0, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestTokenPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload tokenPayload
		access  string
		refresh string
	}{
		{"camel", tokenPayload{AccessToken: "a", RefreshToken: "r"}, "a", "r"},
		{"snake", tokenPayload{AccessTokenSnake: "a", RefreshTokenSnake: "r"}, "a", "r"},
		{"nested", tokenPayload{Data: &tokenPayload{AccessToken: "a"}}, "a", ""},
		{"empty", tokenPayload{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, r := tt.payload.tokens()
			assert.Equal(t, tt.access, a)
			assert.Equal(t, tt.refresh, r)
		})
	}
}
