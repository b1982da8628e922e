package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, w.OK([]group{{ID: 1, Name: "Calculus"}}, WithSummary("1 group")))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, "1 group", resp["summary"])
	data := resp["data"].([]any)
	assert.Len(t, data, 1)
}

func TestWriterQuiet(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatQuiet, Writer: &buf})

	require.NoError(t, w.OK(map[string]any{"id": 7}, WithSummary("ignored")))
	assert.JSONEq(t, `{"id": 7}`, buf.String())
}

func TestWriterYAML(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatYAML, Writer: &buf})

	require.NoError(t, w.OK(group{ID: 3, Name: "Physics"}))

	var resp struct {
		OK   bool           `yaml:"ok"`
		Data map[string]any `yaml:"data"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "Physics", resp.Data["name"])
}

func TestWriterIDsAndCount(t *testing.T) {
	groups := []group{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

	var ids bytes.Buffer
	require.NoError(t, New(Options{Format: FormatIDs, Writer: &ids}).OK(groups))
	assert.Equal(t, "1\n2\n", ids.String())

	var count bytes.Buffer
	require.NoError(t, New(Options{Format: FormatCount, Writer: &count}).OK(groups))
	assert.Equal(t, "2\n", count.String())
}

func TestWriterIDsFromDocumentIDs(t *testing.T) {
	docs := []map[string]any{{"_id": "65f0", "name": "a"}, {"_id": "65f1", "name": "b"}}

	var ids bytes.Buffer
	require.NoError(t, New(Options{Format: FormatIDs, Writer: &ids}).OK(docs))
	assert.Equal(t, "65f0\n65f1\n", ids.String())
}

func TestWriterErr(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	require.NoError(t, w.Err(ErrSessionExpired(errors.New("refresh rejected"))))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, CodeSessionExpired, resp.Code)
	assert.Equal(t, "Run: studysync auth login", resp.Hint)
}

func TestMarkdownTable(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatMarkdown, Writer: &buf})

	require.NoError(t, w.OK([]group{{ID: 1, Name: "x|y"}}, WithSummary("Groups")))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "## Groups"))
	assert.Contains(t, out, "| id | name |")
	assert.Contains(t, out, `x\|y`)
}

func TestStyledRendersWithoutTTY(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf})

	require.NoError(t, w.Err(ErrUsageHint("Bad flag", "Use --help")))
	assert.Contains(t, buf.String(), "Error: Bad flag")
	assert.Contains(t, buf.String(), "Hint: Use --help")
}

func TestAsError(t *testing.T) {
	plain := errors.New("boom")
	e := AsError(plain)
	assert.Equal(t, CodeAPI, e.Code)
	assert.ErrorIs(t, e, plain)

	typed := ErrNotFound("Group", "42")
	wrapped := fmt.Errorf("loading: %w", typed)
	assert.Same(t, typed, AsError(wrapped))
}

func TestIsSessionExpired(t *testing.T) {
	assert.True(t, IsSessionExpired(fmt.Errorf("get /x: %w", ErrSessionExpired(nil))))
	assert.False(t, IsSessionExpired(ErrAuth("Not authenticated")))
	assert.False(t, IsSessionExpired(errors.New("plain")))
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		err  *Error
		code int
	}{
		{ErrUsage("x"), ExitUsage},
		{ErrNotFound("Group", "1"), ExitNotFound},
		{ErrAuth("x"), ExitAuth},
		{ErrForbidden("x"), ExitForbidden},
		{ErrRateLimit(5), ExitRateLimit},
		{ErrNetwork(errors.New("dial")), ExitNetwork},
		{ErrAPI(500, "x"), ExitAPI},
		{ErrConflict("x"), ExitConflict},
		{ErrSessionExpired(nil), ExitSessionExpired},
		{ErrUnavailable("x", ""), ExitNetwork},
		{ErrPending("x", ""), ExitPending},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.ExitCode())
		})
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		code   string
		exit   int
	}{
		{400, CodeUsage, ExitUsage},
		{401, CodeAuth, ExitAuth},
		{403, CodeForbidden, ExitForbidden},
		{404, CodeNotFound, ExitNotFound},
		{409, CodeConflict, ExitConflict},
		{429, CodeRateLimit, ExitRateLimit},
		{500, CodeAPI, ExitAPI},
		{418, CodeAPI, ExitAPI},
	}
	for _, tt := range tests {
		e := FromStatus(tt.status, "nope", 7)
		assert.Equal(t, tt.code, e.Code, "status %d", tt.status)
		assert.Equal(t, tt.exit, e.ExitCode(), "status %d", tt.status)
		assert.Equal(t, tt.status, e.HTTPStatus, "status %d", tt.status)
	}
	assert.Equal(t, ErrForbidden("nope"), FromStatus(403, "nope", 0))
	assert.Equal(t, ErrConflict("taken"), FromStatus(409, "taken", 0))
	assert.True(t, FromStatus(503, "down", 0).Retryable)
	assert.Equal(t, "Try again in 7 seconds", FromStatus(429, "", 7).Hint)
}

func TestErrRateLimitHint(t *testing.T) {
	assert.Equal(t, "Try again in 30 seconds", ErrRateLimit(30).Hint)
	assert.Equal(t, "Try again later", ErrRateLimit(0).Hint)
}
