package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/api"
	"github.com/studysync/studysync-cli/internal/output"
)

// NewAPICmd creates the api command for raw API access.
func NewAPICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api <verb> <path>",
		Short: "Raw API access",
		Long: `Make raw authenticated requests to any StudySync endpoint. A 401 is
handled exactly as for every other command: the token is refreshed once
and the request replayed.

Examples:
  studysync api get /groups --jq '.data[].name'
  studysync api post /groups/123/messages --data '{"content":"hi"}'`,
	}

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		cmd.AddCommand(newAPIVerbCmd(method))
	}

	return cmd
}

func newAPIVerbCmd(method string) *cobra.Command {
	var data string
	var jq string

	verb := strings.ToLower(method)
	hasBody := method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch

	cmd := &cobra.Command{
		Use:   verb + " <path>",
		Short: method + " request to API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			var query *gojq.Code
			if jq != "" {
				if query, err = compileJQ(jq); err != nil {
					return err
				}
			}

			path, q, err := parsePath(args[0], app.Client.BaseURL())
			if err != nil {
				return err
			}

			opts := &api.RequestOptions{Query: q}
			if data != "" {
				var body any
				if err := json.Unmarshal([]byte(data), &body); err != nil {
					return output.ErrUsageHint("Invalid JSON data", fmt.Sprintf("JSON parse error: %v", err))
				}
				opts.JSON = body
			}

			resp, err := app.Client.Request(cmd.Context(), method, path, opts)
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return err
			}

			var result any = map[string]any{}
			if len(resp.Body) > 0 {
				if err := json.Unmarshal(resp.Body, &result); err != nil {
					// Not JSON; pass it through as text.
					result = string(resp.Body)
				}
			}

			if query != nil {
				if result, err = runJQ(query, result); err != nil {
					return err
				}
			}

			return app.OK(result,
				output.WithSummary(fmt.Sprintf("%s %s: %s", method, path, apiSummary(result))),
				output.WithMeta("status", resp.StatusCode),
			)
		},
	}

	if hasBody {
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	}
	cmd.Flags().StringVar(&jq, "jq", "", "Filter the response with a jq expression")

	return cmd
}

// parsePath accepts a path relative to the API URL, or a full URL under it.
// Any query string is split off.
func parsePath(input, baseURL string) (string, url.Values, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		if !strings.HasPrefix(input, baseURL+"/") {
			return "", nil, output.ErrUsageHint("URL is not under the configured API",
				"Expected a path or a URL starting with "+baseURL)
		}
		input = strings.TrimPrefix(input, baseURL)
	}

	path, rawQuery, _ := strings.Cut(input, "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var q url.Values
	if rawQuery != "" {
		var err error
		if q, err = url.ParseQuery(rawQuery); err != nil {
			return "", nil, output.ErrUsage("invalid query string: " + err.Error())
		}
	}
	return path, q, nil
}

func compileJQ(expr string) (*gojq.Code, error) {
	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, output.ErrUsageHint("Invalid --jq expression", err.Error())
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, output.ErrUsageHint("Invalid --jq expression", err.Error())
	}
	return code, nil
}

// runJQ applies code to v. A single result is returned as-is; several
// results are collected into an array.
func runJQ(code *gojq.Code, v any) (any, error) {
	var results []any
	iter := code.Run(v)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := r.(error); isErr {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				break
			}
			return nil, output.ErrUsageHint("--jq failed", err.Error())
		}
		results = append(results, r)
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// apiSummary describes a decoded response in a few words.
func apiSummary(v any) string {
	switch d := v.(type) {
	case []any:
		return pluralize(len(d), "item", "items")
	case map[string]any:
		if inner, ok := d["data"]; ok {
			return apiSummary(inner)
		}
		for _, key := range []string{"title", "name", "message"} {
			if s, ok := d[key].(string); ok && s != "" {
				if len(s) > 50 {
					s = s[:47] + "..."
				}
				return s
			}
		}
	}
	return "API response"
}
