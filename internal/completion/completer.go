package completion

import (
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studysync/studysync-cli/internal/appctx"
)

// CacheDirFunc returns the cache directory to use for completion.
type CacheDirFunc func(cmd *cobra.Command) string

// DefaultCacheDirFunc checks, in order, the --cache-dir flag, the App
// config, and STUDYSYNC_CACHE_DIR. An empty result means the default.
//
// PersistentPreRunE does not run for __complete, so cache_dir set only
// in a config file is not seen here.
func DefaultCacheDirFunc(cmd *cobra.Command) string {
	if root := cmd.Root(); root != nil {
		if flag := root.PersistentFlags().Lookup("cache-dir"); flag != nil && flag.Changed {
			return flag.Value.String()
		}
	}
	if app := appctx.FromContext(cmd.Context()); app != nil {
		return app.Config.CacheDir
	}
	return os.Getenv("STUDYSYNC_CACHE_DIR")
}

// Completer serves completions from the cache without building an App.
type Completer struct {
	getCacheDir CacheDirFunc
}

// NewCompleter creates a completer. A nil func uses DefaultCacheDirFunc.
func NewCompleter(getCacheDir CacheDirFunc) *Completer {
	if getCacheDir == nil {
		getCacheDir = DefaultCacheDirFunc
	}
	return &Completer{getCacheDir: getCacheDir}
}

// GroupCompletion completes the first positional argument with cached
// group IDs, described by name. Names match by prefix or substring.
func (c *Completer) GroupCompletion() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}

		groups := NewStore(c.getCacheDir(cmd)).Groups()
		if len(groups) == 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		needle := strings.ToLower(toComplete)
		var completions []cobra.Completion
		for _, g := range rankGroups(groups) {
			if needle == "" ||
				strings.HasPrefix(strings.ToLower(g.ID), needle) ||
				strings.Contains(strings.ToLower(g.Name), needle) {
				completions = append(completions, cobra.CompletionWithDesc(g.ID, describe(g)))
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	}
}

func describe(g CachedGroup) string {
	if g.Subject == "" {
		return g.Name
	}
	return g.Name + " (" + g.Subject + ")"
}

// rankGroups sorts case-insensitively by name, then by ID.
func rankGroups(groups []CachedGroup) []CachedGroup {
	ranked := make([]CachedGroup, len(groups))
	copy(ranked, groups)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := strings.ToLower(ranked[i].Name), strings.ToLower(ranked[j].Name)
		if a != b {
			return a < b
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
