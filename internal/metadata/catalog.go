// Package metadata implements C5: listing loaded modules, paginated type
// enumeration with namespace summaries, member lookup, and wildcard search
// over the runtime's metadata tables (spec §4.8). It reads through
// platform.Runtime's metadata methods and never mutates or stops the
// target — all four queries are legal in either Running or Paused.
package metadata

import (
	"context"
	"strings"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
)

// systemPrefixes is the normative list of well-known framework name
// prefixes excluded when include_system is false.
var systemPrefixes = []string{"System.", "Microsoft.", "mscorlib", "netstandard", "System"}

func isSystemModule(name string) bool {
	for _, p := range systemPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// wildcardMatch implements the `*`-only glob the spec's name_filter and
// search pattern use.
func wildcardMatch(pattern, s string, caseSensitive bool) bool {
	if pattern == "" {
		return true
	}
	if !caseSensitive {
		pattern = strings.ToLower(pattern)
		s = strings.ToLower(s)
	}
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(s, last) && len(s) >= len(last)
}

// ListModules enumerates loaded modules via rt, applying the system-prefix
// filter and a `*`-wildcard name_filter. hasSymbols reports whether C1 has
// (or can) load debug symbols for a module path; pass nil to always report
// false.
func ListModules(ctx context.Context, rt platform.Runtime, includeSystem bool, nameFilter string, hasSymbols func(path string) bool) ([]model.ModuleInfo, *model.Error) {
	raw, err := rt.ListModules(ctx)
	if err != nil {
		return nil, model.Wrap(model.ErrMetadataError, err, "failed to enumerate modules")
	}
	var out []model.ModuleInfo
	for _, m := range raw {
		if !includeSystem && isSystemModule(m.Name) {
			continue
		}
		if !wildcardMatch(nameFilter, m.Name, true) {
			continue
		}
		symbols := false
		if hasSymbols != nil {
			symbols = hasSymbols(m.Path)
		}
		out = append(out, model.ModuleInfo{
			Name:       m.Name,
			Path:       m.Path,
			Version:    m.Version,
			IsSystem:   isSystemModule(m.Name),
			HasSymbols: symbols,
		})
	}
	return out, nil
}
