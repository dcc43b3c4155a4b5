package metadata

import (
	"context"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
)

// Search performs a wildcard search over the catalog, matching type and/or
// method names against pattern. moduleFilter, when set, is itself a
// `*`-wildcard over module names.
func Search(ctx context.Context, rt platform.Runtime, pattern string, kind model.SearchKind, moduleFilter string, caseSensitive bool, maxResults int) ([]model.SearchResult, *model.Error) {
	if maxResults < 1 || maxResults > 100 {
		return nil, model.NewError(model.ErrInvalidParameter, "max_results must be in [1,100]")
	}
	mods, err := rt.ListModules(ctx)
	if err != nil {
		return nil, model.Wrap(model.ErrSearchFailed, err, "failed to enumerate modules")
	}

	var out []model.SearchResult
	for _, m := range mods {
		if moduleFilter != "" && !wildcardMatch(moduleFilter, m.Name, caseSensitive) {
			continue
		}
		types, err := rt.ListTypes(ctx, m.Path)
		if err != nil {
			continue
		}
		if kind == model.SearchTypes || kind == model.SearchBoth {
			for _, t := range types {
				if !wildcardMatch(pattern, t.Name, caseSensitive) {
					continue
				}
				out = append(out, model.SearchResult{Kind: model.SearchTypes, Name: t.FullName, Module: m.Name})
				if len(out) >= maxResults {
					return out, nil
				}
			}
		}
		if kind == model.SearchMethods || kind == model.SearchBoth {
			for _, t := range types {
				members, err := rt.ListMembers(ctx, m.Path, t.FullName)
				if err != nil {
					continue
				}
				for _, mem := range members {
					if mem.Kind != "Method" || !wildcardMatch(pattern, mem.Name, caseSensitive) {
						continue
					}
					out = append(out, model.SearchResult{Kind: model.SearchMethods, Name: mem.Name, Module: m.Name, DeclaringType: mem.DeclaringType})
					if len(out) >= maxResults {
						return out, nil
					}
				}
			}
		}
	}
	return out, nil
}
