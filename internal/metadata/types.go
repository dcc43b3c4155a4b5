package metadata

import (
	"context"
	"encoding/base64"
	"sort"
	"strconv"
	"strings"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
)

// GetTypes reads modulePath's metadata tables, applies the optional
// namespace/kind/visibility filters, sorts by full name ascending, and
// returns one page of up to maxResults entries plus a namespace hierarchy
// summary computed over the full filtered set (not just the page).
func GetTypes(ctx context.Context, rt platform.Runtime, modulePath, namespaceFilter string, kind *model.TypeKind, visibility *model.Visibility, maxResults int, continuationToken string) (*model.TypesPage, *model.Error) {
	if maxResults < 1 || maxResults > 1000 {
		return nil, model.NewError(model.ErrInvalidParameter, "max_results must be in [1,1000]")
	}
	raw, err := rt.ListTypes(ctx, modulePath)
	if err != nil {
		return nil, model.Wrap(model.ErrMetadataError, err, "failed to enumerate types")
	}

	var filtered []model.TypeInfo
	for _, t := range raw {
		if namespaceFilter != "" && !wildcardMatch(namespaceFilter, t.Namespace, true) {
			continue
		}
		tk := model.TypeKind(t.Kind)
		if kind != nil && tk != *kind {
			continue
		}
		vis := model.Visibility(t.Visibility)
		if visibility != nil && vis != *visibility {
			continue
		}
		filtered = append(filtered, model.TypeInfo{
			FullName:   t.FullName,
			Namespace:  t.Namespace,
			Name:       t.Name,
			Kind:       tk,
			Visibility: vis,
			Module:     modulePath,
			BaseType:   t.BaseType,
		})
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].FullName < filtered[j].FullName })

	start, perr := decodeContinuation(continuationToken)
	if perr != nil {
		return nil, perr
	}
	if start > len(filtered) {
		start = len(filtered)
	}
	end := start + maxResults
	if end > len(filtered) {
		end = len(filtered)
	}
	page := filtered[start:end]

	var next string
	if end < len(filtered) {
		next = encodeContinuation(end)
	}

	return &model.TypesPage{
		Types:             page,
		Namespaces:        namespaceSummary(filtered),
		ContinuationToken: next,
	}, nil
}

// namespaceSummary builds a tree over every dotted namespace segment; each
// node lists its immediate children and counts the types declared directly
// in that namespace (§4.8).
func namespaceSummary(types []model.TypeInfo) []model.NamespaceSummary {
	counts := map[string]int{}
	for _, t := range types {
		counts[t.Namespace]++
	}
	// Build a tree from dotted namespace segments.
	type node struct {
		count    int
		children map[string]*node
	}
	root := &node{children: map[string]*node{}}
	for ns, count := range counts {
		cur := root
		if ns != "" {
			for _, seg := range strings.Split(ns, ".") {
				child, ok := cur.children[seg]
				if !ok {
					child = &node{children: map[string]*node{}}
					cur.children[seg] = child
				}
				cur = child
			}
		}
		cur.count += count
	}
	var build func(n *node) []model.NamespaceSummary
	build = func(n *node) []model.NamespaceSummary {
		var out []model.NamespaceSummary
		names := make([]string, 0, len(n.children))
		for name := range n.children {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child := n.children[name]
			out = append(out, model.NamespaceSummary{
				Name:      name,
				TypeCount: child.count,
				Children:  build(child),
			})
		}
		return out
	}
	return build(root)
}

func encodeContinuation(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeContinuation(token string) (int, *model.Error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, model.NewError(model.ErrInvalidParameter, "malformed continuation token")
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0, model.NewError(model.ErrInvalidParameter, "malformed continuation token")
	}
	return n, nil
}
