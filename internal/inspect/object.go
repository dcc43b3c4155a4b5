package inspect

import (
	"strconv"

	"clrdebug/internal/model"
	"clrdebug/internal/valuegraph"
)

const maxObjectFields = 1024

// ObjectInspect walks v breadth-first up to depth levels (clamped by the
// caller to [1,10] per spec §4.7), detecting cycles via the set of object
// addresses already on the current path and stopping once the 1024-field
// soft cap is reached.
func ObjectInspect(store valuegraph.Store, v valuegraph.Value, depth int) (*model.ObjectInspection, *model.Error) {
	if v.IsNull() {
		return &model.ObjectInspection{
			Address:  "0x0",
			TypeName: v.TypeName,
			IsNull:   true,
		}, nil
	}
	size, err := store.Size(v.Address)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidReference, err.Error())
	}
	w := &walker{store: store, budget: maxObjectFields}
	fields := w.expand(v, depth)
	return &model.ObjectInspection{
		Address:        hexAddr(v.Address),
		TypeName:       v.TypeName,
		Size:           size,
		Fields:         fields,
		HasCircularRef: w.circular,
		Truncated:      w.truncated,
	}, nil
}

type walker struct {
	store     valuegraph.Store
	budget    int
	circular  bool
	truncated bool
}

// pendingNode is one queued object/array member whose own field list is
// still owed: out points at its slot in the already-built parent level so
// buildLevel can fill it in once this node's turn comes up in the queue.
type pendingNode struct {
	out       *model.ObjectField
	value     valuegraph.Value
	ancestors map[uint64]bool
}

// expand walks v's members level by level — every field at the current
// depth is built before any of their children are (spec §4.7: "walks
// fields breadth-first"). A per-branch ancestors set (rather than one
// shared seen set mutated push/pop) is threaded through the queue so
// cycle detection still reflects the path from the root to each node even
// though siblings now interleave instead of nesting in call-stack order.
func (w *walker) expand(v valuegraph.Value, depth int) []model.ObjectField {
	ancestors := map[uint64]bool{}
	if v.Kind == valuegraph.KindObject || v.Kind == valuegraph.KindArray {
		ancestors[v.Address] = true
	}
	fields, queue := w.buildLevel(v, ancestors)
	for depthLeft := depth - 1; depthLeft > 0 && len(queue) > 0; depthLeft-- {
		var next []pendingNode
		for _, n := range queue {
			children, childQueue := w.buildLevel(n.value, n.ancestors)
			n.out.Fields = children
			next = append(next, childQueue...)
		}
		queue = next
	}
	return fields
}

// buildLevel renders every member of v into a model.ObjectField (consuming
// the shared field budget as it goes) and returns, alongside those fields,
// the subset that still have unexpanded children queued for the next
// level.
func (w *walker) buildLevel(v valuegraph.Value, ancestors map[uint64]bool) ([]model.ObjectField, []pendingNode) {
	members := w.members(v)
	fields := make([]model.ObjectField, 0, len(members))
	type candidate struct {
		idx   int
		value valuegraph.Value
	}
	var candidates []candidate
	for _, m := range members {
		if w.budget <= 0 {
			w.truncated = true
			break
		}
		w.budget--
		f, recurse := w.buildField(m, ancestors)
		fields = append(fields, f)
		if recurse {
			candidates = append(candidates, candidate{idx: len(fields) - 1, value: m.Value})
		}
	}
	var queue []pendingNode
	for _, c := range candidates {
		childAncestors := cloneAncestors(ancestors)
		childAncestors[c.value.Address] = true
		queue = append(queue, pendingNode{out: &fields[c.idx], value: c.value, ancestors: childAncestors})
	}
	return fields, queue
}

func cloneAncestors(ancestors map[uint64]bool) map[uint64]bool {
	out := make(map[uint64]bool, len(ancestors)+1)
	for k := range ancestors {
		out[k] = true
	}
	return out
}

func (w *walker) members(v valuegraph.Value) []valuegraph.Member {
	if v.Kind == valuegraph.KindArray {
		info, isArr, err := w.store.IsArray(v.Address)
		if err != nil || !isArr {
			return nil
		}
		members := make([]valuegraph.Member, 0, info.Length)
		for i := 0; i < info.Length; i++ {
			elem, err := w.store.Element(v.Address, i)
			if err != nil {
				continue
			}
			members = append(members, valuegraph.Member{Name: strconv.Itoa(i), Value: elem, DeclaringType: v.TypeName})
		}
		return members
	}
	members, err := w.store.Fields(v.Address, true)
	if err != nil {
		return nil
	}
	return members
}

// buildField renders one member without recursing into its children;
// recurse reports whether it is a non-circular object/array with at least
// one child, i.e. a candidate for the next BFS level.
func (w *walker) buildField(m valuegraph.Member, ancestors map[uint64]bool) (model.ObjectField, bool) {
	f := model.ObjectField{
		Name:     m.Name,
		TypeName: m.Value.TypeName,
		Offset:   m.Offset,
		Size:     m.Size,
	}
	v := m.Value
	switch {
	case v.IsNull():
		f.Value = "null"
		return f, false
	case v.Kind == valuegraph.KindPrimitive:
		f.Value = truncate(v.Primitive)
		return f, false
	case ancestors[v.Address]:
		f.Value = "<circular>"
		w.circular = true
		return f, false
	default:
		f.Value = v.String()
		count := w.childCount(v)
		f.HasChildren = count > 0
		f.ChildCount = &count
		return f, count > 0
	}
}

func (w *walker) childCount(v valuegraph.Value) int {
	if v.Kind == valuegraph.KindArray {
		if info, isArr, err := w.store.IsArray(v.Address); err == nil && isArr {
			return info.Length
		}
		return 0
	}
	members, err := w.store.Fields(v.Address, true)
	if err != nil {
		return 0
	}
	return len(members)
}

func hexAddr(addr uint64) string {
	return "0x" + strconv.FormatUint(addr, 16)
}
