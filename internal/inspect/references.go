package inspect

import (
	"strconv"

	"clrdebug/internal/model"
	"clrdebug/internal/valuegraph"
)

// ReferencesGet walks v's declared fields (and, when includeArrays is set
// and v is an array, its elements) producing outbound references only.
// Inbound is formalized as not implemented (§9 Open Questions; §4.7).
func ReferencesGet(store valuegraph.Store, v valuegraph.Value, includeArrays bool, maxResults int) (*model.ReferencesResult, *model.Error) {
	if maxResults < 1 || maxResults > 100 {
		return nil, model.NewError(model.ErrInvalidParameter, "max_results must be in [1,100]")
	}
	result := &model.ReferencesResult{
		TargetAddress: hexAddr(v.Address),
		TargetType:    v.TypeName,
	}
	if v.IsNull() {
		return result, nil
	}

	var candidates []model.Reference
	if v.Kind == valuegraph.KindArray {
		if !includeArrays {
			return result, nil
		}
		info, isArr, err := store.IsArray(v.Address)
		if err != nil || !isArr {
			return result, nil
		}
		for i := 0; i < info.Length; i++ {
			elem, err := store.Element(v.Address, i)
			if err != nil || elem.IsNull() || elem.Kind == valuegraph.KindPrimitive {
				continue
			}
			candidates = append(candidates, model.Reference{
				SourceAddress: hexAddr(v.Address),
				SourceType:    v.TypeName,
				TargetAddress: hexAddr(elem.Address),
				TargetType:    elem.TypeName,
				Path:          "[" + strconv.Itoa(i) + "]",
				Kind:          model.ReferenceArrayElement,
			})
		}
	} else {
		members, err := store.Fields(v.Address, true)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidReference, err.Error())
		}
		for _, m := range members {
			if m.Value.IsNull() || m.Value.Kind == valuegraph.KindPrimitive {
				continue
			}
			candidates = append(candidates, model.Reference{
				SourceAddress: hexAddr(v.Address),
				SourceType:    v.TypeName,
				TargetAddress: hexAddr(m.Value.Address),
				TargetType:    m.Value.TypeName,
				Path:          m.Name,
				Kind:          model.ReferenceField,
			})
		}
	}

	result.OutboundCount = len(candidates)
	if len(candidates) > maxResults {
		result.Outbound = candidates[:maxResults]
		result.Truncated = true
	} else {
		result.Outbound = candidates
	}
	return result, nil
}
