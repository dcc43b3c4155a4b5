package inspect

import (
	"sort"

	"clrdebug/internal/model"
	"clrdebug/internal/valuegraph"
)

// LayoutGet produces typeName's field layout sorted by offset. When
// includeInherited is set, base-type fields are already present in the
// Store's Layout result (valuegraph.Store.Layout owns the inheritance
// walk); here we only sort and compute padding gaps (spec §4.7).
func LayoutGet(store valuegraph.Store, typeName string, includeInherited bool) (*model.TypeLayout, *model.Error) {
	info, err := store.Layout(typeName, includeInherited)
	if err != nil {
		return nil, model.NewError(model.ErrTypeNotFound, err.Error())
	}

	fields := make([]valuegraph.LayoutFieldInfo, len(info.Fields))
	copy(fields, info.Fields)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Offset < fields[j].Offset })

	out := &model.TypeLayout{
		TypeName:    info.TypeName,
		TotalSize:   info.TotalSize,
		HeaderSize:  info.HeaderSize,
		BaseType:    info.BaseType,
		IsValueType: info.IsValueType,
	}
	if info.IsValueType {
		out.HeaderSize = 0
	}
	out.DataSize = info.TotalSize - out.HeaderSize

	for _, f := range fields {
		out.Fields = append(out.Fields, model.LayoutField{
			Name:          f.Name,
			TypeName:      f.TypeName,
			Offset:        f.Offset,
			Size:          f.Size,
			Alignment:     f.Alignment,
			IsReference:   f.IsReference,
			DeclaringType: f.DeclaringType,
		})
	}
	out.Padding = computePadding(fields, info.TotalSize)
	return out, nil
}

// computePadding emits a Padding entry for every gap > 0 bytes between a
// field's end and the next field's start, plus a trailing gap up to
// totalSize.
func computePadding(fields []valuegraph.LayoutFieldInfo, totalSize int) []model.Padding {
	var out []model.Padding
	cursor := 0
	for _, f := range fields {
		if f.Offset > cursor {
			out = append(out, model.Padding{Offset: cursor, Size: f.Offset - cursor, Reason: model.PaddingAlignment})
		}
		cursor = f.Offset + f.Size
	}
	if totalSize > cursor {
		out = append(out, model.Padding{Offset: cursor, Size: totalSize - cursor, Reason: model.PaddingTail})
	}
	return out
}
