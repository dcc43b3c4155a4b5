package metadata

import (
	"context"

	"clrdebug/internal/model"
	"clrdebug/internal/platform"
)

// MemberKindSet is the subset of {methods, properties, fields, events} a
// get_members call asks for.
type MemberKindSet struct {
	Methods    bool
	Properties bool
	Fields     bool
	Events     bool
}

func (s MemberKindSet) allows(kind model.MemberKind) bool {
	switch kind {
	case model.MemberMethod:
		return s.Methods
	case model.MemberProperty:
		return s.Properties
	case model.MemberField:
		return s.Fields
	case model.MemberEvent:
		return s.Events
	default:
		return false
	}
}

// AllMemberKinds is the default kind set when a caller omits it.
var AllMemberKinds = MemberKindSet{Methods: true, Properties: true, Fields: true, Events: true}

// GetMembers reports members of typeFullName. When modulePath is empty the
// search spans every loaded module via rt.ListModules, erroring
// TypeNotFound if the type is missing everywhere or declared in more than
// one module (ambiguous).
func GetMembers(ctx context.Context, rt platform.Runtime, typeFullName, modulePath string, includeInherited bool, kinds MemberKindSet, visibility *model.Visibility, includeStatic, includeInstance bool) ([]model.MemberInfo, *model.Error) {
	modules, perr := candidateModules(ctx, rt, modulePath, typeFullName)
	if perr != nil {
		return nil, perr
	}
	if len(modules) == 0 {
		return nil, model.NewErrorf(model.ErrTypeNotFound, "type %q not found in any loaded module", typeFullName)
	}
	if len(modules) > 1 {
		return nil, model.NewErrorf(model.ErrTypeNotFound, "type %q is ambiguous across modules %v", typeFullName, modules)
	}

	raw, err := rt.ListMembers(ctx, modules[0], typeFullName)
	if err != nil {
		return nil, model.Wrap(model.ErrMetadataError, err, "failed to enumerate members")
	}

	var out []model.MemberInfo
	for _, m := range raw {
		mk := model.MemberKind(m.Kind)
		if !kinds.allows(mk) {
			continue
		}
		if !includeInherited && m.DeclaringType != typeFullName {
			continue
		}
		vis := model.Visibility(m.Visibility)
		if visibility != nil && vis != *visibility {
			continue
		}
		if m.IsStatic && !includeStatic {
			continue
		}
		if !m.IsStatic && !includeInstance {
			continue
		}
		info := model.MemberInfo{
			Name:          m.Name,
			Kind:          mk,
			DeclaringType: m.DeclaringType,
			TypeName:      m.TypeName,
			Visibility:    vis,
			IsStatic:      m.IsStatic,
		}
		if mk == model.MemberProperty {
			getter, setter := m.HasGetter, m.HasSetter
			info.HasGetter = &getter
			info.HasSetter = &setter
		}
		out = append(out, info)
	}
	return out, nil
}

// candidateModules returns the module(s) that declare typeFullName. When
// modulePath is set it is used directly without a presence check (a
// ListMembers call on a type absent from the module simply returns no
// members, which GetMembers's caller-visible TypeNotFound check above
// already covers for the unset case).
func candidateModules(ctx context.Context, rt platform.Runtime, modulePath, typeFullName string) ([]string, *model.Error) {
	if modulePath != "" {
		return []string{modulePath}, nil
	}
	mods, err := rt.ListModules(ctx)
	if err != nil {
		return nil, model.Wrap(model.ErrMetadataError, err, "failed to enumerate modules")
	}
	var found []string
	for _, m := range mods {
		types, err := rt.ListTypes(ctx, m.Path)
		if err != nil {
			continue
		}
		for _, t := range types {
			if t.FullName == typeFullName {
				found = append(found, m.Path)
				break
			}
		}
	}
	return found, nil
}
