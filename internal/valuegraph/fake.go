package valuegraph

import "fmt"

// FakeObject is one heap object in a FakeStore's graph.
type FakeObject struct {
	TypeName string
	BaseType string // "" if none
	Fields   map[string]Value
	// Declared offsets, parallel to Fields keys that appear in FieldOrder.
	FieldOrder []string
	Offsets    map[string]int
	Sizes      map[string]int
	IsRef      map[string]bool
	Elements   []Value // non-nil only for arrays
	ElemType   string
	TotalSize  int
	HeaderSize int
}

// FakeStore is an in-memory Store used by clrdebug's own tests in place of
// a real CLR heap reader.
type FakeStore struct {
	Objects map[uint64]*FakeObject
}

// NewFakeStore returns an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{Objects: make(map[uint64]*FakeObject)}
}

// Put registers an object at addr, overwriting any prior object there.
func (s *FakeStore) Put(addr uint64, obj *FakeObject) {
	if obj.Offsets == nil {
		obj.Offsets = map[string]int{}
	}
	if obj.Sizes == nil {
		obj.Sizes = map[string]int{}
	}
	if obj.IsRef == nil {
		obj.IsRef = map[string]bool{}
	}
	s.Objects[addr] = obj
}

func (s *FakeStore) TypeOf(addr uint64) (string, error) {
	obj, ok := s.Objects[addr]
	if !ok {
		return "", fmt.Errorf("valuegraph: no object at 0x%x", addr)
	}
	return obj.TypeName, nil
}

func (s *FakeStore) Field(addr uint64, name string) (FieldLookupResult, error) {
	obj, ok := s.Objects[addr]
	if !ok {
		return FieldLookupResult{}, fmt.Errorf("valuegraph: no object at 0x%x", addr)
	}
	cur := obj
	curAddr := addr
	for cur != nil {
		if v, ok := cur.Fields[name]; ok {
			return FieldLookupResult{
				Found: true,
				Member: Member{
					Name:          name,
					DeclaringType: cur.TypeName,
					Value:         v,
					Offset:        cur.Offsets[name],
					Size:          cur.Sizes[name],
					IsReference:   cur.IsRef[name],
				},
			}, nil
		}
		if cur.BaseType == "" {
			break
		}
		baseAddr, found := s.baseObjectAddr(curAddr)
		if !found {
			break
		}
		cur, ok = s.Objects[baseAddr]
		if !ok {
			break
		}
		curAddr = baseAddr
	}
	return FieldLookupResult{}, nil
}

// baseObjectAddr is a test convenience: a real CLR object's base-type
// fields live inline at the same address, and the fake models that by
// expecting tests to put inherited fields directly in the derived object's
// own Fields map. It never reports a separate base object, so the walk in
// Field stops after the object's own Fields.
func (s *FakeStore) baseObjectAddr(addr uint64) (uint64, bool) {
	return addr, false
}

func (s *FakeStore) Fields(addr uint64, includeInherited bool) ([]Member, error) {
	obj, ok := s.Objects[addr]
	if !ok {
		return nil, fmt.Errorf("valuegraph: no object at 0x%x", addr)
	}
	var out []Member
	for _, name := range obj.FieldOrder {
		out = append(out, Member{
			Name:          name,
			DeclaringType: obj.TypeName,
			Value:         obj.Fields[name],
			Offset:        obj.Offsets[name],
			Size:          obj.Sizes[name],
			IsReference:   obj.IsRef[name],
		})
	}
	return out, nil
}

func (s *FakeStore) IsArray(addr uint64) (ArrayInfo, bool, error) {
	obj, ok := s.Objects[addr]
	if !ok {
		return ArrayInfo{}, false, fmt.Errorf("valuegraph: no object at 0x%x", addr)
	}
	if obj.Elements == nil {
		return ArrayInfo{}, false, nil
	}
	return ArrayInfo{ElementTypeName: obj.ElemType, Length: len(obj.Elements)}, true, nil
}

func (s *FakeStore) Element(addr uint64, index int) (Value, error) {
	obj, ok := s.Objects[addr]
	if !ok {
		return Value{}, fmt.Errorf("valuegraph: no object at 0x%x", addr)
	}
	if index < 0 || index >= len(obj.Elements) {
		return Value{}, fmt.Errorf("valuegraph: index %d out of bounds (len %d)", index, len(obj.Elements))
	}
	return obj.Elements[index], nil
}

func (s *FakeStore) Size(addr uint64) (int, error) {
	obj, ok := s.Objects[addr]
	if !ok {
		return 0, fmt.Errorf("valuegraph: no object at 0x%x", addr)
	}
	return obj.TotalSize, nil
}

func (s *FakeStore) Layout(typeName string, includeInherited bool) (TypeLayoutInfo, error) {
	for _, obj := range s.Objects {
		if obj.TypeName != typeName {
			continue
		}
		info := TypeLayoutInfo{
			TypeName:   obj.TypeName,
			TotalSize:  obj.TotalSize,
			HeaderSize: obj.HeaderSize,
			BaseType:   obj.BaseType,
		}
		for _, name := range obj.FieldOrder {
			info.Fields = append(info.Fields, LayoutFieldInfo{
				Name:          name,
				TypeName:      obj.Fields[name].TypeName,
				Offset:        obj.Offsets[name],
				Size:          obj.Sizes[name],
				IsReference:   obj.IsRef[name],
				DeclaringType: obj.TypeName,
			})
		}
		return info, nil
	}
	return TypeLayoutInfo{}, fmt.Errorf("valuegraph: unknown type %q", typeName)
}
