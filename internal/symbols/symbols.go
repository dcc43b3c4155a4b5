// Package symbols implements C1: resolving between source locations and
// (method_token, il_offset) pairs using a loaded assembly's debug-symbol
// sidecar file. The sidecar's own format (PDB or otherwise) is a platform
// boundary this package does not parse itself — callers supply a Loader,
// the same way internal/platform supplies a Runtime.
package symbols

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"clrdebug/internal/model"
)

// SequencePoint is one row of a method's sequence-point table.
type SequencePoint struct {
	MethodToken uint32
	ILOffset    uint32
	File        string
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
	IsHidden    bool
}

// Document is a parsed debug-symbol sidecar for one assembly.
type Document struct {
	AssemblyPath string
	// Points is the full, unfiltered sequence-point table, including hidden
	// points — raw listings (SequencePointsOnLine) return these too; only
	// binding (FindILOffset) excludes them.
	Points []SequencePoint
}

// Loader loads the parsed Document for an assembly's debug symbols. A
// production embedder supplies its own implementation (reading whatever
// sidecar format its runtime emits); clrdebug's tests use a FakeLoader.
type Loader interface {
	// Load parses the sidecar for assemblyPath. ok is false if the assembly
	// has no symbols (a normal condition, not an error).
	Load(assemblyPath string) (doc *Document, ok bool, err error)
}

type cacheEntry struct {
	doc   *Document
	mtime time.Time
}

// Resolver is C1's public surface. It is safe for concurrent use: reads
// are lock-free once an assembly's first parse completes; only the parse
// itself is single-flighted per assembly path.
type Resolver struct {
	loader  Loader
	cache   *lru.Cache[string, *cacheEntry]
	group   singleflight.Group
	mtimeOf func(path string) (time.Time, error)
}

// New builds a Resolver backed by loader, caching up to cacheSize parsed
// documents.
func New(loader Loader, cacheSize int) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	c, err := lru.New[string, *cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{loader: loader, cache: c, mtimeOf: statMtime}, nil
}

func statMtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Invalidate drops any cached document for assemblyPath, forcing the next
// access to reparse. Called in response to an fsnotify event on the
// assembly's directory (proactive invalidation, see Watcher).
func (r *Resolver) Invalidate(assemblyPath string) {
	r.cache.Remove(assemblyPath)
}

func (r *Resolver) document(assemblyPath string) (*Document, error) {
	mtime, statErr := r.mtimeOf(assemblyPath)
	if entry, ok := r.cache.Get(assemblyPath); ok {
		if statErr == nil && entry.mtime.Equal(mtime) {
			return entry.doc, nil
		}
	}
	v, err, _ := r.group.Do(assemblyPath, func() (any, error) {
		doc, ok, loadErr := r.loader.Load(assemblyPath)
		if loadErr != nil {
			return nil, loadErr
		}
		if !ok {
			return nil, nil
		}
		r.cache.Add(assemblyPath, &cacheEntry{doc: doc, mtime: mtime})
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.(*Document), nil
}

// Binding is the result of a successful FindILOffset.
type Binding struct {
	MethodToken uint32
	ILOffset    uint32
	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int
}

// FindILOffset resolves (source_file, line[, column]) to a binding within
// assembly's debug symbols. Hidden sequence points never bind. When
// multiple points share the line, the one whose column range contains
// column wins; ties (or an absent column) break on smallest il_offset.
func (r *Resolver) FindILOffset(assemblyPath, sourceFile string, line int, column *int) (*Binding, bool, error) {
	doc, err := r.document(assemblyPath)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		return nil, false, nil
	}
	var candidates []SequencePoint
	for _, p := range doc.Points {
		if p.IsHidden {
			continue
		}
		if !filesMatch(p.File, sourceFile) {
			continue
		}
		if line < p.StartLine || line > p.EndLine {
			continue
		}
		if column != nil && (*column < p.StartColumn || *column > p.EndColumn) {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil, false, nil
	}
	best := candidates[0]
	for _, p := range candidates[1:] {
		if p.ILOffset < best.ILOffset {
			best = p
		}
	}
	return &Binding{
		MethodToken: best.MethodToken,
		ILOffset:    best.ILOffset,
		StartLine:   best.StartLine,
		StartColumn: best.StartColumn,
		EndLine:     best.EndLine,
		EndColumn:   best.EndColumn,
	}, true, nil
}

// SequencePointsOnLine returns every sequence point (hidden included) that
// covers line in sourceFile — the "raw listing" view spec §4.3 calls out
// as distinct from binding.
func (r *Resolver) SequencePointsOnLine(assemblyPath, sourceFile string, line int) ([]SequencePoint, error) {
	doc, err := r.document(assemblyPath)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	var out []SequencePoint
	for _, p := range doc.Points {
		if filesMatch(p.File, sourceFile) && line >= p.StartLine && line <= p.EndLine {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindNearestValidLine walks outwards from requestedLine by up to
// searchRange lines in each direction and returns the first line with at
// least one non-hidden sequence point.
func (r *Resolver) FindNearestValidLine(assemblyPath, sourceFile string, requestedLine, searchRange int) (int, bool, error) {
	doc, err := r.document(assemblyPath)
	if err != nil {
		return 0, false, err
	}
	if doc == nil {
		return 0, false, nil
	}
	linesWithPoints := map[int]bool{}
	for _, p := range doc.Points {
		if p.IsHidden || !filesMatch(p.File, sourceFile) {
			continue
		}
		for l := p.StartLine; l <= p.EndLine; l++ {
			linesWithPoints[l] = true
		}
	}
	if linesWithPoints[requestedLine] {
		return requestedLine, true, nil
	}
	for d := 1; d <= searchRange; d++ {
		if linesWithPoints[requestedLine-d] {
			return requestedLine - d, true, nil
		}
		if linesWithPoints[requestedLine+d] {
			return requestedLine + d, true, nil
		}
	}
	return 0, false, nil
}

// ReverseLookup maps (method_token, il_offset) back to the partial source
// location C6 needs to enrich a native event.
func (r *Resolver) ReverseLookup(assemblyPath string, methodToken uint32, ilOffset uint32) (*model.SourceLocation, bool, error) {
	doc, err := r.document(assemblyPath)
	if err != nil {
		return nil, false, err
	}
	if doc == nil {
		return nil, false, nil
	}
	var best *SequencePoint
	for i := range doc.Points {
		p := &doc.Points[i]
		if p.MethodToken != methodToken || p.IsHidden {
			continue
		}
		if p.ILOffset > ilOffset {
			continue
		}
		if best == nil || p.ILOffset > best.ILOffset {
			best = p
		}
	}
	if best == nil {
		return nil, false, nil
	}
	col := best.StartColumn
	endLine := best.EndLine
	endCol := best.EndColumn
	return &model.SourceLocation{
		File:      best.File,
		Line:      best.StartLine,
		Column:    &col,
		EndLine:   &endLine,
		EndColumn: &endCol,
	}, true, nil
}

// filesMatch implements the spec §4.3 matching rules: platform-appropriate
// case sensitivity, normalised separators, basename fallback.
func filesMatch(a, b string) bool {
	na := normalizePath(a)
	nb := normalizePath(b)
	if pathsEqual(na, nb) {
		return true
	}
	return pathsEqual(filepath.Base(na), filepath.Base(nb))
}

func normalizePath(p string) string {
	return filepath.ToSlash(p)
}

func pathsEqual(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}
