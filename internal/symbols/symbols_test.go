package symbols

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *FakeLoader) {
	loader := NewFakeLoader()
	r, err := New(loader, 16)
	require.NoError(t, err)
	r.mtimeOf = fixedMtime(time.Unix(1000, 0))
	loader.Set("/app/Widgets.dll", &Document{
		AssemblyPath: "/app/Widgets.dll",
		Points: []SequencePoint{
			{MethodToken: 1, ILOffset: 0, File: "/src/Widget.cs", StartLine: 10, StartColumn: 1, EndLine: 10, EndColumn: 20},
			{MethodToken: 1, ILOffset: 5, File: "/src/Widget.cs", StartLine: 10, StartColumn: 1, EndLine: 10, EndColumn: 10},
			{MethodToken: 1, ILOffset: 9, File: "/src/Widget.cs", StartLine: 12, StartColumn: 1, EndLine: 12, EndColumn: 20, IsHidden: true},
			{MethodToken: 1, ILOffset: 12, File: "/src/Widget.cs", StartLine: 15, StartColumn: 1, EndLine: 15, EndColumn: 20},
		},
	})
	return r, loader
}

func TestFindILOffsetPrefersSmallestOffsetOnTie(t *testing.T) {
	r, _ := newTestResolver(t)
	b, ok, err := r.FindILOffset("/app/Widgets.dll", "/src/Widget.cs", 10, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(0), b.ILOffset)
}

func TestFindILOffsetExcludesHidden(t *testing.T) {
	r, _ := newTestResolver(t)
	_, ok, err := r.FindILOffset("/app/Widgets.dll", "/src/Widget.cs", 12, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSequencePointsOnLineIncludesHidden(t *testing.T) {
	r, _ := newTestResolver(t)
	pts, err := r.SequencePointsOnLine("/app/Widgets.dll", "/src/Widget.cs", 12)
	require.NoError(t, err)
	require.Len(t, pts, 1)
	assert.True(t, pts[0].IsHidden)
}

func TestFindNearestValidLineSkipsHidden(t *testing.T) {
	r, _ := newTestResolver(t)
	line, ok, err := r.FindNearestValidLine("/app/Widgets.dll", "/src/Widget.cs", 12, 5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 10, line)
}

func TestReverseLookupFindsContainingPoint(t *testing.T) {
	r, _ := newTestResolver(t)
	loc, ok, err := r.ReverseLookup("/app/Widgets.dll", 1, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/src/Widget.cs", loc.File)
	assert.Equal(t, 10, loc.Line)
}

func TestFilesMatchBasenameFallback(t *testing.T) {
	// Different directories, same basename: basename fallback matches.
	assert.True(t, filesMatch("/totally/different/Widget.cs", "/src/Widget.cs"))
	// Different basenames never match.
	assert.False(t, filesMatch("/src/Other.cs", "/src/Widget.cs"))
}

func TestCacheReusesParsedDocumentUntilMtimeChanges(t *testing.T) {
	r, loader := newTestResolver(t)
	_, _, err := r.FindILOffset("/app/Widgets.dll", "/src/Widget.cs", 10, nil)
	require.NoError(t, err)

	loader.Set("/app/Widgets.dll", &Document{AssemblyPath: "/app/Widgets.dll"})
	_, ok, err := r.FindILOffset("/app/Widgets.dll", "/src/Widget.cs", 10, nil)
	require.NoError(t, err)
	assert.True(t, ok, "stale cache entry should still be served until mtime changes")

	r.mtimeOf = fixedMtime(time.Unix(2000, 0))
	_, ok, err = r.FindILOffset("/app/Widgets.dll", "/src/Widget.cs", 10, nil)
	require.NoError(t, err)
	assert.False(t, ok, "mtime change should force a reparse")
}
