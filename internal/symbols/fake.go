package symbols

import "time"

// FakeLoader is an in-memory Loader keyed by assembly path, used by
// clrdebug's own tests in place of a real sidecar parser.
type FakeLoader struct {
	docs map[string]*Document
}

// NewFakeLoader returns a loader with no documents registered.
func NewFakeLoader() *FakeLoader {
	return &FakeLoader{docs: make(map[string]*Document)}
}

// Set registers doc for assemblyPath, replacing any prior document.
func (f *FakeLoader) Set(assemblyPath string, doc *Document) {
	f.docs[assemblyPath] = doc
}

func (f *FakeLoader) Load(assemblyPath string) (*Document, bool, error) {
	doc, ok := f.docs[assemblyPath]
	if !ok {
		return nil, false, nil
	}
	return doc, true, nil
}

// fixedMtime lets tests pin Resolver.mtimeOf without touching the
// filesystem.
func fixedMtime(t time.Time) func(string) (time.Time, error) {
	return func(string) (time.Time, error) { return t, nil }
}
