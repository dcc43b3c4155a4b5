package platform

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Fake is an in-memory Runtime double used by clrdebug's own tests. It lets
// a test script drive native events deterministically instead of talking to
// a real CLR debug-shim binary. Production embedders supply their own
// Runtime implementation; Fake is not meant to be production code.
type Fake struct {
	mu       sync.Mutex
	events   chan NativeEvent
	modules  []ModuleMetadata
	types    map[string][]TypeMetadata
	members  map[string][]MemberMetadata
	frames   map[int][]FrameInfo
	threads  []int
	nextBpID uint64
	bps      map[string]struct{}
	detached bool
	memory   map[uint64]byte
}

// NewFake returns an empty Fake with a buffered event channel.
func NewFake() *Fake {
	return &Fake{
		events:  make(chan NativeEvent, 256),
		types:   make(map[string][]TypeMetadata),
		members: make(map[string][]MemberMetadata),
		frames:  make(map[int][]FrameInfo),
		bps:     make(map[string]struct{}),
		memory:  make(map[uint64]byte),
	}
}

// Emit pushes a NativeEvent onto the fake callback stream, as if the native
// platform had just delivered it. Tests use this to script scenarios.
func (f *Fake) Emit(ev NativeEvent) {
	f.events <- ev
}

// SetThreads/SetFrames/SetModules/SetTypes/SetMembers seed the fake's
// metadata responses for a scenario.
func (f *Fake) SetThreads(ids []int)                              { f.mu.Lock(); f.threads = ids; f.mu.Unlock() }
func (f *Fake) SetFrames(threadID int, frames []FrameInfo)        { f.mu.Lock(); f.frames[threadID] = frames; f.mu.Unlock() }
func (f *Fake) SetModules(m []ModuleMetadata)                     { f.mu.Lock(); f.modules = m; f.mu.Unlock() }
func (f *Fake) SetTypes(module string, t []TypeMetadata)          { f.mu.Lock(); f.types[module] = t; f.mu.Unlock() }
func (f *Fake) SetMembers(typeName string, m []MemberMetadata)    { f.mu.Lock(); f.members[typeName] = m; f.mu.Unlock() }
func (f *Fake) SetMemoryByte(addr uint64, b byte)                 { f.mu.Lock(); f.memory[addr] = b; f.mu.Unlock() }

type fakeController struct{ f *Fake }

func (c *fakeController) Continue(ctx context.Context) error { return nil }

func (f *Fake) AttachToProcess(ctx context.Context, pid int) (NativeController, <-chan NativeEvent, error) {
	return &fakeController{f}, f.events, nil
}

func (f *Fake) Detach(ctx context.Context) error {
	f.mu.Lock()
	f.detached = true
	f.mu.Unlock()
	return nil
}

func (f *Fake) Terminate(ctx context.Context) error { return f.Detach(ctx) }

func (f *Fake) Threads(ctx context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.threads...), nil
}

func (f *Fake) StackTrace(ctx context.Context, threadID int, start, max int) ([]FrameInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := f.frames[threadID]
	if start >= len(frames) {
		return nil, nil
	}
	end := start + max
	if end > len(frames) {
		end = len(frames)
	}
	return append([]FrameInfo(nil), frames[start:end]...), nil
}

func (f *Fake) CreateStep(ctx context.Context, threadID int, mode string) error { return nil }

func (f *Fake) RequestBreak(ctx context.Context) error { return nil }

func (f *Fake) SetCodeBreakpoint(ctx context.Context, modulePath string, methodToken, ilOffset uint32) (string, error) {
	id := atomic.AddUint64(&f.nextBpID, 1)
	nativeID := fmt.Sprintf("fake-bp-%d", id)
	f.mu.Lock()
	f.bps[nativeID] = struct{}{}
	f.mu.Unlock()
	return nativeID, nil
}

func (f *Fake) RemoveCodeBreakpoint(ctx context.Context, nativeID string) error {
	f.mu.Lock()
	delete(f.bps, nativeID)
	f.mu.Unlock()
	return nil
}

func (f *Fake) ReadMemory(ctx context.Context, address uint64, buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range buf {
		if b, ok := f.memory[address+uint64(i)]; ok {
			buf[i] = b
		}
	}
	return len(buf), nil
}

func (f *Fake) ListModules(ctx context.Context) ([]ModuleMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ModuleMetadata(nil), f.modules...), nil
}

func (f *Fake) ListTypes(ctx context.Context, modulePath string) ([]TypeMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TypeMetadata(nil), f.types[modulePath]...), nil
}

func (f *Fake) ListMembers(ctx context.Context, modulePath, typeFullName string) ([]MemberMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MemberMetadata(nil), f.members[typeFullName]...), nil
}
