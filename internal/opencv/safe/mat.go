package safe

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// Mat owns a gocv.Mat and guarantees it is released exactly once, either by
// Close or, as a last resort, by the finalizer.
type Mat struct {
	mat     gocv.Mat
	isValid int32
	mu      sync.RWMutex
	tag     string
}

// Own takes ownership of m. The caller must not close m itself.
func Own(m gocv.Mat, tag string) (*Mat, error) {
	if m.Empty() {
		m.Close()
		return nil, fmt.Errorf("%s: Mat is empty", tag)
	}

	sm := &Mat{mat: m, isValid: 1, tag: tag}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm, nil
}

// New allocates an empty destination Mat for gocv calls that write into it.
func New(tag string) *Mat {
	sm := &Mat{mat: gocv.NewMat(), isValid: 1, tag: tag}
	runtime.SetFinalizer(sm, (*Mat).finalize)
	return sm
}

func (sm *Mat) IsValid() bool {
	return atomic.LoadInt32(&sm.isValid) == 1
}

func (sm *Mat) Empty() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return !sm.IsValid() || sm.mat.Empty()
}

func (sm *Mat) Rows() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Rows()
}

func (sm *Mat) Cols() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Cols()
}

func (sm *Mat) Channels() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.IsValid() {
		return 0
	}
	return sm.mat.Channels()
}

// Ptr hands out the wrapped Mat as a gocv destination argument.
func (sm *Mat) Ptr() *gocv.Mat {
	return &sm.mat
}

// Get returns the wrapped Mat for read-only gocv calls.
func (sm *Mat) Get() gocv.Mat {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.mat
}

func (sm *Mat) Tag() string {
	return sm.tag
}

func (sm *Mat) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if atomic.CompareAndSwapInt32(&sm.isValid, 1, 0) {
		sm.mat.Close()
		runtime.SetFinalizer(sm, nil)
	}
}

func (sm *Mat) finalize() {
	if sm.IsValid() {
		sm.Close()
	}
}
