package lifecycle

import (
	"sync"

	"github.com/okets/folder-mcp-core/internal/folder"
)

// observerID identifies a registered callback so it can be unsubscribed.
type observerID int

// observers holds every callback a Manager delivers events to. Delivery is
// synchronous on the goroutine that mutated state, so a listener observing
// one event sees a self-consistent snapshot (spec.md §5, §9).
type observers struct {
	mu sync.Mutex
	next observerID

	onStateChange    map[observerID]func(folder.Status)
	onScanComplete   map[observerID]func(*folder.LifecycleState)
	onProgressUpdate map[observerID]func(folder.Progress)
	onIndexComplete  map[observerID]func(*folder.LifecycleState)
	onError          map[observerID]func(error)
}

func newObservers() *observers {
	return &observers{
		onStateChange:    make(map[observerID]func(folder.Status)),
		onScanComplete:   make(map[observerID]func(*folder.LifecycleState)),
		onProgressUpdate: make(map[observerID]func(folder.Progress)),
		onIndexComplete:  make(map[observerID]func(*folder.LifecycleState)),
		onError:          make(map[observerID]func(error)),
	}
}

// OnStateChange subscribes to every transition; returns an unsubscribe func.
func (o *observers) OnStateChange(cb func(folder.Status)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.onStateChange[id] = cb
	return func() { o.mu.Lock(); delete(o.onStateChange, id); o.mu.Unlock() }
}

// OnScanComplete subscribes to the end of every scan cycle.
func (o *observers) OnScanComplete(cb func(*folder.LifecycleState)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.onScanComplete[id] = cb
	return func() { o.mu.Lock(); delete(o.onScanComplete, id); o.mu.Unlock() }
}

// OnProgressUpdate subscribes to progress changes during indexing.
func (o *observers) OnProgressUpdate(cb func(folder.Progress)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.onProgressUpdate[id] = cb
	return func() { o.mu.Lock(); delete(o.onProgressUpdate, id); o.mu.Unlock() }
}

// OnIndexComplete subscribes to the end of every indexing cycle.
func (o *observers) OnIndexComplete(cb func(*folder.LifecycleState)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.onIndexComplete[id] = cb
	return func() { o.mu.Lock(); delete(o.onIndexComplete, id); o.mu.Unlock() }
}

// OnError subscribes to folder-level errors. Per spec.md §7, errors are only
// surfaced as events when a listener is attached.
func (o *observers) OnError(cb func(error)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.onError[id] = cb
	return func() { o.mu.Lock(); delete(o.onError, id); o.mu.Unlock() }
}

func (o *observers) emitStateChange(s folder.Status) {
	o.mu.Lock()
	cbs := make([]func(folder.Status), 0, len(o.onStateChange))
	for _, cb := range o.onStateChange {
		cbs = append(cbs, cb)
	}
	o.mu.Unlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (o *observers) emitScanComplete(s *folder.LifecycleState) {
	o.mu.Lock()
	cbs := make([]func(*folder.LifecycleState), 0, len(o.onScanComplete))
	for _, cb := range o.onScanComplete {
		cbs = append(cbs, cb)
	}
	o.mu.Unlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (o *observers) emitProgressUpdate(p folder.Progress) {
	o.mu.Lock()
	cbs := make([]func(folder.Progress), 0, len(o.onProgressUpdate))
	for _, cb := range o.onProgressUpdate {
		cbs = append(cbs, cb)
	}
	o.mu.Unlock()
	for _, cb := range cbs {
		cb(p)
	}
}

func (o *observers) emitIndexComplete(s *folder.LifecycleState) {
	o.mu.Lock()
	cbs := make([]func(*folder.LifecycleState), 0, len(o.onIndexComplete))
	for _, cb := range o.onIndexComplete {
		cbs = append(cbs, cb)
	}
	o.mu.Unlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (o *observers) emitError(err error) {
	o.mu.Lock()
	cbs := make([]func(error), 0, len(o.onError))
	for _, cb := range o.onError {
		cbs = append(cbs, cb)
	}
	o.mu.Unlock()
	for _, cb := range cbs {
		cb(err)
	}
}
