package events

import "sync"

// Async decouples a possibly slow sink from the emitter. Emit never blocks:
// events are queued and delivered in order by a single goroutine. A progress
// event still waiting in the queue is replaced by the next one, so a stalled
// listener costs at most one pending progress record.
type Async struct {
	next Sink

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Record
	inflight  bool
	closed    bool
	dropped   uint64
	coalesced uint64
	done      chan struct{}
}

// NewAsync starts the delivery goroutine. Call Close to flush and stop it.
func NewAsync(next Sink) *Async {
	a := &Async{
		next: next,
		done: make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.run()
	return a
}

func (a *Async) run() {
	defer close(a.done)
	for {
		a.mu.Lock()
		for len(a.queue) == 0 && !a.closed {
			a.cond.Wait()
		}
		if len(a.queue) == 0 {
			a.mu.Unlock()
			return
		}
		rec := a.queue[0]
		a.queue = a.queue[1:]
		a.inflight = true
		a.mu.Unlock()

		a.next.Emit(rec.Name, rec.Payload)

		a.mu.Lock()
		a.inflight = false
		a.cond.Broadcast()
		a.mu.Unlock()
	}
}

func (a *Async) Emit(name string, payload any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.dropped++
		return
	}
	if n := len(a.queue); n > 0 && name == DownloadProgressEvent && a.queue[n-1].Name == DownloadProgressEvent {
		a.queue[n-1].Payload = payload
		a.coalesced++
	} else {
		a.queue = append(a.queue, Record{Name: name, Payload: payload})
	}
	a.cond.Broadcast()
}

// Flush waits until every event emitted so far has been delivered.
func (a *Async) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.queue) > 0 || a.inflight {
		a.cond.Wait()
	}
}

// Dropped reports how many events arrived after Close.
func (a *Async) Dropped() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dropped
}

// Coalesced reports how many progress events were superseded before delivery.
func (a *Async) Coalesced() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coalesced
}

// Close delivers what is queued, then stops the delivery goroutine.
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.cond.Broadcast()
	a.mu.Unlock()
	<-a.done
}
