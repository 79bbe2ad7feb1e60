// SPDX-License-Identifier: MIT
//
// Simulated event bus.
//

package sim

import (
	"sync"

	"captiveportal/wifi"
)

type entry struct {
	base wifi.EventBase
	id   wifi.EventID
	h    wifi.Handler
}

// Bus dispatches posted events to the registered handlers.  It also counts
// the registrations so that leaks can be detected.
type Bus struct {
	lock         sync.Mutex
	next         wifi.HandlerID
	handlers     map[wifi.HandlerID]entry
	registered   int
	unregistered int
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[wifi.HandlerID]entry),
	}
}

func (b *Bus) Register(base wifi.EventBase, id wifi.EventID, h wifi.Handler) (wifi.HandlerID, error) {
	if h == nil {
		return 0, wifi.Check(wifi.CodeInvalidArg)
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	b.next++
	b.handlers[b.next] = entry{base: base, id: id, h: h}
	b.registered++
	return b.next, nil
}

func (b *Bus) Unregister(hid wifi.HandlerID) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if _, ok := b.handlers[hid]; !ok {
		return wifi.Check(wifi.CodeNotFound)
	}
	delete(b.handlers, hid)
	b.unregistered++
	return nil
}

// Post delivers the event to the matching handlers on the calling
// goroutine.  The handlers run without the bus locked, so they may
// register or unregister.
func (b *Bus) Post(base wifi.EventBase, id wifi.EventID, data any) int {
	b.lock.Lock()
	var matched []wifi.Handler
	for _, e := range b.handlers {
		if e.base == base && e.id == id {
			matched = append(matched, e.h)
		}
	}
	b.lock.Unlock()

	for _, h := range matched {
		h(base, id, data)
	}
	return len(matched)
}

// Len is the number of live registrations.
func (b *Bus) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.handlers)
}

// Counts returns the numbers of Register() and Unregister() calls that
// succeeded.
func (b *Bus) Counts() (registered int, unregistered int) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.registered, b.unregistered
}
