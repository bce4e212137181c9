// Package ui serves resources to users: the observer hub distributing
// broadcasts and the command front ends built on Server.
package ui

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
)

// DefaultQueueLen is the number of broadcasts buffered per subscription.
const DefaultQueueLen = 16

// Hub tracks the observers of resources and implements hba.Broadcaster.
// A resource's observer key is non-zero exactly while it has subscribers.
type Hub struct {
	subs    map[*hba.Resource]map[*Subscription]struct{}
	lastKey uint32
	lock    sync.Mutex
}

// Subscription receives the broadcasts of one resource.
type Subscription struct {
	hub *Hub
	rsc *hba.Resource
	ch  chan []byte
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*hba.Resource]map[*Subscription]struct{})}
}

// Subscribe starts observing rsc. Broadcasts are dropped when more than qlen
// are pending.
func (h *Hub) Subscribe(rsc *hba.Resource, qlen int) *Subscription {
	if qlen <= 0 {
		qlen = DefaultQueueLen
	}
	sub := &Subscription{hub: h, rsc: rsc, ch: make(chan []byte, qlen)}
	h.lock.Lock()
	defer h.lock.Unlock()
	subs := h.subs[rsc]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		h.subs[rsc] = subs
		if h.lastKey++; h.lastKey == 0 {
			h.lastKey = 1
		}
		rsc.SetObserverKey(h.lastKey)
		glog.V(2).Infof("observing %s", rsc.Path())
	}
	subs[sub] = struct{}{}
	return sub
}

// Observers returns the number of subscriptions on rsc.
func (h *Hub) Observers(rsc *hba.Resource) int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.subs[rsc])
}

// Broadcast implements hba.Broadcaster.
func (h *Hub) Broadcast(rsc *hba.Resource, text []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for sub := range h.subs[rsc] {
		select {
		case sub.ch <- append([]byte(nil), text...):
		default:
			glog.V(2).Infof("%s: observer too slow, broadcast dropped", rsc.Path())
		}
	}
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.lock.Lock()
	defer h.lock.Unlock()
	subs := h.subs[sub.rsc]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subs, sub.rsc)
		sub.rsc.SetObserverKey(0)
		glog.V(2).Infof("stop observing %s", sub.rsc.Path())
	}
}

// C returns the chan of broadcast texts. It is closed by Close.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Resource returns the observed resource.
func (s *Subscription) Resource() *hba.Resource {
	return s.rsc
}

// Close implements io.Closer.
func (s *Subscription) Close() error {
	s.hub.unsubscribe(s)
	return nil
}
