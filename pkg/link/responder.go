package link

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
)

// Responder is the device end of a link. It answers request frames with the
// bytes returned by Device and reports interrupts.
type Responder struct {
	Device hba.Sender

	link *Link

	// pending holds interrupts raised while the link is not synchronized.
	pending     []byte
	pendingLock sync.Mutex
}

// NewResponder creates a Responder over port.
func NewResponder(port io.ReadWriter, dev hba.Sender) *Responder {
	r := &Responder{Device: dev, link: New(port)}
	r.link.Handler = r
	r.link.Notifier = StateChangedFunc(r.stateChanged)
	return r
}

// Link returns the underlying link.
func (r *Responder) Link() *Link {
	return r.link
}

// Run implements framework.Runnable.
func (r *Responder) Run(ctx context.Context) error {
	return r.link.Run(ctx)
}

// WaitReady blocks until the link is synchronized.
func (r *Responder) WaitReady(ctx context.Context) error {
	return r.link.WaitReady(ctx)
}

// Interrupt reports pending interrupts of the cores. Interrupts raised before
// the link is synchronized are sent once it is.
func (r *Responder) Interrupt(coreIDs ...byte) error {
	r.pendingLock.Lock()
	defer r.pendingLock.Unlock()
	for _, id := range coreIDs {
		r.pending = appendCoreID(r.pending, id)
	}
	return r.flushLocked()
}

func (r *Responder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}
	err := r.link.Send(&Frame{Code: CodeInterrupt, Data: r.pending})
	if err == ErrNotReady {
		return nil
	}
	r.pending = nil
	return err
}

func (r *Responder) stateChanged(ctx context.Context, state SyncState) {
	if !state.IsReady() {
		return
	}
	r.pendingLock.Lock()
	defer r.pendingLock.Unlock()
	if err := r.flushLocked(); err != nil {
		glog.Errorf("responder: interrupt: %v", err)
	}
}

// appendCoreID adds id to ids unless present, interrupts of a core coalesce.
func appendCoreID(ids []byte, id byte) []byte {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

// HandleFrame implements FrameHandler.
func (r *Responder) HandleFrame(ctx context.Context, frame *Frame) {
	if frame.IsEvent() || frame.Code != CodePacket {
		return
	}
	resp := &Frame{Code: CodePacket, Data: []byte{byte(frame.Seq)}}
	data, err := r.Device.SendRecv(frame.Data)
	if err != nil {
		glog.V(2).Infof("responder: % x: %v", frame.Data, err)
		resp.Code |= CodeFailure
	} else {
		resp.Data = append(resp.Data, data...)
	}
	if err = r.link.Send(resp); err != nil {
		glog.Errorf("responder: reply to %d: %v", frame.Seq, err)
	}
}
