package link

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
)

// PluginName is the registry name of the transport plugin.
const PluginName = "serial_fpga"

// DefaultReplyTimeout is how long SendRecv waits for a reply.
const DefaultReplyTimeout = 500 * time.Millisecond

// Resource IDs of the transport plugin.
const (
	RscPort = iota
)

// Transport sends HBA packets over a Link and waits for the replies. It is
// the plugin every peripheral uses as its parent.
type Transport struct {
	// ReplyTimeout bounds SendRecv.
	ReplyTimeout time.Duration

	link     *Link
	portName string
	info     hba.Info
	// dispatch runs interrupt handlers on the goroutine serving commands.
	dispatch func(func())
	// ready is only accessed from the link goroutine.
	ready bool

	calls     callQueue
	callsLock sync.Mutex

	handlers     map[byte]hba.InterruptHandler
	handlersLock sync.RWMutex
}

type call struct {
	seq    Seq
	respCh chan reply
	next   *call
}

type reply struct {
	data []byte
	err  error
}

type callQueue struct {
	head *call
	tail *call
}

func (q *callQueue) push(c *call) {
	if q.head == nil {
		q.head = c
	} else {
		q.tail.next = c
	}
	q.tail = c
}

// take removes the call numbered seq and the calls queued before it, which
// will never be answered.
func (q *callQueue) take(seq Seq) (dropped []*call, found *call) {
	for c := q.head; c != nil; c = c.next {
		if c.seq != seq {
			continue
		}
		for d := q.head; d != c; d = d.next {
			dropped = append(dropped, d)
		}
		if q.head = c.next; q.head == nil {
			q.tail = nil
		}
		c.next = nil
		return dropped, c
	}
	return nil, nil
}

func (q *callQueue) remove(target *call) {
	var prev *call
	for c := q.head; c != nil; prev, c = c, c.next {
		if c != target {
			continue
		}
		if prev == nil {
			q.head = c.next
		} else {
			prev.next = c.next
		}
		if q.tail == c {
			q.tail = prev
		}
		c.next = nil
		return
	}
}

// NewTransport creates a Transport over port. portName is reported by the
// port resource. Interrupt handlers are passed to dispatch, which must run
// them on the goroutine issuing plugin commands, usually framework.Loop.Post.
// Handlers may call SendRecv, so dispatch must not run them inline.
func NewTransport(port io.ReadWriter, portName string, dispatch func(func())) *Transport {
	t := &Transport{
		ReplyTimeout: DefaultReplyTimeout,
		link:         New(port),
		portName:     portName,
		dispatch:     dispatch,
		handlers:     make(map[byte]hba.InterruptHandler),
		info: hba.Info{
			Name: PluginName,
			Desc: "serial link to the FPGA",
			Help: "port: the serial device\n",
			Resources: []*hba.Resource{
				hba.NewResource("port", hba.Readable|hba.Writable),
			},
		},
	}
	t.link.Handler = t
	t.link.Notifier = StateChangedFunc(t.stateChanged)
	return t
}

// Link returns the underlying link.
func (t *Transport) Link() *Link {
	return t.link
}

// Run implements framework.Runnable.
func (t *Transport) Run(ctx context.Context) error {
	return t.link.Run(ctx)
}

// WaitReady blocks until the link is synchronized.
func (t *Transport) WaitReady(ctx context.Context) error {
	return t.link.WaitReady(ctx)
}

func (t *Transport) stateChanged(ctx context.Context, state SyncState) {
	if t.linkLost(state) {
		glog.Warningf("%s: link lost, resyncing", t.portName)
	}
}

// linkLost records state and tells whether a synchronized link dropped.
func (t *Transport) linkLost(state SyncState) bool {
	lost := t.ready && !state.IsReady()
	t.ready = state.IsReady()
	return lost
}

// SendRecv implements hba.Sender.
func (t *Transport) SendRecv(pkt []byte) ([]byte, error) {
	c := &call{respCh: make(chan reply, 1)}
	frame := &Frame{Code: CodePacket, Data: pkt}
	t.callsLock.Lock()
	if err := t.link.Send(frame); err != nil {
		t.callsLock.Unlock()
		return nil, err
	}
	c.seq = frame.Seq
	t.calls.push(c)
	t.callsLock.Unlock()

	timeout := t.ReplyTimeout
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	select {
	case r := <-c.respCh:
		return r.data, r.err
	case <-time.After(timeout):
		t.callsLock.Lock()
		t.calls.remove(c)
		t.callsLock.Unlock()
		return nil, ErrNoReply
	}
}

// RegisterInterruptHandler implements hba.InterruptRegistrar.
func (t *Transport) RegisterInterruptHandler(coreID byte, h hba.InterruptHandler) {
	t.handlersLock.Lock()
	t.handlers[coreID] = h
	t.handlersLock.Unlock()
}

// HandleFrame implements FrameHandler.
func (t *Transport) HandleFrame(ctx context.Context, frame *Frame) {
	if frame.IsEvent() {
		if frame.Code == CodeInterrupt {
			t.interrupt(frame.Data)
		}
		return
	}
	if len(frame.Data) == 0 || !Seq(frame.Data[0]).IsValid() {
		glog.V(2).Infof("%s: malformed reply % x", t.portName, frame.Bytes())
		return
	}
	t.callsLock.Lock()
	dropped, c := t.calls.take(Seq(frame.Data[0]))
	t.callsLock.Unlock()
	for _, d := range dropped {
		d.respCh <- reply{err: ErrNoReply}
	}
	if c == nil {
		return
	}
	if frame.Code&CodeFailure != 0 {
		var code byte
		if len(frame.Data) > 1 {
			code = frame.Data[1]
		}
		c.respCh <- reply{err: &DeviceError{Code: code}}
		return
	}
	c.respCh <- reply{data: frame.Data[1:]}
}

func (t *Transport) interrupt(coreIDs []byte) {
	for _, id := range coreIDs {
		t.handlersLock.RLock()
		h := t.handlers[id]
		t.handlersLock.RUnlock()
		if h == nil {
			glog.V(2).Infof("%s: interrupt from core %d without handler", t.portName, id)
			continue
		}
		if t.dispatch == nil {
			glog.Warningf("%s: interrupt from core %d dropped, no dispatcher", t.portName, id)
			continue
		}
		t.dispatch(h.HandleInterrupt)
	}
}

// Info implements hba.Plugin.
func (t *Transport) Info() *hba.Info {
	return &t.info
}

// HandleCmd implements hba.Plugin.
func (t *Transport) HandleCmd(cmd hba.Cmd, rscID int, val string, buf []byte) int {
	if rscID != RscPort {
		return 0
	}
	switch cmd {
	case hba.CmdGet:
		return hba.Reply(buf, "%s\n", t.portName)
	case hba.CmdSet:
		// the port is fixed once opened, only the current name is accepted.
		if strings.TrimSpace(val) != t.portName {
			return hba.ReplyBadValue(buf, t.info.Resources[RscPort])
		}
	}
	return 0
}
