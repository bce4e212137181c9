package link

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// FrameHandler is called for every frame received.
type FrameHandler interface {
	HandleFrame(context.Context, *Frame)
}

// HandleFrameFunc is the func form of FrameHandler.
type HandleFrameFunc func(context.Context, *Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}

// StateNotifier is called when the sync state changes.
type StateNotifier interface {
	StateChanged(context.Context, SyncState)
}

// StateChangedFunc is the func form of StateNotifier.
type StateChangedFunc func(context.Context, SyncState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state SyncState) {
	f(ctx, state)
}

// DefaultSyncTimeout is the time a sync sequence or a frame may take.
const DefaultSyncTimeout = 100 * time.Millisecond

// Link exchanges frames over a byte stream.
type Link struct {
	Port     io.ReadWriter
	Handler  FrameHandler
	Notifier StateNotifier
	Timeout  time.Duration
	// IdleRead is set when Port returns no data (or io.EOF) on a read
	// timeout instead of blocking, as serial ports opened with a read
	// timeout do.
	IdleRead bool

	seq   Seq
	state SyncState
	// stateCh is closed on the next state change.
	stateCh chan struct{}
	lock    sync.RWMutex
	// writeLock orders writes to Port, lock is never held across a write.
	writeLock sync.Mutex

	decoder Decoder
	timer   <-chan time.Time
}

// New creates a Link over port.
func New(port io.ReadWriter) *Link {
	return &Link{
		Port:    port,
		Timeout: DefaultSyncTimeout,
		seq:     NewSeq(),
	}
}

// State reports the sync state.
func (l *Link) State() SyncState {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.state
}

// WaitReady blocks until the link is synchronized.
func (l *Link) WaitReady(ctx context.Context) error {
	for {
		l.lock.Lock()
		if l.stateCh == nil {
			l.stateCh = make(chan struct{})
		}
		ready, ch := l.state.IsReady(), l.stateCh
		l.lock.Unlock()
		if ready {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

// Send numbers and writes a frame. It fails with ErrNotReady until the link
// is synchronized.
func (l *Link) Send(frame *Frame) error {
	if len(frame.Data) > MaxData {
		return ErrTooLarge
	}
	l.writeLock.Lock()
	defer l.writeLock.Unlock()
	l.lock.RLock()
	ready, seq := l.state.IsReady(), l.seq
	l.lock.RUnlock()
	if !ready {
		return ErrNotReady
	}
	frame.Seq = seq
	if _, err := frame.WriteTo(l.Port); err != nil {
		return err
	}
	l.lock.Lock()
	l.seq = seq.Next()
	l.lock.Unlock()
	return nil
}

// Run reads the port until ctx is done or the port fails. Port errors
// after ctx is done are reported as ctx.Err().
func (l *Link) Run(ctx context.Context) error {
	err := l.run(ctx)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (l *Link) run(ctx context.Context) error {
	// the peer may be writing its own sync request, keep reading while
	// ours is written.
	dataCh, errCh := make(chan []byte, 16), make(chan error, 1)
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(readCtx, dataCh, errCh)

	if err := l.apply(ctx, l.decoder.Reset()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-l.timer:
			if err := l.apply(ctx, l.decoder.Expire()); err != nil {
				return err
			}
		case data := <-dataCh:
			for _, b := range data {
				if err := l.apply(ctx, l.decoder.Feed(b)); err != nil {
					return err
				}
			}
		}
	}
}

func (l *Link) readLoop(ctx context.Context, dataCh chan<- []byte, errCh chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := l.Port.Read(buf)
		if n > 0 {
			select {
			case dataCh <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return
			}
		}
		if err == io.EOF && l.IdleRead {
			err = nil
		}
		if err != nil {
			errCh <- err
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (l *Link) apply(ctx context.Context, step Step) (err error) {
	var notifier StateNotifier
	l.lock.Lock()
	changed := l.state != step.State
	if changed {
		l.state = step.State
		if l.stateCh != nil {
			close(l.stateCh)
			l.stateCh = nil
		}
		notifier = l.Notifier
	}
	l.lock.Unlock()
	if step.Sync != 0 {
		// seq only changes under writeLock.
		l.writeLock.Lock()
		_, err = l.Port.Write([]byte{step.Sync, byte(l.seq)})
		l.writeLock.Unlock()
		if err != nil {
			return
		}
	}

	switch step.Timer() {
	case TimerRestart:
		l.timer = time.After(l.timeout())
	case TimerStop:
		l.timer = nil
	}

	if changed {
		glog.V(2).Infof("link %s", step.State)
		if notifier != nil {
			notifier.StateChanged(ctx, step.State)
		}
	}
	if step.Frame != nil && l.Handler != nil {
		l.Handler.HandleFrame(ctx, step.Frame)
	}
	return
}

func (l *Link) timeout() time.Duration {
	if l.Timeout > 0 {
		return l.Timeout
	}
	return DefaultSyncTimeout
}
