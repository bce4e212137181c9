package framework

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Loop executes posted callbacks one at a time on a single goroutine.
// Everything touching plugin state runs here.
type Loop struct {
	name    string
	runners []Runnable

	calls callList
	lock  sync.Mutex

	wakeUpCh chan struct{}
}

type callList struct {
	head *callItem
	tail *callItem
}

type callItem struct {
	fn   func()
	next *callItem
}

func (l *callList) append(item *callItem) {
	if l.head == nil {
		l.head = item
	} else {
		l.tail.next = item
	}
	l.tail = item
}

func (l *callList) splice(src *callList) {
	l.head, l.tail, src.head, src.tail = src.head, src.tail, nil, nil
}

var (
	loopCtxKey = &Loop{}
)

// LoopFrom gets the Loop which runs the Runnables started by it.
func LoopFrom(ctx context.Context) *Loop {
	l, _ := ctx.Value(loopCtxKey).(*Loop)
	return l
}

// NewLoop creates a Loop.
func NewLoop(name string) *Loop {
	return &Loop{name: name, wakeUpCh: make(chan struct{}, 1)}
}

// Name implements Named.
func (l *Loop) Name() string {
	return l.name
}

// AddRunnable adds Runnables started and stopped together with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Post queues fn for execution on the loop. It never blocks.
func (l *Loop) Post(fn func()) {
	l.lock.Lock()
	l.calls.append(&callItem{fn: fn})
	l.lock.Unlock()
	l.TriggerNext()
}

// Call runs fn on the loop and waits until it returns. When ctx is done
// first, fn still runs later but the result is no longer awaited.
// Call must not be used from inside the loop.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	doneCh := make(chan struct{})
	l.Post(func() {
		fn()
		close(doneCh)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-doneCh:
		return nil
	}
}

// TriggerNext wakes up the loop.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// Run implements Runnable. The Runnables added to the loop run with a
// context carrying the loop. When one of them fails, all are stopped and
// Run returns the error.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(context.WithValue(ctx, loopCtxKey, l))
	runner.StopOnError = true
	runner.Go(l.runners...)
	for {
		select {
		case <-runner.Context.Done():
			glog.V(2).Infof("loop %s stopping", l.name)
			if err := runner.Wait(); err != nil {
				return err
			}
			return ctx.Err()
		case <-l.wakeUpCh:
			l.runIteration()
		}
	}
}

func (l *Loop) runIteration() {
	var calls callList
	l.lock.Lock()
	calls.splice(&l.calls)
	l.lock.Unlock()
	for item := calls.head; item != nil; item = item.next {
		item.fn()
	}
}
