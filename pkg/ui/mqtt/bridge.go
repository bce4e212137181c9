package mqtt

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
	"github.com/robotalks/hba.go/pkg/ui"
	"github.com/robotalks/hba.go/pkg/ui/pb"
)

// SetSuffix is appended to a resource topic to write the resource.
const SetSuffix = "/set"

// DefaultTimeout limits a write received from the broker.
const DefaultTimeout = time.Second

// Bridge publishes the broadcasts of every broadcastable resource as
// pb.ResourceValue to <prefix><plugin>/<resource>, and writes hex values
// received on <prefix><plugin>/<resource>/set.
type Bridge struct {
	Queue   *Queue
	Backend ui.Server
	Daemon  string
	Timeout time.Duration
}

// NewBridge creates a Bridge.
func NewBridge(q *Queue, backend ui.Server, daemon string) *Bridge {
	return &Bridge{Queue: q, Backend: backend, Daemon: daemon, Timeout: DefaultTimeout}
}

// Name implements framework.Named.
func (b *Bridge) Name() string {
	return "mqtt " + b.Queue.TopicPrefix
}

// Run implements framework.Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	token := b.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	defer b.Queue.Close()

	plugins, err := b.Backend.List(ctx, "")
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var subs []*ui.Subscription
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
		wg.Wait()
	}()
	for _, p := range plugins {
		for _, r := range p.Resources {
			if r.Caps&hba.Broadcastable == 0 {
				continue
			}
			sub, err := b.Backend.Cat(ctx, p.Name, r.Name)
			if err != nil {
				return err
			}
			subs = append(subs, sub)
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.forward(sub)
			}()
		}
	}

	setSub := b.Queue.Sub("+/+"+SetSuffix, func(topic string, payload []byte) {
		b.set(ctx, topic, payload)
	})
	defer setSub.Close()
	if setSub.Token.Wait(); setSub.Token.Error() != nil {
		return setSub.Token.Error()
	}

	<-ctx.Done()
	return ctx.Err()
}

func (b *Bridge) forward(sub *ui.Subscription) {
	rsc := sub.Resource()
	for text := range sub.C() {
		msg := pb.NewResourceValue(rsc, text)
		msg.Daemon = b.Daemon
		data, err := msg.Encode()
		if err != nil {
			glog.Errorf("encode %s error: %v", rsc.Path(), err)
			continue
		}
		b.Queue.Pub(rsc.Path(), data)
	}
}

func (b *Bridge) set(ctx context.Context, topic string, payload []byte) {
	names := strings.Split(strings.TrimSuffix(topic, SetSuffix), "/")
	if len(names) != 2 {
		return
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	reply, err := b.Backend.Set(ctx, names[0], names[1], string(payload))
	if err != nil {
		glog.Warningf("mqtt set %s: %v", topic, err)
		return
	}
	if reply != "" {
		glog.Warningf("mqtt set %s: %s", topic, strings.TrimSpace(reply))
	}
}
