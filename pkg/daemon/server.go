package daemon

import (
	"context"

	fx "github.com/robotalks/hba.go/pkg/framework"
	"github.com/robotalks/hba.go/pkg/hba"
	"github.com/robotalks/hba.go/pkg/ui"
)

// Server implements ui.Server over a registry. Plugin commands run on the
// loop.
type Server struct {
	// QueueLen is the broadcast queue length of Cat subscriptions.
	QueueLen int

	loop *fx.Loop
	reg  *hba.Registry
	hub  *ui.Hub
}

// NewServer creates a Server.
func NewServer(loop *fx.Loop, reg *hba.Registry, hub *ui.Hub) *Server {
	return &Server{QueueLen: ui.DefaultQueueLen, loop: loop, reg: reg, hub: hub}
}

func (s *Server) resolve(plugin, rsc string, caps hba.Capability) (*hba.Slot, int, *hba.Resource, error) {
	slot := s.reg.Lookup(plugin)
	if slot == nil {
		return nil, -1, nil, &ui.RequestError{Path: plugin, Err: ui.ErrNoPlugin}
	}
	id, r := slot.Resource(rsc)
	if r == nil {
		return nil, -1, nil, &ui.RequestError{Path: plugin + "/" + rsc, Err: ui.ErrNoResource}
	}
	if !r.Can(caps) {
		return nil, -1, nil, &ui.RequestError{Path: r.Path(), Err: ui.ErrDenied}
	}
	return slot, id, r, nil
}

func (s *Server) exec(ctx context.Context, cmd hba.Cmd, plugin, rsc, val string, caps hba.Capability) (string, error) {
	slot, id, _, err := s.resolve(plugin, rsc, caps)
	if err != nil {
		return "", err
	}
	buf := make([]byte, hba.MaxMsgLen)
	var n int
	if err := s.loop.Call(ctx, func() {
		n = slot.Plugin.HandleCmd(cmd, id, val, buf)
	}); err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// Get implements ui.Server.
func (s *Server) Get(ctx context.Context, plugin, rsc string) (string, error) {
	return s.exec(ctx, hba.CmdGet, plugin, rsc, "", hba.Readable)
}

// Set implements ui.Server.
func (s *Server) Set(ctx context.Context, plugin, rsc, val string) (string, error) {
	return s.exec(ctx, hba.CmdSet, plugin, rsc, val, hba.Writable)
}

// Cat implements ui.Server.
func (s *Server) Cat(ctx context.Context, plugin, rsc string) (*ui.Subscription, error) {
	_, _, r, err := s.resolve(plugin, rsc, hba.Broadcastable)
	if err != nil {
		return nil, err
	}
	return s.hub.Subscribe(r, s.QueueLen), nil
}

// List implements ui.Server. All plugins are listed when plugin is empty.
func (s *Server) List(ctx context.Context, plugin string) ([]ui.PluginInfo, error) {
	var slots []*hba.Slot
	if plugin == "" {
		slots = s.reg.Slots()
	} else if slot := s.reg.Lookup(plugin); slot != nil {
		slots = []*hba.Slot{slot}
	} else {
		return nil, &ui.RequestError{Path: plugin, Err: ui.ErrNoPlugin}
	}
	plugins := make([]ui.PluginInfo, 0, len(slots))
	for _, slot := range slots {
		info := slot.Plugin.Info()
		p := ui.PluginInfo{Slot: slot.Index, Name: info.Name, Desc: info.Desc}
		for _, r := range info.Resources {
			p.Resources = append(p.Resources, ui.ResourceInfo{Name: r.Name, Caps: r.Caps})
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}
