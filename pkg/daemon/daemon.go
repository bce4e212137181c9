// Package daemon assembles the HBA daemon: the link to the FPGA, the
// peripheral plugins and the front ends serving them.
package daemon

import (
	"context"
	"io"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/hba.go/pkg/framework"
	"github.com/robotalks/hba.go/pkg/hba"
	"github.com/robotalks/hba.go/pkg/hba/emu"
	"github.com/robotalks/hba.go/pkg/hba/servo"
	"github.com/robotalks/hba.go/pkg/hba/sonar"
	"github.com/robotalks/hba.go/pkg/link"
	"github.com/robotalks/hba.go/pkg/ui"
	"github.com/robotalks/hba.go/pkg/ui/mqtt"
	"github.com/robotalks/hba.go/pkg/ui/tcp"
	"github.com/robotalks/hba.go/pkg/ui/ws"
)

// EmulatedPort is the port name reported by the emulated transport.
const EmulatedPort = "emu"

// Daemon is the assembled daemon.
type Daemon struct {
	Config    *Config
	Loop      *fx.Loop
	Registry  *hba.Registry
	Hub       *ui.Hub
	Server    *Server
	Transport *link.Transport
	Servo     *servo.Servo
	Sonar     *sonar.Sonar
	// FPGA is the emulator and Device its end of the link, both nil when a
	// serial port is used.
	FPGA   *emu.FPGA
	Device *link.Responder

	// Front ends, nil when disabled.
	TCP    *tcp.Server
	WS     *ws.Server
	Bridge *mqtt.Bridge

	closers []io.Closer
}

// NewDaemon creates the daemon from config. Front ends are added separately
// with AddFrontEnds.
func (c *Config) NewDaemon() (*Daemon, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	d := &Daemon{
		Config:   c,
		Loop:     fx.NewLoop("hbad"),
		Registry: hba.NewRegistry(),
		Hub:      ui.NewHub(),
	}
	d.Server = NewServer(d.Loop, d.Registry, d.Hub)

	if c.Emulate {
		d.Transport = d.emulate()
	} else {
		transport, port, err := link.NewSerialTransport(c.Port, c.Baud, d.Loop.Post)
		if err != nil {
			return nil, err
		}
		d.Transport = transport
		d.closers = append(d.closers, port)
	}
	d.Transport.ReplyTimeout = c.ReplyTimeout
	d.Registry.Add(d.Transport)
	d.Loop.AddRunnable(d.Transport)

	var err error
	if d.Servo, err = servo.New(d.Registry, d.Registry.Parent(), byte(c.ServoCoreID)); err != nil {
		d.Close()
		return nil, err
	}
	if d.Sonar, err = sonar.New(d.Registry, d.Registry.Parent(), byte(c.SonarCoreID), d.Hub); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// emulate connects the transport to an emulated FPGA over an in-memory
// link, with a sonar model producing measurements.
func (d *Daemon) emulate() *link.Transport {
	hostEnd, devEnd := net.Pipe()
	d.closers = append(d.closers, hostEnd, devEnd)
	d.FPGA = emu.New()
	d.Device = link.NewResponder(devEnd, d.FPGA)
	responder := d.Device
	d.FPGA.Notify = func(coreID byte) {
		if err := responder.Interrupt(coreID); err != nil {
			glog.Warningf("emu: interrupt %d: %v", coreID, err)
		}
	}
	// closing the device end unblocks both sides of the pipe on stop.
	d.Loop.AddRunnable(
		fx.NamedRun("emu-link", fx.RunFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, devEnd, func() error {
				return responder.Run(ctx)
			})
		})),
		emu.NewSonarModel(d.FPGA, byte(d.Config.SonarCoreID)),
	)
	return link.NewTransport(hostEnd, EmulatedPort, d.Loop.Post)
}

// WaitReady blocks until the link to the FPGA is synchronized at both ends.
func (d *Daemon) WaitReady(ctx context.Context) error {
	if err := d.Transport.WaitReady(ctx); err != nil {
		return err
	}
	if d.Device != nil {
		return d.Device.WaitReady(ctx)
	}
	return nil
}

// AddFrontEnds adds the consoles and the MQTT bridge enabled in config.
func (d *Daemon) AddFrontEnds() error {
	c := d.Config
	if c.Listen != "" {
		d.TCP = tcp.New(c.Listen, d.Server)
		if _, err := d.TCP.Listen(); err != nil {
			return err
		}
		d.Loop.AddRunnable(d.TCP)
	}
	if c.WSListen != "" {
		d.WS = ws.New(c.WSListen, d.Server)
		d.Loop.AddRunnable(d.WS)
	}
	if c.MQTTBrokerURL != "" {
		opts, prefix, err := mqtt.ClientOptionsFromURL(c.MQTTBrokerURL)
		if err != nil {
			return err
		}
		if opts.ClientID == "" {
			opts.SetClientID("hbad-" + c.ID)
		}
		d.Bridge = mqtt.NewBridge(mqtt.NewQueue(opts, prefix), d.Server, c.ID)
		d.Loop.AddRunnable(d.Bridge)
	}
	return nil
}

// Name implements framework.Named.
func (d *Daemon) Name() string {
	return d.Loop.Name()
}

// Run implements framework.Runnable.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.Close()
	return d.Loop.Run(ctx)
}

// Close releases the port.
func (d *Daemon) Close() error {
	var errs fx.AggregatedError
	for _, c := range d.closers {
		errs.Add(c.Close())
	}
	d.closers = nil
	return errs.Aggregate()
}
