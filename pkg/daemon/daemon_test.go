package daemon

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hba.go/pkg/hba"
	"github.com/robotalks/hba.go/pkg/hba/servo"
	"github.com/robotalks/hba.go/pkg/hba/sonar"
	"github.com/robotalks/hba.go/pkg/link"
	"github.com/robotalks/hba.go/pkg/ui"
	"github.com/robotalks/hba.go/pkg/ui/tcp"
)

type testEnv struct {
	t      *testing.T
	daemon *Daemon
	cancel func()
	errCh  chan error
}

func newTestEnv(t *testing.T, listen string) *testEnv {
	conf := NewConfig()
	conf.Emulate = true
	conf.Listen = listen
	conf.WSListen = ""
	conf.MQTTBrokerURL = ""
	d, err := conf.NewDaemon()
	require.NoError(t, err)
	require.NoError(t, d.AddFrontEnds())

	env := &testEnv{t: t, daemon: d, errCh: make(chan error, 1)}
	var ctx context.Context
	ctx, env.cancel = context.WithCancel(context.Background())
	go func() { env.errCh <- d.Run(ctx) }()

	readyCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, d.WaitReady(readyCtx))
	return env
}

func (e *testEnv) stop() {
	e.cancel()
	require.Equal(e.t, context.Canceled, <-e.errCh)
}

func (e *testEnv) ctx() (context.Context, func()) {
	return context.WithTimeout(context.Background(), time.Second)
}

func TestDaemonPlugins(t *testing.T) {
	env := newTestEnv(t, "")
	defer env.stop()
	d := env.daemon
	require.Nil(t, d.TCP)

	slots := d.Registry.Slots()
	require.Len(t, slots, 3)
	require.Equal(t, link.PluginName, slots[0].Name())
	require.Equal(t, servo.PluginName, slots[1].Name())
	require.Equal(t, sonar.PluginName, slots[2].Name())
	require.Equal(t, 0, d.Servo.Core().Parent)
	require.Equal(t, 0, d.Sonar.Core().Parent)

	ctx, cancel := env.ctx()
	defer cancel()
	srv := d.Server

	reply, err := srv.Get(ctx, servo.PluginName, "center")
	require.NoError(t, err)
	require.Equal(t, "80\n", reply)

	reply, err = srv.Set(ctx, servo.PluginName, "position", "3c")
	require.NoError(t, err)
	require.Empty(t, reply)
	require.Equal(t, byte(0x3c), d.FPGA.Peek(servo.DefaultCoreID, servo.RegPosition))
	reply, err = srv.Get(ctx, servo.PluginName, "position")
	require.NoError(t, err)
	require.Equal(t, "3c\n", reply)

	reply, err = srv.Set(ctx, servo.PluginName, "position", "fff")
	require.NoError(t, err)
	require.Equal(t, "bad value for resource position\n", reply)

	d.FPGA.Poke(sonar.DefaultCoreID, sonar.RegSonar0, 0x42)
	reply, err = srv.Get(ctx, sonar.PluginName, "sonar0")
	require.NoError(t, err)
	require.Equal(t, "42\n", reply)

	reply, err = srv.Get(ctx, link.PluginName, "port")
	require.NoError(t, err)
	require.Equal(t, EmulatedPort+"\n", reply)
	reply, err = srv.Set(ctx, link.PluginName, "port", "/dev/ttyUSB0")
	require.NoError(t, err)
	require.Equal(t, "bad value for resource port\n", reply)
}

func TestDaemonRequestErrors(t *testing.T) {
	env := newTestEnv(t, "")
	defer env.stop()
	ctx, cancel := env.ctx()
	defer cancel()
	srv := env.daemon.Server

	testCases := []struct {
		name string
		fn   func() error
		err  error
		msg  string
	}{
		{"no plugin", func() error {
			_, err := srv.Get(ctx, "hba_motor", "speed")
			return err
		}, ui.ErrNoPlugin, "hba_motor: no such plugin"},
		{"no resource", func() error {
			_, err := srv.Set(ctx, servo.PluginName, "speed", "1")
			return err
		}, ui.ErrNoResource, "hba_servo/speed: no such resource"},
		{"set read-only", func() error {
			_, err := srv.Set(ctx, sonar.PluginName, "sonar0", "1")
			return err
		}, ui.ErrDenied, "hba_sonar/sonar0: operation not supported by resource"},
		{"cat not broadcast", func() error {
			_, err := srv.Cat(ctx, servo.PluginName, "center")
			return err
		}, ui.ErrDenied, "hba_servo/center: operation not supported by resource"},
		{"list unknown", func() error {
			_, err := srv.List(ctx, "hba_motor")
			return err
		}, ui.ErrNoPlugin, "hba_motor: no such plugin"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.fn()
			require.True(t, errors.Is(err, tc.err))
			require.EqualError(t, err, tc.msg)
		})
	}
}

func TestDaemonList(t *testing.T) {
	env := newTestEnv(t, "")
	defer env.stop()
	ctx, cancel := env.ctx()
	defer cancel()

	plugins, err := env.daemon.Server.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, plugins, 3)
	require.Equal(t, ui.PluginInfo{
		Slot: 2,
		Name: sonar.PluginName,
		Desc: plugins[2].Desc,
		Resources: []ui.ResourceInfo{
			{Name: "ctrl", Caps: hba.Readable | hba.Writable},
			{Name: "sonar0", Caps: hba.Readable | hba.Broadcastable},
			{Name: "sonar1", Caps: hba.Readable | hba.Broadcastable},
		},
	}, plugins[2])

	plugins, err = env.daemon.Server.List(ctx, servo.PluginName)
	require.NoError(t, err)
	require.Len(t, plugins, 1)
	require.Equal(t, 1, plugins[0].Slot)
}

func TestDaemonCat(t *testing.T) {
	env := newTestEnv(t, "")
	defer env.stop()
	d := env.daemon
	ctx, cancel := env.ctx()
	defer cancel()

	sub, err := d.Server.Cat(ctx, sonar.PluginName, "sonar1")
	require.NoError(t, err)
	defer sub.Close()

	d.FPGA.Poke(sonar.DefaultCoreID, sonar.RegSonar0, 0x11)
	d.FPGA.Poke(sonar.DefaultCoreID, sonar.RegSonar1, 0x5a)
	d.FPGA.Raise(sonar.DefaultCoreID)
	select {
	case text := <-sub.C():
		require.Equal(t, "5a\n", string(text))
	case <-time.After(time.Second):
		t.Fatal("broadcast timeout")
	}
	reply, err := d.Server.Get(ctx, sonar.PluginName, "sonar0")
	require.NoError(t, err)
	require.Equal(t, "11\n", reply)
}

func TestDaemonInterruptBeforeSync(t *testing.T) {
	conf := NewConfig()
	conf.Emulate = true
	conf.Listen = ""
	conf.WSListen = ""
	conf.MQTTBrokerURL = ""
	d, err := conf.NewDaemon()
	require.NoError(t, err)
	sub := d.Hub.Subscribe(d.Sonar.Info().Resources[sonar.RscSonar1], 4)
	defer sub.Close()

	d.FPGA.Poke(sonar.DefaultCoreID, sonar.RegSonar1, 0x5a)
	d.FPGA.Raise(sonar.DefaultCoreID)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()
	select {
	case text := <-sub.C():
		require.Equal(t, "5a\n", string(text))
	case <-time.After(time.Second):
		t.Fatal("broadcast timeout")
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}

func TestDaemonTCP(t *testing.T) {
	env := newTestEnv(t, "127.0.0.1:0")
	defer env.stop()
	addr, err := env.daemon.TCP.Listen()
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	reader := bufio.NewReader(conn)
	do := func(line string) string {
		conn.SetDeadline(time.Now().Add(time.Second))
		_, err := conn.Write([]byte(line + "\n"))
		require.NoError(t, err)
		reply, err := reader.ReadString(tcp.Prompt[0])
		require.NoError(t, err)
		return reply[:len(reply)-1]
	}
	require.Equal(t, "", do("hbaset hba_servo center 70"))
	require.Equal(t, "70\n", do("hbaget hba_servo center"))
	require.Equal(t, "", do("hbaset serial_fpga port emu"))
	require.Equal(t, "ERROR: hba_sonar/sonar0: operation not supported by resource\n",
		do("hbaset hba_sonar sonar0 1"))
}

func TestDaemonRunFailure(t *testing.T) {
	conf := NewConfig()
	conf.Emulate = true
	conf.Listen = ""
	d, err := conf.NewDaemon()
	require.NoError(t, err)
	d.Loop.AddRunnable(failingRunnable{})
	err = d.Run(context.Background())
	require.EqualError(t, err, "failed")
}

type failingRunnable struct{}

func (failingRunnable) Run(context.Context) error {
	return errors.New("failed")
}
