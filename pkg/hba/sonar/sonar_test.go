package sonar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/hba.go/pkg/hba"
	"github.com/robotalks/hba.go/pkg/hba/hbatest"
)

type testEnv struct {
	sonar  *Sonar
	sender *hbatest.Sender
	bcst   *hbatest.Recorder
}

func newTestEnv(t *testing.T) *testEnv {
	reg := hba.NewRegistry()
	env := &testEnv{sender: hbatest.NewSender(), bcst: &hbatest.Recorder{}}
	reg.Add(env.sender)
	s, err := New(reg, reg.Parent(), DefaultCoreID, env.bcst)
	require.NoError(t, err)
	env.sonar = s
	return env
}

func (e *testEnv) cmd(cmd hba.Cmd, rscID int, val string) string {
	buf := make([]byte, hba.MaxMsgLen)
	return string(buf[:e.sonar.HandleCmd(cmd, rscID, val, buf)])
}

func (e *testEnv) observe(rscIDs ...int) {
	for _, id := range rscIDs {
		e.sonar.Info().Resources[id].SetObserverKey(1)
	}
}

func (e *testEnv) interrupt(t *testing.T) {
	require.True(t, e.sender.Interrupt(DefaultCoreID))
}

func TestCtrl(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, "00\n", env.cmd(hba.CmdGet, RscCtrl, ""))

	env.sender.Ack()
	require.Empty(t, env.cmd(hba.CmdSet, RscCtrl, "3"))
	require.Equal(t, [][]byte{{0x05, RegCtrl, EnableSonar0 | EnableSonar1, 0}}, env.sender.Sent)
	require.Equal(t, "03\n", env.cmd(hba.CmdGet, RscCtrl, ""))

	require.Equal(t, "bad value for resource ctrl\n", env.cmd(hba.CmdSet, RscCtrl, "1ff"))
	require.Equal(t, "03\n", env.cmd(hba.CmdGet, RscCtrl, ""))
	require.Len(t, env.sender.Sent, 1)

	env.sender.Reply(0x00)
	require.Equal(t, "no response from resource ctrl\n", env.cmd(hba.CmdSet, RscCtrl, "1"))
	require.Equal(t, "01\n", env.cmd(hba.CmdGet, RscCtrl, ""))
}

func TestReadChannel(t *testing.T) {
	env := newTestEnv(t)
	env.sender.Reply(0x85, RegSonar0, 0x2a)
	require.Equal(t, "2a\n", env.cmd(hba.CmdGet, RscSonar0, ""))
	env.sender.Reply(0x85, RegSonar1, 0x07)
	require.Equal(t, "07\n", env.cmd(hba.CmdGet, RscSonar1, ""))
	require.Equal(t, [][]byte{
		{0x85, RegSonar0, 0, 0, 0},
		{0x85, RegSonar1, 0, 0, 0},
	}, env.sender.Sent)
	require.Equal(t, byte(0x2a), env.sonar.sonar0)
	require.Equal(t, byte(0x07), env.sonar.sonar1)
}

func TestReadChannelFailure(t *testing.T) {
	testCases := []struct {
		name   string
		script func(*hbatest.Sender)
	}{
		{"short", func(s *hbatest.Sender) { s.Reply(0x85, 1) }},
		{"long", func(s *hbatest.Sender) { s.Reply(0x85, 1, 2, 3) }},
		{"ack", func(s *hbatest.Sender) { s.Ack() }},
		{"link error", func(s *hbatest.Sender) { s.Fail(errors.New("timeout")) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.sonar.sonar0, env.sonar.sonar1 = 0x11, 0x22
			tc.script(env.sender)
			require.Equal(t, "bad value for resource sonar0\n", env.cmd(hba.CmdGet, RscSonar0, ""))
			tc.script(env.sender)
			require.Equal(t, "bad value for resource sonar1\n", env.cmd(hba.CmdGet, RscSonar1, ""))
			require.Equal(t, byte(0x11), env.sonar.sonar0)
			require.Equal(t, byte(0x22), env.sonar.sonar1)
		})
	}
}

func TestReadOnlyChannels(t *testing.T) {
	env := newTestEnv(t)
	require.Empty(t, env.cmd(hba.CmdSet, RscSonar0, "1"))
	require.Empty(t, env.cmd(hba.CmdSet, RscSonar1, "1"))
	require.Empty(t, env.cmd(hba.CmdCat, RscSonar0, ""))
	require.Empty(t, env.cmd(hba.CmdGet, 3, ""))
	require.Empty(t, env.sender.Sent)
}

func TestInterrupt(t *testing.T) {
	env := newTestEnv(t)
	env.sonar.sonar0, env.sonar.sonar1 = 0x05, 0x02
	env.observe(RscSonar0, RscSonar1)

	env.sender.Reply(0x95, RegSonar0, 0x05, 0x07)
	env.interrupt(t)
	require.Equal(t, [][]byte{{0x95, RegSonar0, 0, 0, 0, 0}}, env.sender.Sent)
	require.Equal(t, []hbatest.Broadcast{{Resource: "sonar1", Text: "7\n"}}, env.bcst.Broadcasts)
	require.Equal(t, byte(0x05), env.sonar.sonar0)
	require.Equal(t, byte(0x07), env.sonar.sonar1)
}

func TestInterruptObservers(t *testing.T) {
	env := newTestEnv(t)

	env.sender.Reply(0x95, RegSonar0, 0x10, 0x20)
	env.interrupt(t)
	require.Empty(t, env.bcst.Broadcasts)
	require.Equal(t, byte(0x10), env.sonar.sonar0)
	require.Equal(t, byte(0x20), env.sonar.sonar1)

	env.observe(RscSonar0)
	env.sender.Reply(0x95, RegSonar0, 0xab, 0x21)
	env.interrupt(t)
	require.Equal(t, []hbatest.Broadcast{{Resource: "sonar0", Text: "ab\n"}}, env.bcst.Broadcasts)
	require.Equal(t, byte(0x21), env.sonar.sonar1)

	env.observe(RscSonar1)
	env.sender.Reply(0x95, RegSonar0, 0xab, 0x21)
	env.interrupt(t)
	require.Len(t, env.bcst.Broadcasts, 1)

	env.sender.Reply(0x95, RegSonar0, 0x00, 0x00)
	env.interrupt(t)
	require.Equal(t, []hbatest.Broadcast{
		{Resource: "sonar0", Text: "ab\n"},
		{Resource: "sonar0", Text: "0\n"},
		{Resource: "sonar1", Text: "0\n"},
	}, env.bcst.Broadcasts)
}

func TestInterruptFailure(t *testing.T) {
	env := newTestEnv(t)
	env.sonar.sonar0, env.sonar.sonar1 = 0x05, 0x02
	env.observe(RscSonar0, RscSonar1)

	env.sender.Reply(0x95, RegSonar0, 0x06)
	env.interrupt(t)
	env.sender.Reply(0x95, RegSonar0, 0x06, 0x03, 0x00)
	env.interrupt(t)
	env.sender.Fail(errors.New("timeout"))
	env.interrupt(t)
	require.Empty(t, env.bcst.Broadcasts)
	require.Equal(t, byte(0x05), env.sonar.sonar0)
	require.Equal(t, byte(0x02), env.sonar.sonar1)

	env.sender.Reply(0x95, RegSonar0, 0x06, 0x02)
	env.interrupt(t)
	require.Equal(t, []hbatest.Broadcast{{Resource: "sonar0", Text: "6\n"}}, env.bcst.Broadcasts)
}

func TestWithoutInterrupts(t *testing.T) {
	reg := hba.NewRegistry()
	var sent [][]byte
	reg.Add(hbatest.NewPlainSender(func(pkt []byte) ([]byte, error) {
		sent = append(sent, pkt)
		return []byte{pkt[0], pkt[1], 0x33}, nil
	}))
	s, err := New(reg, 0, DefaultCoreID, nil)
	require.NoError(t, err)
	buf := make([]byte, hba.MaxMsgLen)
	require.Equal(t, "33\n", string(buf[:s.HandleCmd(hba.CmdGet, RscSonar1, "", buf)]))
	require.Len(t, sent, 1)

	s.Info().Resources[RscSonar0].SetObserverKey(1)
	sent = nil
	s.HandleInterrupt()
	require.Len(t, sent, 1)
	require.Zero(t, s.sonar0)
}

func TestNewWithoutSender(t *testing.T) {
	reg := hba.NewRegistry()
	_, err := New(reg, reg.Parent(), DefaultCoreID, nil)
	require.True(t, errors.Is(err, hba.ErrNoSlot))
	require.Empty(t, reg.Slots())
}
