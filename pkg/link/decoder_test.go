package link

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type feedStep struct {
	in     []byte
	expect Step
	final  Step
}

type script struct {
	steps []feedStep
}

func newScript() *script {
	return &script{}
}

func (s *script) feed(state SyncState, in ...byte) *script {
	st := feedStep{in: in, expect: Step{State: state}}
	st.final = st.expect
	s.steps = append(s.steps, st)
	return s
}

func (s *script) syncing(in ...byte) *script {
	return s.feed(SyncStateSyncing|SyncStateReceiving, in...)
}

func (s *script) receiving(in ...byte) *script {
	return s.feed(SyncStateReady|SyncStateReceiving, in...)
}

func (s *script) expire() *script {
	s.steps = append(s.steps, feedStep{})
	return s
}

func (s *script) then(st Step) *script {
	s.steps[len(s.steps)-1].final = st
	return s
}

func (s *script) ready() *script {
	return s.then(Step{State: SyncStateReady})
}

func (s *script) readyWithAck() *script {
	return s.then(Step{Sync: syncACK, State: SyncStateReady})
}

func (s *script) resync() *script {
	return s.then(Step{Sync: syncREQ, State: SyncStateSyncing})
}

func (s *script) frame(seq, code byte, data ...byte) *script {
	return s.then(Step{State: SyncStateReady, Frame: &Frame{Seq: Seq(seq), Code: code, Data: data}})
}

func TestDecoder(t *testing.T) {
	testCases := []struct {
		name   string
		script *script
	}{
		{
			"sync and receive",
			newScript().
				syncing(syncACK, 1).ready().
				receiving(1, 0x02).frame(1, CodePacket).
				receiving(2, 0x72, 0).frame(2, CodePacket).
				receiving(3, 0x92, 0x05).frame(3, CodeInterrupt, 5).
				receiving(4, 0x72, 0x08, 1, 2, 3, 4, 5, 6, 7, 8).frame(4, CodePacket, 1, 2, 3, 4, 5, 6, 7, 8),
		},
		{
			"expire while syncing",
			newScript().
				expire().resync().
				syncing(syncACK).
				expire().resync(),
		},
		{
			"garbage before sync",
			newScript().
				feed(SyncStateSyncing, 1, 2, 3, 0x80, 0xf0, 0xf1).
				syncing(syncACK, 1).ready(),
		},
		{
			"sync requested by peer",
			newScript().
				syncing(syncREQ, 1).readyWithAck(),
		},
		{
			"sync request with invalid seq",
			newScript().
				syncing(syncREQ, syncREQ).resync().
				syncing(syncACK, 1).ready(),
		},
		{
			"peer resyncs",
			newScript().
				syncing(syncACK, 1).ready().
				syncing(syncREQ, 7).readyWithAck().
				receiving(7, 0x02).frame(7, CodePacket),
		},
		{
			"peer resyncs with invalid seq",
			newScript().
				syncing(syncACK, 1).ready().
				syncing(syncREQ, syncACK).resync().
				syncing(syncACK, 1).ready(),
		},
		{
			"ack with invalid seq",
			newScript().
				syncing(syncACK, syncREQ).resync().
				syncing(syncACK, 1).ready(),
		},
		{
			"ack confirms seq",
			newScript().
				syncing(syncACK, 1).ready().
				receiving(syncACK, 1).ready().
				receiving(1, 0x02).frame(1, CodePacket),
		},
		{
			"ack with wrong seq",
			newScript().
				syncing(syncACK, 1).ready().
				receiving(syncACK, 2).resync().
				syncing(syncACK, 2).ready().
				receiving(2, 0x02).frame(2, CodePacket),
		},
		{
			"out of sequence",
			newScript().
				syncing(syncACK, 1).ready().
				receiving(1, 0x02).frame(1, CodePacket).
				syncing(1).resync().
				feed(SyncStateSyncing, 0x92, 3).
				syncing(syncACK, 3).ready(),
		},
		{
			"length too large",
			newScript().
				syncing(syncACK, 1).ready().
				receiving(1, 0x70, 0x80).resync().
				feed(SyncStateSyncing, 1, 2, 3).
				syncing(syncACK, 1).ready(),
		},
		{
			"expire while receiving",
			newScript().
				syncing(syncACK, 1).ready().
				receiving(1, 0x32, 1).
				expire().resync(),
		},
		{
			"expire when idle",
			newScript().
				syncing(syncACK, 1).ready().
				expire().ready(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var d Decoder
			for n, st := range tc.script.steps {
				var step Step
				if len(st.in) == 0 {
					step = d.Expire()
				} else {
					for i, b := range st.in {
						step = d.Feed(b)
						if i+1 < len(st.in) {
							require.Equalf(t, st.expect, step, "step[%d][%d]", n, i)
						}
					}
				}
				require.Equalf(t, st.final, step, "step[%d] final", n)
			}
		})
	}
}

func TestDecoderReset(t *testing.T) {
	var d Decoder
	d.Feed(syncACK)
	d.Feed(1)
	require.Equal(t, SyncStateReady, d.State())
	step := d.Reset()
	require.Equal(t, syncREQ, step.Sync)
	require.Equal(t, SyncStateSyncing, step.State)
	require.Nil(t, step.Frame)
}

func TestSyncState(t *testing.T) {
	require.False(t, SyncStateSyncing.IsReady())
	require.False(t, SyncStateSyncing.IsReceiving())
	require.True(t, SyncStateReady.IsReady())
	require.False(t, SyncStateReady.IsReceiving())
	require.False(t, SyncStateReceiving.IsReady())
	require.True(t, SyncStateReceiving.IsReceiving())
	require.True(t, (SyncStateReady | SyncStateReceiving).IsReady())
	require.True(t, (SyncStateReady | SyncStateReceiving).IsReceiving())
	require.Equal(t, "ready", SyncStateReady.String())
	require.Equal(t, "invalid", SyncState(7).String())
}

func TestStepTimer(t *testing.T) {
	testCases := []struct {
		state  SyncState
		sync   byte
		action TimerAction
	}{
		{SyncStateSyncing, 0, TimerNoChange},
		{SyncStateSyncing, syncACK, TimerNoChange},
		{SyncStateSyncing, syncREQ, TimerRestart},
		{SyncStateReceiving, 0, TimerRestart},
		{SyncStateReady | SyncStateReceiving, 0, TimerRestart},
		{SyncStateReady, 0, TimerStop},
		{SyncStateReady, syncACK, TimerStop},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%x %x", tc.state, tc.sync), func(t *testing.T) {
			require.Equal(t, tc.action, Step{Sync: tc.sync, State: tc.state}.Timer())
		})
	}
}
