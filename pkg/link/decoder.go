package link

// SyncState tells how far the link is synchronized.
type SyncState int

const (
	// SyncStateSyncing means the stream is not synchronized.
	SyncStateSyncing SyncState = 0
	// SyncStateReady means frames can be exchanged.
	SyncStateReady SyncState = 0x01
	// SyncStateReceiving means a sync sequence or a frame is half received.
	SyncStateReceiving SyncState = 0x02
)

// IsReady tells whether frames can be exchanged.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving tells whether a sync sequence or a frame is half received.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

func (s SyncState) String() string {
	switch s {
	case SyncStateSyncing:
		return "syncing"
	case SyncStateReady:
		return "ready"
	case SyncStateReceiving:
		return "syncing (receiving)"
	case SyncStateReady | SyncStateReceiving:
		return "ready (receiving)"
	}
	return "invalid"
}

// TimerAction tells what to do with the resync timer after a Step.
type TimerAction int

const (
	// TimerNoChange keeps the timer as is.
	TimerNoChange TimerAction = iota
	// TimerRestart (re)arms the timer.
	TimerRestart
	// TimerStop cancels the timer.
	TimerStop
)

// Step is the outcome of feeding the decoder.
type Step struct {
	// Sync is a sync byte to send to the peer, or 0.
	Sync  byte
	State SyncState
	// Frame is a completely received frame.
	Frame *Frame
}

// Timer decides what to do with the resync timer.
func (s Step) Timer() TimerAction {
	switch {
	case s.State.IsReceiving(), s.Sync == syncREQ:
		return TimerRestart
	case s.State.IsReady():
		return TimerStop
	}
	return TimerNoChange
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type decodeState int

const (
	awaitSync     decodeState = iota // sync req sent
	awaitReqSeq                      // got sync req
	awaitAckSeq                      // got sync ack while syncing
	awaitSeq                         // synchronized, idle
	awaitCheckSeq                    // got sync ack while synchronized
	awaitCode
	awaitLen
	awaitData
)

// Decoder turns received bytes into frames and sync actions.
// The zero value is a decoder which has just requested a sync.
type Decoder struct {
	peerSeq Seq
	state   decodeState
	frame   *Frame
	filled  int
}

// State reports the sync state.
func (d *Decoder) State() SyncState {
	switch {
	case d.state == awaitSync:
		return SyncStateSyncing
	case d.state == awaitSeq:
		return SyncStateReady
	case d.state > awaitSeq:
		return SyncStateReady | SyncStateReceiving
	}
	return SyncStateSyncing | SyncStateReceiving
}

// Reset drops any partial frame and requests a sync.
func (d *Decoder) Reset() Step {
	d.frame = nil
	return d.step(d.resync())
}

// Feed consumes one received byte.
func (d *Decoder) Feed(b byte) Step {
	return d.step(d.feed(b))
}

// Expire is called when the resync timer fires.
func (d *Decoder) Expire() Step {
	if d.state == awaitSeq {
		return d.step(0, nil)
	}
	return d.step(d.resync())
}

func (d *Decoder) step(sync byte, frame *Frame) Step {
	return Step{Sync: sync, State: d.State(), Frame: frame}
}

func (d *Decoder) feed(b byte) (byte, *Frame) {
	switch d.state {
	case awaitSync:
		if b == syncREQ {
			d.state = awaitReqSeq
		} else if b == syncACK {
			d.state = awaitAckSeq
		}
	case awaitReqSeq, awaitAckSeq:
		seq := Seq(b)
		if !seq.IsValid() {
			return d.resync()
		}
		answer := d.state == awaitReqSeq
		d.peerSeq, d.state = seq, awaitSeq
		if answer {
			return syncACK, nil
		}
	case awaitSeq:
		switch {
		case b == syncREQ:
			d.state = awaitReqSeq
		case b == syncACK:
			d.state = awaitCheckSeq
		case Seq(b) == d.peerSeq:
			d.frame = &Frame{Seq: d.peerSeq}
			d.peerSeq = d.peerSeq.Next()
			d.state = awaitCode
		default:
			return d.resync()
		}
	case awaitCheckSeq:
		if Seq(b) != d.peerSeq {
			return d.resync()
		}
		d.state = awaitSeq
	case awaitCode:
		d.frame.Code = b & codeMask
		n := int(b>>4) & inlineLen
		if n == inlineLen {
			d.state = awaitLen
			return 0, nil
		}
		return d.expectData(n)
	case awaitLen:
		if b > MaxData {
			return d.resync()
		}
		return d.expectData(int(b))
	case awaitData:
		d.frame.Data[d.filled] = b
		if d.filled++; d.filled == len(d.frame.Data) {
			return d.complete()
		}
	}
	return 0, nil
}

func (d *Decoder) expectData(n int) (byte, *Frame) {
	if n == 0 {
		return d.complete()
	}
	d.frame.Data, d.filled = make([]byte, n), 0
	d.state = awaitData
	return 0, nil
}

func (d *Decoder) resync() (byte, *Frame) {
	d.state = awaitSync
	return syncREQ, nil
}

func (d *Decoder) complete() (byte, *Frame) {
	frame := d.frame
	d.frame, d.state = nil, awaitSeq
	return 0, frame
}
