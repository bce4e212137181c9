// Package hbatest provides a scripted packet sender for plugin tests.
package hbatest

import (
	"errors"

	"github.com/robotalks/hba.go/pkg/hba"
)

// ErrNoScript is returned when a packet arrives with no reply queued.
var ErrNoScript = errors.New("no scripted reply")

type reply struct {
	data []byte
	err  error
}

// Sender records sent packets and answers from a queue of scripted replies.
// It occupies a registry slot like a real transport.
type Sender struct {
	Sent [][]byte

	replies  []reply
	handlers map[byte]hba.InterruptHandler
	info     hba.Info
}

// NewSender creates a Sender.
func NewSender() *Sender {
	return &Sender{
		handlers: make(map[byte]hba.InterruptHandler),
		info:     hba.Info{Name: "hbatest", Desc: "scripted sender"},
	}
}

// Reply queues the bytes returned for the next packet.
func (s *Sender) Reply(data ...byte) *Sender {
	s.replies = append(s.replies, reply{data: data})
	return s
}

// Ack queues an ACK.
func (s *Sender) Ack() *Sender {
	return s.Reply(hba.ACK)
}

// Fail queues a transport error.
func (s *Sender) Fail(err error) *Sender {
	s.replies = append(s.replies, reply{err: err})
	return s
}

// SendRecv implements hba.Sender.
func (s *Sender) SendRecv(pkt []byte) ([]byte, error) {
	s.Sent = append(s.Sent, append([]byte(nil), pkt...))
	if len(s.replies) == 0 {
		return nil, ErrNoScript
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.data, r.err
}

// Pending is the number of unused replies.
func (s *Sender) Pending() int {
	return len(s.replies)
}

// RegisterInterruptHandler implements hba.InterruptRegistrar.
func (s *Sender) RegisterInterruptHandler(coreID byte, h hba.InterruptHandler) {
	s.handlers[coreID] = h
}

// Interrupt invokes the handler registered for coreID.
func (s *Sender) Interrupt(coreID byte) bool {
	h := s.handlers[coreID]
	if h == nil {
		return false
	}
	h.HandleInterrupt()
	return true
}

// Info implements hba.Plugin.
func (s *Sender) Info() *hba.Info {
	return &s.info
}

// HandleCmd implements hba.Plugin.
func (s *Sender) HandleCmd(hba.Cmd, int, string, []byte) int {
	return 0
}

// PlainSender sends packets but cannot deliver interrupts.
type PlainSender struct {
	hba.SendRecvFunc
	info hba.Info
}

// NewPlainSender wraps fn as a plugin.
func NewPlainSender(fn func([]byte) ([]byte, error)) *PlainSender {
	return &PlainSender{SendRecvFunc: fn, info: hba.Info{Name: "plain"}}
}

// Info implements hba.Plugin.
func (s *PlainSender) Info() *hba.Info {
	return &s.info
}

// HandleCmd implements hba.Plugin.
func (s *PlainSender) HandleCmd(hba.Cmd, int, string, []byte) int {
	return 0
}

// Recorder is a hba.Broadcaster remembering every broadcast.
type Recorder struct {
	Broadcasts []Broadcast
}

// Broadcast is one recorded broadcast.
type Broadcast struct {
	Resource string
	Text     string
}

// Broadcast implements hba.Broadcaster.
func (r *Recorder) Broadcast(rsc *hba.Resource, text []byte) {
	r.Broadcasts = append(r.Broadcasts, Broadcast{Resource: rsc.Name, Text: string(text)})
}
