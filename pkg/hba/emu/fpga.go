// Package emu emulates the register file of an HBA FPGA. It answers the
// register packets like the hardware does and lets models of the peripheral
// cores change registers and raise interrupts.
package emu

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
)

// PluginName is the registry name of the emulator when used as a plugin.
const PluginName = "emu_fpga"

// RegsPerCore is the number of registers addressable in a core.
const RegsPerCore = 256

// FPGA is an emulated register file.
type FPGA struct {
	// Dispatch runs interrupt handlers. They run synchronously in Raise
	// when it is nil.
	Dispatch func(func())
	// Notify, when set, receives raised interrupts instead of the handlers
	// registered locally. It forwards them over a link.
	Notify func(coreID byte)

	regs     [hba.MaxCoreID + 1][RegsPerCore]byte
	handlers map[byte]hba.InterruptHandler
	lock     sync.Mutex
	info     hba.Info
}

// New creates an FPGA with all registers cleared.
func New() *FPGA {
	return &FPGA{
		handlers: make(map[byte]hba.InterruptHandler),
		info:     hba.Info{Name: PluginName, Desc: "emulated FPGA"},
	}
}

// Peek reads a register.
func (f *FPGA) Peek(coreID, reg byte) byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.regs[coreID&hba.MaxCoreID][reg]
}

// Poke writes a register.
func (f *FPGA) Poke(coreID, reg, val byte) {
	f.lock.Lock()
	f.regs[coreID&hba.MaxCoreID][reg] = val
	f.lock.Unlock()
}

// SendRecv implements hba.Sender. Malformed packets get no answer.
func (f *FPGA) SendRecv(pkt []byte) ([]byte, error) {
	if len(pkt) < 2 {
		return nil, nil
	}
	op, count, coreID := hba.DecodeHeader(pkt[0])
	reg := int(pkt[1])
	if reg+count > RegsPerCore {
		return nil, nil
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	regs := f.regs[coreID][reg : reg+count]
	switch op {
	case hba.OpWrite:
		if len(pkt) != count+3 {
			return nil, nil
		}
		copy(regs, pkt[2:2+count])
		return []byte{hba.ACK}, nil
	default:
		if len(pkt) != count+4 {
			return nil, nil
		}
		return append([]byte{pkt[0], pkt[1]}, regs...), nil
	}
}

// RegisterInterruptHandler implements hba.InterruptRegistrar.
func (f *FPGA) RegisterInterruptHandler(coreID byte, h hba.InterruptHandler) {
	f.lock.Lock()
	f.handlers[coreID] = h
	f.lock.Unlock()
}

// Raise signals a pending interrupt of a core.
func (f *FPGA) Raise(coreID byte) {
	if f.Notify != nil {
		f.Notify(coreID)
		return
	}
	f.lock.Lock()
	h := f.handlers[coreID]
	f.lock.Unlock()
	if h == nil {
		glog.V(4).Infof("emu: interrupt from core %d ignored", coreID)
		return
	}
	if f.Dispatch != nil {
		f.Dispatch(h.HandleInterrupt)
	} else {
		h.HandleInterrupt()
	}
}

// Info implements hba.Plugin.
func (f *FPGA) Info() *hba.Info {
	return &f.info
}

// HandleCmd implements hba.Plugin.
func (f *FPGA) HandleCmd(hba.Cmd, int, string, []byte) int {
	return 0
}
