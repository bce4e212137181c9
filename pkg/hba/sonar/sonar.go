// Package sonar drives the HBA dual sonar core.
//
// The core has a control register enabling each sonar and two registers
// holding the last distance measured. It raises an interrupt whenever a new
// measurement is available.
package sonar

import (
	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
)

// PluginName is the registry name of the plugin.
const PluginName = "hba_sonar"

// DefaultCoreID is the core address used when none is configured.
const DefaultCoreID byte = 5

// Resource IDs.
const (
	RscCtrl = iota
	RscSonar0
	RscSonar1
)

// Registers.
const (
	RegCtrl byte = iota
	RegSonar0
	RegSonar1
)

// Control register bits.
const (
	EnableSonar0 byte = 1 << iota
	EnableSonar1
)

// Sonar is an instance of the dual sonar core.
type Sonar struct {
	core *hba.Core
	info hba.Info
	bcst hba.Broadcaster

	ctrl   byte
	sonar0 byte
	sonar1 byte
}

// New creates a sonar on the core behind the parent slot and adds it to the
// registry. New measurements are pushed to bcst when the parent is able to
// deliver interrupts; bcst may be nil.
func New(reg *hba.Registry, parent int, coreID byte, bcst hba.Broadcaster) (*Sonar, error) {
	core, err := hba.NewCore(reg, parent, coreID)
	if err != nil {
		glog.Errorf("%s: %v", PluginName, err)
		return nil, err
	}
	s := &Sonar{
		core: core,
		bcst: bcst,
		info: hba.Info{
			Name: PluginName,
			Desc: "dual sonar interface",
			Help: "ctrl: bit 0 enables sonar0, bit 1 enables sonar1\n" +
				"sonar0: last sonar0 measurement\n" +
				"sonar1: last sonar1 measurement\n",
			Resources: []*hba.Resource{
				hba.NewResource("ctrl", hba.Readable|hba.Writable),
				hba.NewResource("sonar0", hba.Readable|hba.Broadcastable),
				hba.NewResource("sonar1", hba.Readable|hba.Broadcastable),
			},
		},
	}
	reg.Add(s)
	if r, ok := core.Sender().(hba.InterruptRegistrar); ok {
		r.RegisterInterruptHandler(coreID, s)
	}
	return s, nil
}

// Core returns the bus address of the sonar.
func (s *Sonar) Core() *hba.Core {
	return s.core
}

// Info implements hba.Plugin.
func (s *Sonar) Info() *hba.Info {
	return &s.info
}

// HandleCmd implements hba.Plugin.
func (s *Sonar) HandleCmd(cmd hba.Cmd, rscID int, val string, buf []byte) int {
	switch cmd {
	case hba.CmdGet:
		switch rscID {
		case RscCtrl:
			return hba.ReplyValue(buf, s.ctrl)
		case RscSonar0:
			return s.readChannel(buf, rscID, RegSonar0, &s.sonar0)
		case RscSonar1:
			return s.readChannel(buf, rscID, RegSonar1, &s.sonar1)
		}
	case hba.CmdSet:
		if rscID == RscCtrl {
			return s.core.SetReg(buf, s.info.Resources[rscID], val, &s.ctrl, RegCtrl, hba.ReplyNoResponse)
		}
	}
	return 0
}

func (s *Sonar) readChannel(buf []byte, rscID int, reg byte, cache *byte) int {
	vals, err := s.core.ReadRegs(reg, 1)
	if err != nil {
		glog.Errorf("%s: read %s: %v", PluginName, s.info.Resources[rscID].Name, err)
		return hba.ReplyBadValue(buf, s.info.Resources[rscID])
	}
	*cache = vals[0]
	return hba.ReplyValue(buf, *cache)
}

// HandleInterrupt implements hba.InterruptHandler. It reads both channels and
// broadcasts the ones which changed.
func (s *Sonar) HandleInterrupt() {
	vals, err := s.core.ReadRegs(RegSonar0, 2)
	if err != nil {
		glog.Errorf("%s: interrupt read: %v", PluginName, err)
		return
	}
	s.notify(RscSonar0, s.sonar0, vals[0])
	s.notify(RscSonar1, s.sonar1, vals[1])
	s.sonar0, s.sonar1 = vals[0], vals[1]
}

func (s *Sonar) notify(rscID int, old, val byte) {
	rsc := s.info.Resources[rscID]
	if val == old || !rsc.Observed() || s.bcst == nil {
		return
	}
	s.bcst.Broadcast(rsc, hba.FormatBroadcast(val))
}
