// Package servo drives the HBA quad servo controller core.
package servo

import (
	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
)

// PluginName is the registry name of the plugin.
const PluginName = "hba_servo"

// DefaultCoreID is the core address used when none is configured.
const DefaultCoreID byte = 4

// Resource IDs.
const (
	RscCenter = iota
	RscPosition
)

// Registers.
const (
	RegCenter byte = iota
	RegPosition
)

// DefaultValue is the power on value of both registers.
const DefaultValue byte = 0x80

// Servo is an instance of the servo controller.
type Servo struct {
	core *hba.Core
	info hba.Info

	center   byte
	position byte
}

// New creates a servo on the core behind the parent slot and adds it to the
// registry.
func New(reg *hba.Registry, parent int, coreID byte) (*Servo, error) {
	core, err := hba.NewCore(reg, parent, coreID)
	if err != nil {
		glog.Errorf("%s: %v", PluginName, err)
		return nil, err
	}
	s := &Servo{
		core:     core,
		center:   DefaultValue,
		position: DefaultValue,
		info: hba.Info{
			Name: PluginName,
			Desc: "quad servo controller",
			Help: "center: pulse width of the center position\n" +
				"position: servo position, 0x80 is centered\n",
			Resources: []*hba.Resource{
				hba.NewResource("center", hba.Readable|hba.Writable),
				hba.NewResource("position", hba.Readable|hba.Writable),
			},
		},
	}
	reg.Add(s)
	return s, nil
}

// Core returns the bus address of the servo.
func (s *Servo) Core() *hba.Core {
	return s.core
}

// Info implements hba.Plugin.
func (s *Servo) Info() *hba.Info {
	return &s.info
}

// HandleCmd implements hba.Plugin.
func (s *Servo) HandleCmd(cmd hba.Cmd, rscID int, val string, buf []byte) int {
	switch cmd {
	case hba.CmdGet:
		switch rscID {
		case RscCenter:
			return hba.ReplyValue(buf, s.center)
		case RscPosition:
			return hba.ReplyValue(buf, s.position)
		}
	case hba.CmdSet:
		switch rscID {
		case RscCenter:
			return s.core.SetReg(buf, s.info.Resources[rscID], val, &s.center, RegCenter, hba.ReplyNoResponse)
		case RscPosition:
			// a rejected position write is reported as a bad value
			return s.core.SetReg(buf, s.info.Resources[rscID], val, &s.position, RegPosition, hba.ReplyBadValue)
		}
	}
	return 0
}
