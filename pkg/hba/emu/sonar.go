package emu

import (
	"context"
	"time"

	"github.com/robotalks/hba.go/pkg/hba/sonar"
)

// SonarModel produces measurements on the registers of a sonar core.
// Each enabled channel sweeps a range of distances and every new measurement
// raises the core interrupt.
type SonarModel struct {
	FPGA     *FPGA
	CoreID   byte
	Interval time.Duration

	dist [2]byte
	step [2]int
}

// NewSonarModel creates a model of the sonar core at coreID.
func NewSonarModel(fpga *FPGA, coreID byte) *SonarModel {
	return &SonarModel{
		FPGA:     fpga,
		CoreID:   coreID,
		Interval: 200 * time.Millisecond,
		dist:     [2]byte{0x20, 0x80},
		step:     [2]int{3, -5},
	}
}

// Name implements framework.Named.
func (m *SonarModel) Name() string {
	return "emu-sonar"
}

// Tick takes one measurement on every enabled channel. It returns whether
// the interrupt was raised.
func (m *SonarModel) Tick() bool {
	ctrl := m.FPGA.Peek(m.CoreID, sonar.RegCtrl)
	enables := [2]byte{sonar.EnableSonar0, sonar.EnableSonar1}
	regs := [2]byte{sonar.RegSonar0, sonar.RegSonar1}
	measured := false
	for i := range regs {
		if ctrl&enables[i] == 0 {
			continue
		}
		d := int(m.dist[i]) + m.step[i]
		if d < 0x10 || d > 0xf0 {
			m.step[i] = -m.step[i]
			d = int(m.dist[i]) + m.step[i]
		}
		m.dist[i] = byte(d)
		m.FPGA.Poke(m.CoreID, regs[i], m.dist[i])
		measured = true
	}
	if measured {
		m.FPGA.Raise(m.CoreID)
	}
	return measured
}

// Run implements framework.Runnable.
func (m *SonarModel) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick()
		}
	}
}
