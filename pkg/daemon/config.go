package daemon

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/hba.go/pkg/hba"
	"github.com/robotalks/hba.go/pkg/hba/servo"
	"github.com/robotalks/hba.go/pkg/hba/sonar"
	"github.com/robotalks/hba.go/pkg/link"
	"github.com/robotalks/hba.go/pkg/ui/tcp"
)

// Config provides the options of the daemon.
type Config struct {
	// ID identifies the daemon in published messages.
	ID string

	// Port is the serial device connected to the FPGA.
	Port string
	Baud int
	// Emulate replaces the FPGA with an in-process emulator.
	Emulate      bool
	ReplyTimeout time.Duration

	ServoCoreID uint
	SonarCoreID uint

	// Listen is the address of the TCP console, empty to disable.
	Listen string
	// WSListen is the address of the WebSocket console, empty to disable.
	WSListen string
	// MQTTBrokerURL enables the MQTT bridge,
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
}

var defaultConfig = Config{
	Port:         "/dev/ttyUSB1",
	Baud:         link.DefaultBaud,
	ReplyTimeout: link.DefaultReplyTimeout,
	ServoCoreID:  uint(servo.DefaultCoreID),
	SonarCoreID:  uint(sonar.DefaultCoreID),
	Listen:       tcp.DefaultAddr,
}

func init() {
	if val := os.Getenv("HBA_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("HBA_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.Baud = baud
		}
	}
	if val, ok := os.LookupEnv("HBA_LISTEN"); ok {
		defaultConfig.Listen = val
	}
	defaultConfig.WSListen = os.Getenv("HBA_WS_LISTEN")
	defaultConfig.MQTTBrokerURL = os.Getenv("HBA_MQTT_URL")
	defaultConfig.ID = MachineID()
}

// MachineID retrieves the unique ID identifying the machine, falling back
// to the host name.
func MachineID() string {
	id, err := machineid.ID()
	if err == nil {
		return id
	}
	glog.V(2).Infof("machine id: %v", err)
	if id, err = os.Hostname(); err == nil {
		return id
	}
	return "hbad"
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Daemon ID")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial device of the FPGA")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.BoolVar(&defaultConfig.Emulate, "emulate", defaultConfig.Emulate, "Use the emulated FPGA")
	flag.DurationVar(&defaultConfig.ReplyTimeout, "reply-timeout", defaultConfig.ReplyTimeout, "Timeout of FPGA replies")
	flag.UintVar(&defaultConfig.ServoCoreID, "servo-core", defaultConfig.ServoCoreID, "Core ID of the servo")
	flag.UintVar(&defaultConfig.SonarCoreID, "sonar-core", defaultConfig.SonarCoreID, "Core ID of the sonar")
	flag.StringVar(&defaultConfig.Listen, "listen", defaultConfig.Listen, "TCP console address, empty to disable")
	flag.StringVar(&defaultConfig.WSListen, "ws-listen", defaultConfig.WSListen, "WebSocket console address, empty to disable")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	if !c.Emulate && c.Port == "" {
		return fmt.Errorf("serial port is required unless emulated")
	}
	if c.ServoCoreID > uint(hba.MaxCoreID) {
		return fmt.Errorf("servo core id %d out of range", c.ServoCoreID)
	}
	if c.SonarCoreID > uint(hba.MaxCoreID) {
		return fmt.Errorf("sonar core id %d out of range", c.SonarCoreID)
	}
	if c.ServoCoreID == c.SonarCoreID {
		return fmt.Errorf("servo and sonar share core id %d", c.ServoCoreID)
	}
	return nil
}
