package hba

// Cmd is a user request against a resource.
type Cmd int

// User requests.
const (
	CmdGet Cmd = iota
	CmdSet
	CmdCat
	CmdList
)

// MaxMsgLen is the size of the reply buffer handed to plugins.
const MaxMsgLen = 120

// Sender sends a packet to the FPGA and returns the bytes received in reply.
// The call is synchronous and only one packet is in flight at a time.
type Sender interface {
	SendRecv(pkt []byte) ([]byte, error)
}

// SendRecvFunc is the func form of Sender.
type SendRecvFunc func(pkt []byte) ([]byte, error)

// SendRecv implements Sender.
func (f SendRecvFunc) SendRecv(pkt []byte) ([]byte, error) {
	return f(pkt)
}

// InterruptHandler is called when the FPGA reports a pending interrupt for
// a core.
type InterruptHandler interface {
	HandleInterrupt()
}

// InterruptFunc is the func form of InterruptHandler.
type InterruptFunc func()

// HandleInterrupt implements InterruptHandler.
func (f InterruptFunc) HandleInterrupt() {
	f()
}

// InterruptRegistrar is implemented by senders able to deliver interrupts.
type InterruptRegistrar interface {
	RegisterInterruptHandler(coreID byte, h InterruptHandler)
}

// Broadcaster delivers unsolicited resource values to observers.
type Broadcaster interface {
	Broadcast(rsc *Resource, text []byte)
}

// Info describes a plugin and the resources it exposes.
type Info struct {
	Name      string
	Desc      string
	Help      string
	Resources []*Resource
}

// Plugin is a peripheral instance occupying a registry slot.
type Plugin interface {
	Info() *Info
	// HandleCmd serves a user request on resource rscID and writes the
	// reply into buf. It returns the number of bytes written. Failures are
	// reported as text in buf as well.
	HandleCmd(cmd Cmd, rscID int, val string, buf []byte) int
}
