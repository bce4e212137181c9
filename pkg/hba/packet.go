package hba

// Op is the operation carried in the high bit of a packet header.
type Op byte

// Packet operations.
const (
	OpWrite Op = 0x00
	OpRead  Op = 0x80
)

const (
	// ACK is returned by the FPGA when it accepts a write.
	ACK byte = 0xAC
	// MaxRegs is the largest register count a single packet addresses.
	MaxRegs = 8
	// MaxCoreID is the largest core ID on the bus.
	MaxCoreID byte = 0x0f
)

// Header encodes a packet header byte.
func Header(op Op, count int, coreID byte) byte {
	return byte(op) | byte(count-1)<<4&0x70 | coreID&MaxCoreID
}

// DecodeHeader splits a header byte into its fields.
func DecodeHeader(hdr byte) (op Op, count int, coreID byte) {
	return Op(hdr & 0x80), int(hdr>>4&0x07) + 1, hdr & MaxCoreID
}

// WritePacket builds the packet storing vals into consecutive registers
// starting at reg. The trailing byte receives the ACK.
func WritePacket(coreID, reg byte, vals ...byte) []byte {
	pkt := make([]byte, 0, len(vals)+3)
	pkt = append(pkt, Header(OpWrite, len(vals), coreID), reg)
	pkt = append(pkt, vals...)
	return append(pkt, 0)
}

// ReadPacket builds the packet reading count registers starting at reg.
// The placeholders receive the echoed header and register and the values.
func ReadPacket(coreID, reg byte, count int) []byte {
	pkt := make([]byte, count+4)
	pkt[0], pkt[1] = Header(OpRead, count, coreID), reg
	return pkt
}

// CheckAck validates the bytes returned for a write packet.
func CheckAck(resp []byte) error {
	if len(resp) != 1 {
		return &LengthError{Want: 1, Got: len(resp)}
	}
	if resp[0] != ACK {
		return ErrNoAck
	}
	return nil
}

// ReadData validates the bytes returned for a read of count registers and
// returns the register values.
func ReadData(resp []byte, count int) ([]byte, error) {
	if len(resp) != count+2 {
		return nil, &LengthError{Want: count + 2, Got: len(resp)}
	}
	return resp[2:], nil
}
