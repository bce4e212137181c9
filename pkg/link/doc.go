// Package link carries HBA register packets between the daemon and the FPGA
// over a serial line.
//
// Both ends number their frames with a one byte sequence. A stream starts
// (and restarts after any framing error) with a SYNC REQ carrying the
// sender's sequence, answered by a SYNC ACK carrying the peer's. There is no
// checksum; enable parity on the serial port when the line is noisy.
//
// The daemon sends each register packet in a request frame and waits for the
// reply frame echoing the request sequence. The FPGA side reports pending
// interrupts with event frames listing the core IDs.
package link
