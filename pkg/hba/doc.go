// Package hba provides the register protocol shared by HomeBrew Automation
// FPGA peripherals.
package hba

// A peripheral is a core on the FPGA bus, addressed by a 4-bit core ID and
// exposing up to 16 8-bit registers. The host reaches a register by sending
// a packet through the serial_fpga transport:
//
//   header   op | (count-1)<<4 | coreID
//   register first register of the access
//   data     values to write followed by a slot for the ACK, or
//            count+2 placeholders for a read
//
// A write is accepted when the transport returns exactly one byte equal to
// ACK. A read returns the header and register echoed back followed by the
// register values.
//
// Plugins expose registers to the user as named resources. Every user
// request and every interrupt callback runs on the daemon's event loop, so
// plugins keep their cached register values without locking.
