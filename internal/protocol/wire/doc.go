// Package wire owns the fixed-layout records exchanged with the sensor and
// fbstream peers over their unix sockets.
//
// Ownership boundary:
// - record layouts (byte order, C long width, alignment padding)
// - sensor event, fbstream command and fbstream init records
// - the length-prefixed SDP reply read after a PRINTSDP command
//
// Records carry no header, magic or version. A peer recognizes a record only
// by its size and by the order in which records arrive.
package wire
