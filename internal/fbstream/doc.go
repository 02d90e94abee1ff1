// Package fbstream drives the framebuffer streaming peer over its control
// socket.
//
// Every command is one fixed command record. START is followed by one init
// record; PRINTSDP is followed by a blocking read of the length-prefixed
// session description. A Client keeps no state between calls and does no
// locking: callers that share one connection serialize their calls.
package fbstream
