// Package bridge exposes the sensor and fbstream channels over HTTP so remote
// clients can feed samples and drive the stream without touching the peer
// sockets directly.
package bridge
