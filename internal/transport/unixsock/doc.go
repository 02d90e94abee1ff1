// Package unixsock owns the client side of the peer sockets: dialing the
// init-provisioned path, writing one record per call and closing.
//
// Nothing here retries. A failed connect yields no connection, and a failed
// write leaves the connection open for the caller to close.
package unixsock
