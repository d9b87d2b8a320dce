// Package session defines the downstream session handle and the shared
// thread-safe registry both the command broadcast path and the sensor relays
// fan out over.
package session

// Session is a non-owning handle to one downstream client connection. The
// websocket layer owns the connection; registries only hold the handle.
type Session interface {
	ID() string
	IsOpen() bool
	Send(v interface{}) error
}
