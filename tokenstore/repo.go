// Package tokenstore defines the durable credential slot shared by the session
// engine and the request interception layer. The store holds opaque strings:
// token validity is decided by the server, never here.
package tokenstore

// Repo is a durable, process-outliving store for the client's credentials.
// Read returns an empty string when a slot is absent; absence is not an error.
// Writes must be visible to all subsequent reads, including after a restart.
type Repo interface {
	Read() (string, error)
	Write(token string) error
	ReadRefresh() (string, error)
	WriteRefresh(token string) error
	Clear() error
}
