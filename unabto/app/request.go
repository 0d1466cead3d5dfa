package app

import "github.com/google/uuid"

// Request describes one inbound query as seen by a handler.
type Request struct {
	QueryID      uint32
	ClientID     string
	ConnectionID uuid.UUID
	IsLocal      bool
}

// Handler answers a single query. It reads the query arguments from r and
// writes the response into w. Both buffers are only valid for the duration
// of the call.
type Handler func(req *Request, r *Reader, w *Writer) Result
