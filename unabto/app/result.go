package app

import "strconv"

// Result is the outcome a query handler reports back to the remote peer.
type Result uint32

const (
	ResultResponseReady    Result = 0
	ResultAccepted         Result = 1
	ResultNoAccess         Result = 3
	ResultTooSmall         Result = 4
	ResultTooLarge         Result = 5
	ResultInvalidQueryID   Result = 6
	ResultResponseTooLarge Result = 7
	ResultOutOfResources   Result = 8
	ResultSystemError      Result = 9
	ResultNoQueryID        Result = 10
)

func (r Result) String() string {
	switch r {
	case ResultResponseReady:
		return "RESPONSE_READY"
	case ResultAccepted:
		return "ACCEPTED"
	case ResultNoAccess:
		return "NO_ACCESS"
	case ResultTooSmall:
		return "TOO_SMALL"
	case ResultTooLarge:
		return "TOO_LARGE"
	case ResultInvalidQueryID:
		return "INV_QUERY_ID"
	case ResultResponseTooLarge:
		return "RSP_TOO_LARGE"
	case ResultOutOfResources:
		return "OUT_OF_RESOURCES"
	case ResultSystemError:
		return "SYSTEM_ERROR"
	case ResultNoQueryID:
		return "NO_QUERY_ID"
	default:
		return "RESULT(" + strconv.FormatUint(uint64(r), 10) + ")"
	}
}

// Known reports whether r is one of the uNabto result codes.
func (r Result) Known() bool {
	switch r {
	case ResultResponseReady, ResultAccepted, ResultNoAccess, ResultTooSmall, ResultTooLarge,
		ResultInvalidQueryID, ResultResponseTooLarge, ResultOutOfResources, ResultSystemError, ResultNoQueryID:
		return true
	}
	return false
}

// OK reports whether the result carries a response for the peer.
func (r Result) OK() bool { return r == ResultResponseReady }
