package protocol

type MessageType uint8

const (
	MessageTypeAttach    MessageType = 1
	MessageTypeAttachAck MessageType = 2
	MessageTypeQuery     MessageType = 3
	MessageTypeResponse  MessageType = 4
	MessageTypeError     MessageType = 5
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeAttach:
		return "ATTACH"
	case MessageTypeAttachAck:
		return "ATTACH_ACK"
	case MessageTypeQuery:
		return "QUERY"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Frame flags.
const (
	FlagCompressed uint8 = 1 << 0
)
