package protocol

import (
	"encoding/json"
	"errors"
)

var (
	ErrAttachMissingID    = errors.New("protocol: attach missing id")
	ErrAttachMissingNonce = errors.New("protocol: attach missing nonce")
)

// Attach is the first frame a client sends on a local connection.
// MAC is only checked when the device requires secure attach.
type Attach struct {
	ClientID string `json:"client_id"`
	DeviceID string `json:"device_id,omitempty"`
	Nonce    []byte `json:"nonce"`
	MAC      []byte `json:"mac,omitempty"`
}

// AttachAck accepts an attach. SecureData tells the client whether query
// payloads are sealed.
type AttachAck struct {
	DeviceID    string `json:"device_id"`
	Nonce       []byte `json:"nonce"`
	MAC         []byte `json:"mac,omitempty"`
	SecureData  bool   `json:"secure_data"`
	CryptoSuite string `json:"crypto_suite,omitempty"`
}

func EncodeAttach(a Attach) ([]byte, error) {
	return json.Marshal(a)
}

func DecodeAttach(b []byte) (Attach, error) {
	var a Attach
	if err := json.Unmarshal(b, &a); err != nil {
		return Attach{}, err
	}
	if a.ClientID == "" {
		return Attach{}, ErrAttachMissingID
	}
	if len(a.Nonce) == 0 {
		return Attach{}, ErrAttachMissingNonce
	}
	return a, nil
}

func EncodeAttachAck(a AttachAck) ([]byte, error) {
	return json.Marshal(a)
}

func DecodeAttachAck(b []byte) (AttachAck, error) {
	var a AttachAck
	if err := json.Unmarshal(b, &a); err != nil {
		return AttachAck{}, err
	}
	if a.DeviceID == "" {
		return AttachAck{}, ErrAttachMissingID
	}
	if len(a.Nonce) == 0 {
		return AttachAck{}, ErrAttachMissingNonce
	}
	return a, nil
}
