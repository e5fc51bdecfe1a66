package frozen

import (
	"bytes"
	"errors"

	jsoniter "github.com/json-iterator/go"
)

// payloadJSON keeps numbers as json.Number, so integers beyond float64 precision survive decoding,
// and sorts object keys, so equal snapshots encode to equal payloads.
var payloadJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Encode renders node into its JSON payload. A nil node encodes to nil.
func Encode(node *Node) ([]byte, error) {
	if node == nil {
		return nil, nil
	}

	payload, err := payloadJSON.Marshal(node.Tree())
	if err != nil {
		return nil, errors.Join(ErrUnsupportedValue, err)
	}

	return payload, nil
}

// Decode parses a JSON payload into a raw tree. An empty payload or JSON null decodes to nil.
func Decode(payload []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if !payloadJSON.Valid(trimmed) {
		return nil, ErrInvalidPayloadJSON
	}

	var tree map[string]any
	if err := payloadJSON.Unmarshal(trimmed, &tree); err != nil {
		return nil, errors.Join(ErrInvalidPayloadJSON, err)
	}

	return tree, nil
}

// MarshalJSON implements json.Marshaler with the wire representation of the node.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("null"), nil
	}

	return Encode(n)
}
