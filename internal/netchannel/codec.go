// Package netchannel implements the abstract Peer channel and message codec
// (spec.md §4.8): a framed, bidirectional transport with reconnection,
// bounded outbound buffering, and a pluggable codec. The default transport
// is a websocket connection; each frame is one websocket text message
// carrying the codec's bytes, with no length prefix.
package netchannel

import "encoding/json"

// Codec encodes/decodes one frame. It MUST be symmetric across both
// endpoints of a channel (spec.md §4.8).
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec is the default codec.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error)    { return json.Marshal(v) }
func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// CodecFor resolves the config-level codec name ("json" is the only native
// one; "binary" is left as a pluggable extension point per spec.md §4.8).
func CodecFor(name string) Codec {
	switch name {
	case "json", "":
		return JSONCodec{}
	default:
		return JSONCodec{}
	}
}
