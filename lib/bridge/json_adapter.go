package bridge

import (
	"context"

	"github.com/goccy/go-json"
)

// NewJSONCaller creates a Caller specialized for JSON serialization. Req
// and Resp are plain Go types that marshal to and from JSON.
func NewJSONCaller[Req, Resp any](conn *Conn, name string) *Caller[Req, Resp] {
	serializer := Serializer[Req, Resp]{
		MarshalRequest: func(req Req) ([]byte, error) {
			return json.Marshal(req)
		},
		UnmarshalResponse: func(data []byte) (Resp, error) {
			var resp Resp
			err := json.Unmarshal(data, &resp)
			return resp, err
		},
	}
	return NewCaller(conn, name, serializer)
}

// NewJSONHandler wraps a typed function as a RequestHandler with JSON
// bodies. An empty request body decodes to the zero Req.
func NewJSONHandler[Req, Resp any](name string, handle func(ctx context.Context, request Req) (Resp, error)) RequestHandler {
	return NewTypedHandler(
		name,
		func(data []byte) (Req, error) {
			var req Req
			if len(data) == 0 {
				return req, nil
			}
			err := json.Unmarshal(data, &req)
			return req, err
		},
		func(resp Resp) ([]byte, error) {
			return json.Marshal(resp)
		},
		handle,
	)
}
