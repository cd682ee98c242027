package bridge

import (
	"context"

	"google.golang.org/protobuf/proto"
)

// NewProtobufCaller creates a Caller specialized for Protocol Buffers
// serialization. Req and Resp must implement proto.Message.
// newRespInstance is a factory returning a new, non-nil Resp instance, for
// example func() *pb.StatusResponse { return new(pb.StatusResponse) }.
func NewProtobufCaller[Req proto.Message, Resp proto.Message](
	conn *Conn,
	name string,
	newRespInstance func() Resp,
) *Caller[Req, Resp] {
	serializer := Serializer[Req, Resp]{
		MarshalRequest: func(req Req) ([]byte, error) {
			return proto.Marshal(req)
		},
		UnmarshalResponse: func(data []byte) (Resp, error) {
			instance := newRespInstance()
			if err := proto.Unmarshal(data, instance); err != nil {
				var zero Resp
				return zero, err
			}
			return instance, nil
		},
	}
	return NewCaller(conn, name, serializer)
}

// NewProtobufHandler wraps a typed function as a RequestHandler with
// protobuf bodies. newReqInstance is a factory for the request type.
func NewProtobufHandler[Req proto.Message, Resp proto.Message](
	name string,
	newReqInstance func() Req,
	handle func(ctx context.Context, request Req) (Resp, error),
) RequestHandler {
	return NewTypedHandler(
		name,
		func(data []byte) (Req, error) {
			instance := newReqInstance()
			if err := proto.Unmarshal(data, instance); err != nil {
				var zero Req
				return zero, err
			}
			return instance, nil
		},
		func(resp Resp) ([]byte, error) {
			return proto.Marshal(resp)
		},
		handle,
	)
}
