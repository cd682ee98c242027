package bridge

import (
	"context"
	"fmt"
	"log"
)

// Serializer defines the functions for serializing requests and
// deserializing responses for a typed Caller.
type Serializer[Req, Resp any] struct {
	MarshalRequest    func(Req) ([]byte, error)
	UnmarshalResponse func([]byte) (Resp, error)
}

// Caller invokes one custom verb on the peer with specific request and
// response types. The built-in document and maps verbs do not need it; it
// exists for application verbs layered on the same conn.
type Caller[Req, Resp any] struct {
	conn       *Conn
	name       string
	serializer Serializer[Req, Resp]
}

// NewCaller creates a typed caller for a verb with the given serializer.
func NewCaller[Req, Resp any](conn *Conn, name string, serializer Serializer[Req, Resp]) *Caller[Req, Resp] {
	return &Caller[Req, Resp]{
		conn:       conn,
		name:       name,
		serializer: serializer,
	}
}

// Call invokes the verb on the peer.
func (c *Caller[Req, Resp]) Call(ctx context.Context, request Req) (Resp, error) {
	var zeroResp Resp

	requestBytes, err := c.serializer.MarshalRequest(request)
	if err != nil {
		return zeroResp, fmt.Errorf("caller: failed to marshal request for %s: %w", c.name, err)
	}

	responseBytes, err := c.conn.Call(ctx, c.name, requestBytes)
	if err != nil {
		// err may be a transport failure or an error payload from the
		// peer; both arrive preformatted.
		return zeroResp, err
	}

	resp, err := c.serializer.UnmarshalResponse(responseBytes)
	if err != nil {
		return zeroResp, fmt.Errorf("caller: failed to unmarshal response for %s: %w", c.name, err)
	}
	return resp, nil
}

// NewTypedHandler wraps a typed function as a RequestHandler. Decode and
// encode failures are reported to the peer as error payloads rather than
// crashing the conn.
func NewTypedHandler[Req, Resp any](
	name string,
	unmarshalReq func([]byte) (Req, error),
	marshalResp func(Resp) ([]byte, error),
	handle func(ctx context.Context, request Req) (Resp, error),
) RequestHandler {
	return RequestHandlerFunc(func(ctx context.Context, header Header) ([]byte, bool, error) {
		req, err := unmarshalReq(header.Body)
		if err != nil {
			errMsg := fmt.Sprintf("handler for %s: failed to unmarshal request: %v", name, err)
			log.Printf("Error: %s. Body: %x", errMsg, header.Body)
			return []byte(errMsg), true, nil
		}

		resp, err := handle(ctx, req)
		if err != nil {
			return []byte(err.Error()), true, nil
		}

		body, err := marshalResp(resp)
		if err != nil {
			errMsg := fmt.Sprintf("handler for %s: failed to marshal response: %v", name, err)
			log.Printf("Error: %s", errMsg)
			return []byte(errMsg), true, nil
		}
		return body, false, nil
	})
}
