package bridge

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// readyName is the notification an agent sends once it is serving.
const readyName = "ready"

// handlerTimeout bounds a single inbound handler invocation.
const handlerTimeout = 30 * time.Second

// NotifyHandler consumes a one-way message from the peer.
type NotifyHandler interface {
	Handle(ctx context.Context, header Header) error
}

// RequestHandler answers a request from the peer. isError marks body as an
// application error payload; err reports a failure inside the handler
// itself.
type RequestHandler interface {
	HandleRequest(ctx context.Context, header Header) (body []byte, isError bool, err error)
}

// NotifyHandlerFunc adapts a function to NotifyHandler.
type NotifyHandlerFunc func(ctx context.Context, header Header) error

// Handle implements NotifyHandler.
func (f NotifyHandlerFunc) Handle(ctx context.Context, header Header) error {
	return f(ctx, header)
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc func(ctx context.Context, header Header) (body []byte, isError bool, err error)

// HandleRequest implements RequestHandler.
func (f RequestHandlerFunc) HandleRequest(ctx context.Context, header Header) (body []byte, isError bool, err error) {
	return f(ctx, header)
}

// Conn is one end of a bridge conversation over a byte stream. Requests
// carry a sequence number and wait for the matching response; notifications
// are fire-and-forget with sequence zero. Both ends may send requests.
//
// A Conn does nothing until Start runs its read loop. All methods are safe
// for concurrent use.
type Conn struct {
	reader io.Reader
	writer io.Writer

	writeMutex sync.Mutex
	sequence   atomic.Uint32

	pendingRequests map[uint32]chan Header
	requestMutex    sync.RWMutex

	notifyHandlers  map[string]NotifyHandler
	requestHandlers map[string]RequestHandler
	handlerMutex    sync.RWMutex

	startMutex sync.Mutex
	runCtx     context.Context
	cancelRun  context.CancelFunc
	started    atomic.Bool
	closed     atomic.Bool
	wg         sync.WaitGroup

	readyOnce   sync.Once
	readySignal chan struct{}
}

// NewConn wraps one end of a byte stream. For a subprocess agent, r and w
// are the peer's stdout and stdin; tests use io.Pipe pairs.
func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		reader:          r,
		writer:          w,
		pendingRequests: make(map[uint32]chan Header),
		notifyHandlers:  make(map[string]NotifyHandler),
		requestHandlers: make(map[string]RequestHandler),
		readySignal:     make(chan struct{}),
	}
}

// RegisterNotifyHandler routes inbound notifications named name to h.
// Registrations made after Start still take effect for later messages.
func (c *Conn) RegisterNotifyHandler(name string, h NotifyHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.notifyHandlers[name] = h
}

// RegisterRequestHandler routes inbound requests named name to h.
func (c *Conn) RegisterRequestHandler(name string, h RequestHandler) {
	c.handlerMutex.Lock()
	defer c.handlerMutex.Unlock()
	c.requestHandlers[name] = h
}

// Start launches the read loop. ctx bounds the whole conversation;
// cancelling it releases every blocked Call.
func (c *Conn) Start(ctx context.Context) error {
	if c.closed.Load() {
		return fmt.Errorf("bridge: conn is closed")
	}

	c.startMutex.Lock()
	defer c.startMutex.Unlock()
	if c.started.Load() {
		return fmt.Errorf("bridge: conn already started")
	}

	c.runCtx, c.cancelRun = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.readLoop()

	// Published last: Call checks started before touching runCtx.
	c.started.Store(true)
	return nil
}

// Call sends a request and waits for the matching response. If the peer
// answers with an error payload, Call returns it as an error with the
// payload as the message.
func (c *Conn) Call(ctx context.Context, name string, body []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("bridge: conn is closed")
	}
	if !c.started.Load() {
		return nil, fmt.Errorf("bridge: conn not started")
	}

	header := Header{Name: name, Kind: KindRequest, Body: body}
	data, err := header.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request header: %w", err)
	}

	seq := c.nextSequence()

	c.requestMutex.Lock()
	if c.closed.Load() {
		c.requestMutex.Unlock()
		return nil, fmt.Errorf("bridge: conn closed before dispatching request")
	}
	responseChan := make(chan Header, 1)
	c.pendingRequests[seq] = responseChan
	c.requestMutex.Unlock()

	defer func() {
		c.requestMutex.Lock()
		delete(c.pendingRequests, seq)
		c.requestMutex.Unlock()
	}()

	if err := c.writeFrame(seq, data); err != nil {
		return nil, fmt.Errorf("failed to write request: %w", err)
	}

	select {
	case response, ok := <-responseChan:
		if !ok {
			return nil, fmt.Errorf("bridge: conn is shutting down")
		}
		if response.IsError {
			return nil, fmt.Errorf("bridge: remote error for service %s: %s", name, string(response.Body))
		}
		return response.Body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.runCtx.Done():
		return nil, fmt.Errorf("bridge: conn is shutting down")
	}
}

// Notify sends a one-way message. There is no delivery acknowledgment.
func (c *Conn) Notify(ctx context.Context, name string, body []byte) error {
	if c.closed.Load() {
		return fmt.Errorf("bridge: conn is closed")
	}

	header := Header{Name: name, Kind: KindNotify, Body: body}
	data, err := header.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode notify header: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.writeFrame(0, data)
}

// AnnounceReady tells the peer this side is serving. Agents call it once
// their handlers are registered.
func (c *Conn) AnnounceReady(ctx context.Context) error {
	return c.Notify(ctx, readyName, nil)
}

// WaitReady blocks until the peer announces readiness or ctx expires. The
// announcement is sticky, later waiters return immediately.
func (c *Conn) WaitReady(ctx context.Context) error {
	select {
	case <-c.readySignal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close shuts the conn down. Blocked calls are released with a shutdown
// error. The underlying reader is closed when it supports closing, which
// also stops the read loop; otherwise the loop ends on the next stream
// error.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("bridge: conn already closed")
	}

	c.startMutex.Lock()
	cancel := c.cancelRun
	c.startMutex.Unlock()
	if cancel != nil {
		cancel()
	}
	if closer, ok := c.reader.(io.Closer); ok {
		closer.Close()
	}
	return nil
}

// Wait blocks until the read loop has exited. Agent processes use it to
// stay alive for the lifetime of the stream.
func (c *Conn) Wait() {
	c.wg.Wait()
}

// nextSequence returns a request sequence that is never zero and not
// currently in use. Zero is reserved for notifications.
func (c *Conn) nextSequence() uint32 {
	for {
		seq := c.sequence.Add(1)
		if seq == 0 {
			continue
		}
		c.requestMutex.RLock()
		_, exists := c.pendingRequests[seq]
		c.requestMutex.RUnlock()
		if !exists {
			return seq
		}
	}
}

// writeFrame serializes writers; both sides of the conversation share one
// stream.
func (c *Conn) writeFrame(seq uint32, data []byte) error {
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	return writeFrame(c.writer, seq, data)
}

// respond sends a response for seq. Failures are logged; the peer's Call
// will run into its own context deadline.
func (c *Conn) respond(seq uint32, name string, body []byte, isError bool) {
	header := Header{Name: name, Kind: KindResponse, IsError: isError, Body: body}
	data, err := header.MarshalBinary()
	if err != nil {
		log.Printf("bridge: failed to encode response for '%s': %v", name, err)
		return
	}
	if err := c.writeFrame(seq, data); err != nil {
		log.Printf("bridge: failed to write response for '%s': %v", name, err)
	}
}

// readLoop dispatches inbound frames until the stream ends. On exit every
// pending request is released and the conn's context is cancelled, so no
// caller stays blocked on a dead stream.
func (c *Conn) readLoop() {
	defer c.wg.Done()
	defer c.cancelRun()
	defer func() {
		c.requestMutex.Lock()
		defer c.requestMutex.Unlock()
		for seq, ch := range c.pendingRequests {
			select {
			case <-ch:
				// Response already delivered, leave it.
			default:
				close(ch)
			}
			delete(c.pendingRequests, seq)
		}
	}()

	for {
		seq, data, err := readFrame(c.reader)
		if err != nil {
			return
		}

		select {
		case <-c.runCtx.Done():
			return
		default:
		}

		var header Header
		if err := header.UnmarshalBinary(data); err != nil {
			// Invalid header, skip this message.
			continue
		}

		if header.Kind == KindNotify && header.Name == readyName {
			c.readyOnce.Do(func() { close(c.readySignal) })
			continue
		}

		switch header.Kind {
		case KindResponse:
			if seq == 0 {
				continue
			}
			c.requestMutex.RLock()
			responseChan, exists := c.pendingRequests[seq]
			c.requestMutex.RUnlock()
			if exists {
				select {
				case responseChan <- header:
				default:
					// Channel is full, the caller already gave up.
				}
			}

		case KindRequest:
			handler, exists := c.getRequestHandler(header.Name)
			if !exists {
				c.respond(seq, header.Name, []byte(fmt.Sprintf("no handler for service %q", header.Name)), true)
				continue
			}
			go func(h RequestHandler, hdr Header, seq uint32) {
				ctx, cancel := context.WithTimeout(c.runCtx, handlerTimeout)
				defer cancel()

				body, isError, err := h.HandleRequest(ctx, hdr)
				if err != nil {
					c.respond(seq, hdr.Name, []byte(fmt.Sprintf("request handler error for '%s': %v", hdr.Name, err)), true)
					return
				}
				c.respond(seq, hdr.Name, body, isError)
			}(handler, header, seq)

		case KindNotify:
			handler, exists := c.getNotifyHandler(header.Name)
			if !exists {
				continue
			}
			go func(h NotifyHandler, hdr Header) {
				ctx, cancel := context.WithTimeout(c.runCtx, handlerTimeout)
				defer cancel()

				if err := h.Handle(ctx, hdr); err != nil {
					log.Printf("bridge: notify handler error for '%s': %v", hdr.Name, err)
				}
			}(handler, header)
		}
	}
}

func (c *Conn) getRequestHandler(name string) (RequestHandler, bool) {
	c.handlerMutex.RLock()
	defer c.handlerMutex.RUnlock()
	h, ok := c.requestHandlers[name]
	return h, ok
}

func (c *Conn) getNotifyHandler(name string) (NotifyHandler, bool) {
	c.handlerMutex.RLock()
	defer c.handlerMutex.RUnlock()
	h, ok := c.notifyHandlers[name]
	return h, ok
}
