package comp

import (
	"github.com/waywardwm/wayward/internal/logger"
	"github.com/waywardwm/wayward/internal/protocol"
	"github.com/waywardwm/wayward/internal/shm"
	"github.com/waywardwm/wayward/internal/surface"
	"github.com/waywardwm/wayward/internal/wm"
)

// Client is one connected client: its event connection plus the
// translation tables between its uint32 object ids and the
// compositor's internal objects. All fields are owned by the loop
// goroutine; only Submit may be called from outside it.
type Client struct {
	id   uint64
	srv  *Server
	conn protocol.Conn

	pools    map[uint32]*shm.Pool
	buffers  map[uint32]*shm.Buffer
	surfaces map[uint32]*surface.Surface
	windows  map[uint32]*wm.Window

	// Reverse maps from internal ids back to the client's ids, for
	// event translation.
	surfaceIDs map[uint64]uint32
	bufferIDs  map[uint64]uint32
	windowIDs  map[uint64]uint32

	// Frame callback ids follow the surface's double-buffered state:
	// pending joins ready on commit, ready fires on the next frame.
	framePending map[uint32][]uint32
	frameReady   map[uint32][]uint32

	gone bool
}

func newClient(id uint64, srv *Server, conn protocol.Conn) *Client {
	return &Client{
		id:           id,
		srv:          srv,
		conn:         conn,
		pools:        make(map[uint32]*shm.Pool),
		buffers:      make(map[uint32]*shm.Buffer),
		surfaces:     make(map[uint32]*surface.Surface),
		windows:      make(map[uint32]*wm.Window),
		surfaceIDs:   make(map[uint64]uint32),
		bufferIDs:    make(map[uint64]uint32),
		windowIDs:    make(map[uint64]uint32),
		framePending: make(map[uint32][]uint32),
		frameReady:   make(map[uint32][]uint32),
	}
}

// ID returns the compositor-assigned client id.
func (c *Client) ID() uint64 { return c.id }

// Submit queues a request for the compositor loop. Requests from one
// goroutine are dispatched in submission order. Safe to call from any
// goroutine; once the loop has exited the request is silently dropped
// rather than blocking the caller.
func (c *Client) Submit(req protocol.Request) {
	select {
	case c.srv.requests <- clientRequest{client: c, req: req}:
	case <-c.srv.done:
	}
}

// send delivers an event, marking the client gone on transport
// failure so the loop reaps it at the next safe point.
func (c *Client) send(ev protocol.Event) {
	if c.gone {
		return
	}
	if err := c.conn.Send(ev); err != nil {
		logger.Warnf("client %d: send failed: %v", c.id, err)
		c.gone = true
	}
}

// lookups returning protocol errors for unknown ids

func (c *Client) pool(id uint32) (*shm.Pool, *ProtocolError) {
	p, ok := c.pools[id]
	if !ok {
		return nil, unknownObject(id, "pool")
	}
	return p, nil
}

func (c *Client) buffer(id uint32) (*shm.Buffer, *ProtocolError) {
	b, ok := c.buffers[id]
	if !ok {
		return nil, unknownObject(id, "buffer")
	}
	return b, nil
}

func (c *Client) surface(id uint32) (*surface.Surface, *ProtocolError) {
	s, ok := c.surfaces[id]
	if !ok {
		return nil, unknownObject(id, "surface")
	}
	return s, nil
}

func (c *Client) window(id uint32) (*wm.Window, *ProtocolError) {
	w, ok := c.windows[id]
	if !ok {
		return nil, unknownObject(id, "window")
	}
	return w, nil
}
