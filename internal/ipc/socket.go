package ipc

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/waywardwm/wayward/internal/logger"
)

// SocketServer handles incoming control connections
type SocketServer struct {
	mu         sync.Mutex
	listener   net.Listener
	socketPath string
	handler    Handler
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	running    bool
}

// NewSocketServer creates a control server bound to the given socket
// path.
func NewSocketServer(socketPath string, handler Handler) *SocketServer {
	return &SocketServer{
		socketPath: socketPath,
		handler:    handler,
	}
}

// SocketPath returns the path the server listens on.
func (s *SocketServer) SocketPath() string {
	return s.socketPath
}

// Start starts the socket server
func (s *SocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	// Set socket permissions (user only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.listener = listener
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.acceptConnections(ctx)

	logger.Infof("control socket listening at %s", s.socketPath)
	return nil
}

// Stop stops the socket server
func (s *SocketServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.cancel != nil {
		s.cancel()
	}

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()

	// Clean up socket file
	os.RemoveAll(s.socketPath)

	logger.Info("control socket stopped")
}

// acceptConnections accepts and handles incoming connections
func (s *SocketServer) acceptConnections(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Errorf("failed to accept connection: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

// handleConnection serves one client until it disconnects.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	logger.Debug("new control connection")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var req Request
		if err := readMessage(conn, &req); err != nil {
			logger.Debugf("control connection closed: %v", err)
			return
		}

		resp := s.handleRequest(req)
		if err := writeMessage(conn, resp); err != nil {
			logger.Errorf("failed to send control response: %v", err)
			return
		}
	}
}

// handleRequest processes a single command and returns the response.
func (s *SocketServer) handleRequest(req Request) Response {
	switch req.Command {
	case CmdStatus:
		status := s.handler.Status()
		return Response{OK: true, Status: &status}

	case CmdWindows:
		return Response{OK: true, Windows: s.handler.Windows()}

	case CmdFocus:
		if err := s.handler.FocusWindow(req.WindowID); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}

	case CmdClose:
		if err := s.handler.CloseWindow(req.WindowID); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}

	case CmdInject:
		if req.Inject == nil {
			return Response{Error: "inject command without payload"}
		}
		if err := s.handler.Inject(*req.Inject); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true}

	default:
		return Response{Error: fmt.Sprintf("unknown command: %q", req.Command)}
	}
}
