// Package gateway is the websocket link to the renderer front-end. It
// accepts chat and control frames from clients, feeds user turns onto the
// bus, and fans outbound events (narration, stage directives) back out to
// every connected client.
package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/orbitarium/missionguide/pkg/bus"
	"github.com/orbitarium/missionguide/pkg/config"
	"github.com/orbitarium/missionguide/pkg/logger"
)

// clientFrame is a JSON message from the renderer to missionguide.
type clientFrame struct {
	Type      string `json:"type"` // hello | chat | cancel | load_complete
	Text      string `json:"text,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"` // load_complete failure detail
}

// Server owns the websocket endpoint and the connected-client registry.
type Server struct {
	cfg      config.GatewayConfig
	bus      *bus.MessageBus
	upgrader websocket.Upgrader

	clients map[*websocket.Conn]string // conn → clientID
	mu      sync.RWMutex

	loads    *loadTracker
	onCancel func()

	server *http.Server
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(cfg config.GatewayConfig, msgBus *bus.MessageBus) *Server {
	return &Server{
		cfg: cfg,
		bus: msgBus,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]string),
		loads:   newLoadTracker(),
	}
}

// SetCancelHandler wires the client's cancel frame to the in-flight turn.
func (s *Server) SetCancelHandler(fn func()) {
	s.onCancel = fn
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the gateway on an existing listener. Tests use it with an
// ephemeral port.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWS)

	s.server = &http.Server{Handler: mux}

	logger.InfoCF("gateway", "Websocket server listening", map[string]any{
		"addr": ln.Addr().String(),
		"path": s.cfg.Path,
	})

	s.wg.Add(1)
	go s.eventPump()

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("gateway", "Server error", map[string]any{
				"error": err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	logger.InfoC("gateway", "Stopping websocket server")

	if s.cancel != nil {
		s.cancel()
	}
	s.loads.failAll(fmt.Errorf("gateway shutting down"))

	s.mu.Lock()
	for conn, clientID := range s.clients {
		logger.DebugCF("gateway", "Closing client connection", map[string]any{
			"client_id": clientID,
		})
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]string)
	s.mu.Unlock()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

// ClientCount reports the number of connected renderers.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// eventPump drains the outbound bus and fans each event out to clients.
func (s *Server) eventPump() {
	defer s.wg.Done()
	for {
		event, ok := s.bus.SubscribeEvent(s.ctx)
		if !ok {
			return
		}
		s.broadcast(event)
	}
}

func (s *Server) broadcast(event bus.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.ErrorCF("gateway", "Failed to marshal event", map[string]any{
			"type":  string(event.Type),
			"error": err.Error(),
		})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for conn, clientID := range s.clients {
		if event.ClientID != "" && event.ClientID != clientID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.WarnCF("gateway", "Failed to send event", map[string]any{
				"client_id": clientID,
				"error":     err.Error(),
			})
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.ErrorCF("gateway", "Upgrade failed", map[string]any{
			"error": err.Error(),
		})
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.New().String()
	}

	logger.InfoCF("gateway", "Renderer connected", map[string]any{
		"client_id":   clientID,
		"remote_addr": r.RemoteAddr,
	})

	s.mu.Lock()
	s.clients[conn] = clientID
	s.mu.Unlock()

	go s.readPump(conn, clientID)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.cfg.APIKey == "" {
		return true
	}
	supplied := r.Header.Get("X-API-Key")
	if supplied == "" {
		supplied = r.URL.Query().Get("api_key")
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.cfg.APIKey)) == 1
}

func (s *Server) readPump(conn *websocket.Conn, clientID string) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()

		logger.InfoCF("gateway", "Renderer disconnected", map[string]any{
			"client_id": clientID,
		})
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.ErrorCF("gateway", "Read error", map[string]any{
					"client_id": clientID,
					"error":     err.Error(),
				})
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			logger.WarnCF("gateway", "Invalid frame", map[string]any{
				"client_id": clientID,
				"error":     err.Error(),
			})
			continue
		}

		s.handleFrame(clientID, frame)
	}
}

func (s *Server) handleFrame(clientID string, frame clientFrame) {
	switch frame.Type {
	case "hello":
		logger.DebugCF("gateway", "Client hello", map[string]any{
			"client_id": clientID,
		})

	case "chat":
		if frame.Text == "" {
			return
		}
		s.bus.PublishTurn(bus.UserTurn{ClientID: clientID, Text: frame.Text})

	case "cancel":
		logger.InfoCF("gateway", "Cancel requested", map[string]any{
			"client_id": clientID,
		})
		if s.onCancel != nil {
			s.onCancel()
		}

	case "load_complete":
		var loadErr error
		if frame.Error != "" {
			loadErr = fmt.Errorf("client load failed: %s", frame.Error)
		}
		if !s.loads.resolve(frame.RequestID, loadErr) {
			logger.WarnCF("gateway", "Load ack for unknown request", map[string]any{
				"request_id": frame.RequestID,
			})
		}

	default:
		logger.WarnCF("gateway", "Unknown frame type", map[string]any{
			"client_id": clientID,
			"type":      frame.Type,
		})
	}
}
