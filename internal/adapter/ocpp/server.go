package ocpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/adapter/ocpp/ocppj"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
	"github.com/seu-repo/ocpp-central/internal/service/command"
	"github.com/seu-repo/ocpp-central/internal/service/session"
)

const pathPrefix = "/ocpp/"

// Authenticator verifies a station's Basic-Auth credentials on upgrade.
type Authenticator interface {
	VerifyPassword(ctx context.Context, chargePointID, password string) bool
}

// Disconnector receives post-disconnect lifecycle notifications.
type Disconnector interface {
	MarkDisconnected(ctx context.Context, chargePointID string)
}

// Server accepts OCPP WebSocket connections at /ocpp/{chargePointId},
// negotiates the subprotocol and runs one reader and one writer goroutine
// per station.
type Server struct {
	registry     *session.Registry
	adapters     *AdapterRegistry
	negotiator   *Negotiator
	sender       *command.Sender
	auth         Authenticator
	disconnector Disconnector
	bus          *events.Bus
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

func NewServer(registry *session.Registry, adapters *AdapterRegistry, sender *command.Sender, auth Authenticator, disconnector Disconnector, bus *events.Bus, logger *zap.Logger) *Server {
	return &Server{
		registry:     registry,
		adapters:     adapters,
		negotiator:   NewNegotiator(adapters.Versions()...),
		sender:       sender,
		auth:         auth,
		disconnector: disconnector,
		bus:          bus,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// stations connect from private networks without an Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler to mount at /ocpp/.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	chargePointID := strings.TrimPrefix(r.URL.Path, pathPrefix)
	chargePointID = strings.Trim(chargePointID, "/")
	if chargePointID == "" || strings.Contains(chargePointID, "/") {
		http.Error(w, "missing charge point id", http.StatusBadRequest)
		return
	}

	version, echo, ok := s.negotiator.Negotiate(r.Header.Get("Sec-WebSocket-Protocol"))
	if !ok {
		s.logger.Warn("no mutual OCPP subprotocol",
			zap.String("charge_point_id", chargePointID),
			zap.String("offered", r.Header.Get("Sec-WebSocket-Protocol")))
		http.Error(w, "no supported ocpp subprotocol", http.StatusBadRequest)
		return
	}

	if user, pass, hasAuth := r.BasicAuth(); hasAuth {
		if user != chargePointID || !s.auth.VerifyPassword(r.Context(), chargePointID, pass) {
			s.logger.Warn("basic auth rejected", zap.String("charge_point_id", chargePointID))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	} else if !s.auth.VerifyPassword(r.Context(), chargePointID, "") {
		w.Header().Set("WWW-Authenticate", `Basic realm="ocpp"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	outcome := s.registry.Register(chargePointID, version)
	if outcome.Debounced {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", outcome.SecondsRemaining))
		http.Error(w, "reconnecting too fast", http.StatusTooManyRequests)
		return
	}
	conn := outcome.Connection

	ws, err := s.upgrader.Upgrade(w, r, http.Header{"Sec-WebSocket-Protocol": {echo}})
	if err != nil {
		s.logger.Warn("websocket upgrade failed",
			zap.String("charge_point_id", chargePointID),
			zap.Error(err))
		// no traffic flowed, so the retry must not hit the debounce
		s.registry.Discard(conn)
		return
	}

	adapter, ok := s.adapters.Adapter(version)
	if !ok {
		// cannot happen: the negotiator only offers registered versions
		s.logger.Error("no adapter for negotiated version",
			zap.String("version", string(version)))
		ws.Close()
		s.registry.Discard(conn)
		return
	}

	s.logger.Info("station connected",
		zap.String("charge_point_id", chargePointID),
		zap.String("version", string(version)),
		zap.String("remote_addr", r.RemoteAddr))

	s.bus.Publish(events.ChargePointConnected{
		ChargePointID: chargePointID,
		RemoteAddr:    r.RemoteAddr,
		OcppVersion:   string(version),
		Timestamp:     time.Now().UTC(),
	})

	go s.writeLoop(ws, conn, chargePointID)
	go s.readLoop(ws, conn, adapter, chargePointID)
}

// writeLoop drains the connection's send channel onto the socket. It exits
// when the channel closes (eviction or unregister) and closes the socket,
// which in turn stops the read loop.
func (s *Server) writeLoop(ws *websocket.Conn, conn *session.Connection, chargePointID string) {
	for text := range conn.Outbound() {
		if err := ws.WriteMessage(websocket.TextMessage, text); err != nil {
			s.logger.Warn("write failed",
				zap.String("charge_point_id", chargePointID),
				zap.Error(err))
			break
		}
	}
	ws.Close()
}

// readLoop receives frames until the socket drops, handling each message
// to completion before reading the next so per-station ordering holds.
func (s *Server) readLoop(ws *websocket.Conn, conn *session.Connection, adapter ports.InboundAdapter, chargePointID string) {
	defer s.cleanup(conn, chargePointID)

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("read failed",
					zap.String("charge_point_id", chargePointID),
					zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.logger.Warn("ignoring non-text frame",
				zap.String("charge_point_id", chargePointID),
				zap.Int("type", msgType))
			continue
		}

		conn.Touch()
		if reply := s.handleMessage(adapter, chargePointID, data); reply != nil {
			if err := conn.Send(reply); err != nil {
				s.logger.Warn("reply dropped",
					zap.String("charge_point_id", chargePointID),
					zap.Error(err))
			}
		}
	}
}

// handleMessage parses one inbound text frame and returns the reply text,
// or nil when no reply is due.
func (s *Server) handleMessage(adapter ports.InboundAdapter, chargePointID string, data []byte) []byte {
	frame, perr := ocppj.Parse(data)
	if perr != nil {
		if id := ocppj.RecoverUniqueID(data); id != "" {
			return s.serialize(ocppj.NewCallError(id, "FormationViolation", perr.Error()))
		}
		s.logger.Warn("unparseable frame dropped",
			zap.String("charge_point_id", chargePointID),
			zap.String("error", perr.Error()))
		s.bus.Publish(events.ErrorOccurred{
			ChargePointID: chargePointID,
			ErrorType:     "FormationViolation",
			Message:       perr.Error(),
			Timestamp:     time.Now().UTC(),
		})
		return nil
	}

	switch frame.Type {
	case ocppj.MessageTypeCallResult:
		s.sender.HandleResponse(chargePointID, frame.UniqueID, frame.Payload)
		return nil
	case ocppj.MessageTypeCallError:
		s.sender.HandleError(chargePointID, frame.UniqueID, frame.ErrorCode, frame.ErrorDescription)
		return nil
	}

	result, err := adapter.Handle(context.Background(), chargePointID, frame.Action, frame.Payload)
	if err != nil {
		var unknown *UnknownActionError
		if errors.As(err, &unknown) {
			return s.serialize(ocppj.NewCallError(frame.UniqueID, "NotImplemented", unknown.Action))
		}
		s.logger.Error("handler failed",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", frame.Action),
			zap.Error(err))
		s.bus.Publish(events.ErrorOccurred{
			ChargePointID: chargePointID,
			ErrorType:     "InternalError",
			Message:       fmt.Sprintf("%s: %v", frame.Action, err),
			Timestamp:     time.Now().UTC(),
		})
		return s.serialize(ocppj.NewCallError(frame.UniqueID, "InternalError", frame.Action))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("reply serialization failed",
			zap.String("charge_point_id", chargePointID),
			zap.String("action", frame.Action),
			zap.Error(err))
		return s.serialize(ocppj.NewCallError(frame.UniqueID, "InternalError", frame.Action))
	}
	return s.serialize(ocppj.NewCallResult(frame.UniqueID, payload))
}

func (s *Server) serialize(f ocppj.Frame) []byte {
	text, err := ocppj.Serialize(f)
	if err != nil {
		s.logger.Error("frame serialization failed", zap.Error(err))
		return nil
	}
	return text
}

func (s *Server) cleanup(conn *session.Connection, chargePointID string) {
	s.registry.Unregister(conn)
	s.sender.CleanupChargePoint(chargePointID)
	s.disconnector.MarkDisconnected(context.Background(), chargePointID)

	s.logger.Info("station disconnected", zap.String("charge_point_id", chargePointID))
	s.bus.Publish(events.ChargePointDisconnected{
		ChargePointID: chargePointID,
		Timestamp:     time.Now().UTC(),
	})
}
