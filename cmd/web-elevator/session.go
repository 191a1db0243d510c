package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-elevator-logsim/internal/app"
	"go-elevator-logsim/internal/logger"
	"go-elevator-logsim/pkg/elevator"
	"go-elevator-logsim/pkg/eventbus"
	"go-elevator-logsim/pkg/logwriter"
)

const (
	eventBuffer  = 256
	writeTimeout = 5 * time.Second
	queryTimeout = 3 * time.Second
)

// Message types
// 메시지 타입 정의
type ClientMessage struct {
	Action string `json:"action"`
	Floor  int    `json:"floor,omitempty"`
	Source string `json:"source,omitempty"`
}

type ServerMessage struct {
	Type    string             `json:"type"`
	Session string             `json:"session,omitempty"`
	Event   *eventbus.Event    `json:"event,omitempty"`
	State   *elevator.Snapshot `json:"state,omitempty"`
	Logs    []logwriter.Entry  `json:"logs,omitempty"`
	Health  *logwriter.Stats   `json:"health,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// ElevatorSession streams bus events to one WebSocket client and forwards
// its requests to the shared car.
// ElevatorSession은 하나의 WebSocket 연결과 공유 엘리베이터 사이를 중계합니다.
type ElevatorSession struct {
	id     string
	conn   *websocket.Conn
	app    *app.App
	mu     sync.Mutex // serialises writes on conn
	done   chan struct{}
	logger zerolog.Logger
}

func NewElevatorSession(conn *websocket.Conn, a *app.App) *ElevatorSession {
	id := uuid.NewString()
	return &ElevatorSession{
		id:     id,
		conn:   conn,
		app:    a,
		done:   make(chan struct{}),
		logger: logger.Component("session").With().Str("session", id).Logger(),
	}
}

func (s *ElevatorSession) HandleMessages() {
	s.logger.Info().Str("remote_addr", s.conn.RemoteAddr().String()).Msg("Session started")

	events, unsubscribe := s.app.Bus.Channel(eventBuffer)
	go s.eventListener(events)

	defer func() {
		close(s.done)
		unsubscribe()
		_ = s.conn.Close()
		s.logger.Info().Msg("Session ended")
	}()

	s.writeJSON(ServerMessage{Type: "hello", Session: s.id})
	s.sendState()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Error().Err(err).Msg("WebSocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to parse message")
			s.writeJSON(ServerMessage{Type: "error", Error: "invalid message"})
			continue
		}

		s.handleAction(msg)
	}
}

func (s *ElevatorSession) handleAction(msg ClientMessage) {
	s.logger.Debug().Str("action", msg.Action).Int("floor", msg.Floor).Str("source", msg.Source).Msg("Action received")

	switch msg.Action {
	case "request":
		source := msg.Source
		if source == "" {
			source = "Hall"
		}
		s.app.Request(msg.Floor, source)
	case "getState":
		s.sendState()
	case "getLogs":
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		s.writeJSON(ServerMessage{Type: "logs", Logs: s.app.Logs(ctx)})
	case "getHealth":
		h := s.app.Health()
		s.writeJSON(ServerMessage{Type: "health", Health: &h})
	default:
		s.writeJSON(ServerMessage{Type: "error", Error: "unknown action: " + msg.Action})
	}
}

func (s *ElevatorSession) eventListener(events <-chan eventbus.Event) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.sendEvent(event)
		}
	}
}

func (s *ElevatorSession) sendState() {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	snap, err := s.app.Snapshot(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("State unavailable")
		return
	}
	s.writeJSON(ServerMessage{Type: "state", State: &snap})
}

func (s *ElevatorSession) sendEvent(event eventbus.Event) {
	s.writeJSON(ServerMessage{Type: "event", Event: &event})
}

func (s *ElevatorSession) writeJSON(msg ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug().Err(err).Str("type", msg.Type).Msg("Failed to write JSON message")
	}
}
