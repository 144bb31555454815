package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
)

// ObstacleReport is one accepted dynamic-obstacle message: offsets are
// integer (dx, dy) pairs in the reporting agent's local forward/right
// frame, resolved to grid cells by the Supervisor (it alone knows the
// agent's current heading).
type ObstacleReport struct {
	CorrelationID string
	AgentID       string
	Blocked       [][2]int
}

type obstacleWire struct {
	AgentID string  `json:"agent_id"`
	Blocked [][]int `json:"blocked"`
}

// ObstacleServer listens for one-JSON-message-per-connection dynamic
// obstacle reports, same connect/send/close convention as RouteServer.
type ObstacleServer struct {
	Inbox *Inbox[ObstacleReport]

	listener net.Listener
	stopCh   chan struct{}
}

// NewObstacleServer binds addr and returns a server not yet accepting.
func NewObstacleServer(addr string) (*ObstacleServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ingest: obstacle listener on %s: %w", addr, err)
	}
	return &ObstacleServer{
		Inbox:    &Inbox[ObstacleReport]{},
		listener: l,
		stopCh:   make(chan struct{}),
	}, nil
}

// Addr returns the bound listen address.
func (s *ObstacleServer) Addr() net.Addr { return s.listener.Addr() }

// Start accepts connections in the background until Stop is called.
func (s *ObstacleServer) Start() {
	go s.acceptLoop()
}

// Stop closes the listener.
func (s *ObstacleServer) Stop() {
	close(s.stopCh)
	s.listener.Close()
}

func (s *ObstacleServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.WithError(err).Warn("obstacle server: accept failed")
				continue
			}
		}
		go s.handle(conn)
	}
}

func (s *ObstacleServer) handle(conn net.Conn) {
	defer conn.Close()
	corrID := uuid.NewString()
	entry := log.WithField("correlation_id", corrID)

	body, err := io.ReadAll(conn)
	if err != nil {
		entry.WithError(err).Error("obstacle server: read failed, dropping message")
		return
	}

	var wire obstacleWire
	if err := json.Unmarshal(body, &wire); err != nil {
		entry.WithError(err).Error("obstacle server: malformed JSON, dropping message")
		return
	}

	report := ObstacleReport{CorrelationID: corrID, AgentID: wire.AgentID}
	for _, pair := range wire.Blocked {
		if len(pair) != 2 {
			entry.WithField("pair", pair).Warn("obstacle server: skipping malformed offset")
			continue
		}
		report.Blocked = append(report.Blocked, [2]int{pair[0], pair[1]})
	}
	s.Inbox.Push(report)
	entry.WithField("offsets", len(report.Blocked)).Debug("obstacle server: message accepted")
}
