package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "ingest")

// RouteMessage is one accepted route-ingestion request: an agent and the
// ordered list of target names appended to its waypoint queue.
type RouteMessage struct {
	CorrelationID string
	AgentID       string
	Targets       []string
}

// RouteServer listens for one-JSON-message-per-connection route requests,
// matching the connect/send/close convention of the reference AGV client:
// a TCP payload is map[string][]string from agent ID to an ordered list of
// target names. Accepted messages are pushed onto Inbox for the driver to
// drain at the start of its next tick.
type RouteServer struct {
	Inbox *Inbox[RouteMessage]

	listener net.Listener
	stopCh   chan struct{}
}

// NewRouteServer binds addr and returns a server that has not yet started
// accepting connections.
func NewRouteServer(addr string) (*RouteServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ingest: route listener on %s: %w", addr, err)
	}
	return &RouteServer{
		Inbox:    &Inbox[RouteMessage]{},
		listener: l,
		stopCh:   make(chan struct{}),
	}, nil
}

// Addr returns the bound listen address (useful when addr was ":0").
func (s *RouteServer) Addr() net.Addr { return s.listener.Addr() }

// Start accepts connections in the background until Stop is called.
func (s *RouteServer) Start() {
	go s.acceptLoop()
}

// Stop closes the listener; in-flight connections finish being read.
func (s *RouteServer) Stop() {
	close(s.stopCh)
	s.listener.Close()
}

func (s *RouteServer) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.WithError(err).Warn("route server: accept failed")
				continue
			}
		}
		go s.handle(conn)
	}
}

func (s *RouteServer) handle(conn net.Conn) {
	defer conn.Close()
	corrID := uuid.NewString()
	entry := log.WithField("correlation_id", corrID)

	body, err := io.ReadAll(conn)
	if err != nil {
		entry.WithError(err).Error("route server: read failed, dropping message")
		return
	}

	var routes map[string][]string
	if err := json.Unmarshal(body, &routes); err != nil {
		entry.WithError(err).Error("route server: malformed JSON, dropping message")
		return
	}

	for agentID, targets := range routes {
		s.Inbox.Push(RouteMessage{CorrelationID: corrID, AgentID: agentID, Targets: targets})
	}
	entry.WithField("agents", len(routes)).Debug("route server: message accepted")
}
