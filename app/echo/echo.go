package echo

import (
	"errors"

	"github.com/terassyi/tunstack/logger"
	"github.com/terassyi/tunstack/proto/tcp"
)

// Service writes back everything a peer sends and closes its side once the
// peer has closed.
type Service struct {
	logger *logger.Logger
}

func New(debug bool) *Service {
	return &Service{logger: logger.New(debug, "echo")}
}

func (s *Service) Accepted(c *tcp.Conn) {
	c.SetHandler(s)
}

func (s *Service) Established(c *tcp.Conn) {
	s.logger.Infof("established %s", c.Peer)
}

func (s *Service) DataReceived(c *tcp.Conn, data []byte) {
	if _, err := c.Write(data); err != nil {
		s.logger.Warnf("%s: %v", c.Peer, err)
	}
}

func (s *Service) RemoteClosed(c *tcp.Conn) {
	// after a local close the FIN is already queued
	if err := c.Close(); err != nil && !errors.Is(err, tcp.ErrConnClosed) {
		s.logger.Warnf("%s: %v", c.Peer, err)
	}
}

func (s *Service) Reset(c *tcp.Conn) {
	s.logger.Infof("reset %s", c.Peer)
}

func (s *Service) Closed(c *tcp.Conn) {
	s.logger.Infof("closed %s", c.Peer)
}
