package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"syscall"
	"time"

	"gameserverctl/internal/models"
	"gameserverctl/pkg/logging"
)

// Mode decides how failures other than a refused connection are reported.
type Mode string

const (
	// ModeStrict returns an ErrProbeFailure error for non-refused failures
	ModeStrict Mode = "strict"
	// ModePermissive logs non-refused failures and reports the game as not running
	ModePermissive Mode = "permissive"
)

// Prober checks whether the game process accepts connections
//
//go:generate mockery --name=Prober --output=./mocks
type Prober interface {
	IsGameRunning(ctx context.Context) (bool, error)
}

// Dialer is the subset of net.Dialer used by the probe
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// TCPProbe dials the game's status port. It sends nothing and reads nothing.
type TCPProbe struct {
	address string
	timeout time.Duration
	mode    Mode
	dialer  Dialer
	logger  logging.Logger
}

// NewTCPProbe creates a probe for endpoint.Host:endpoint.StatusPort
func NewTCPProbe(endpoint models.GameServerEndpoint, timeout time.Duration, mode Mode, logger logging.Logger) *TCPProbe {
	return NewTCPProbeWithDialer(endpoint, timeout, mode, &net.Dialer{}, logger)
}

// NewTCPProbeWithDialer creates a probe that connects through the provided dialer
func NewTCPProbeWithDialer(endpoint models.GameServerEndpoint, timeout time.Duration, mode Mode, dialer Dialer, logger logging.Logger) *TCPProbe {
	return &TCPProbe{
		address: net.JoinHostPort(endpoint.Host, strconv.Itoa(endpoint.StatusPort)),
		timeout: timeout,
		mode:    mode,
		dialer:  dialer,
		logger:  logger,
	}
}

// Address returns the host:port being probed
func (p *TCPProbe) Address() string {
	return p.address
}

// IsGameRunning reports true when the connection succeeds and false when it is
// actively refused. Any other failure is handled according to the probe mode.
func (p *TCPProbe) IsGameRunning(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	if err == nil {
		_ = conn.Close()
		p.logger.Debug("Game port %s accepted a connection", p.address)
		return true, nil
	}

	if IsConnectionRefused(err) {
		p.logger.Debug("Game port %s refused the connection", p.address)
		return false, nil
	}

	if p.mode == ModePermissive {
		p.logger.Warn("Probe of %s failed, treating game as not running: %v", p.address, err)
		return false, nil
	}

	return false, &Error{Category: ErrProbeFailure, Address: p.address, Underlying: err}
}

// IsConnectionRefused reports whether err is an actively refused TCP connection
func IsConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}
