package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// MAX_DATAGRAM_SIZE bounds the read buffer; HDL-64E data packets are 1206
// bytes.
const MAX_DATAGRAM_SIZE = 2048

// ErrListenerStarted is returned when Start is called on a listener that has
// already been started.
var ErrListenerStarted = errors.New("udp listener already started")

// UDPListener receives sensor packets from a live UDP socket and hands them
// to a PacketHandler.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	handler     PacketHandler
	stats       *PacketStats
	conn        *net.UDPConn
	ready       chan struct{}

	mu      sync.Mutex
	started bool
}

// UDPListenerConfig contains configuration options for the UDP listener
type UDPListenerConfig struct {
	Address     string // e.g. ":2368"
	RcvBuf      int
	LogInterval time.Duration
	Handler     PacketHandler
	Stats       *PacketStats // Optional; logged every LogInterval
}

// NewUDPListener creates a new UDP listener with the provided configuration
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		handler:     config.Handler,
		stats:       config.Stats,
		ready:       make(chan struct{}),
	}
}

// Start listens until ctx is cancelled. Handler errors are logged and the
// listener keeps running. A listener runs once; later calls return
// ErrListenerStarted.
func (l *UDPListener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrListenerStarted
	}
	l.started = true
	l.mu.Unlock()

	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			opsf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	opsf("UDP listener started on %s", conn.LocalAddr())
	close(l.ready)

	if l.stats != nil {
		go l.startStatsLogging(ctx)
	}

	buffer := make([]byte, MAX_DATAGRAM_SIZE)
	for {
		if err := ctx.Err(); err != nil {
			opsf("UDP listener stopping due to context cancellation")
			return err
		}

		// Short deadline so cancellation is noticed.
		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			opsf("UDP read error: %v", err)
			continue
		}

		if err := l.handler.HandlePacket(buffer[:n], time.Now()); err != nil {
			opsf("Error handling packet from %v: %v", from, err)
		}
	}
}

// Ready is closed once the socket is bound.
func (l *UDPListener) Ready() <-chan struct{} {
	return l.ready
}

// LocalAddr returns the bound address, or nil before Ready.
func (l *UDPListener) LocalAddr() net.Addr {
	select {
	case <-l.ready:
		return l.conn.LocalAddr()
	default:
		return nil
	}
}

func (l *UDPListener) startStatsLogging(ctx context.Context) {
	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.stats.LogStats()
		}
	}
}
