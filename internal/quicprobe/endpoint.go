// Package quicprobe measures TPU QUIC handshake latency with short-lived
// connections: each probe opens a connection, times the handshake, and
// closes it without exchanging data.
package quicprobe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	// ALPN token of the TPU QUIC protocol.
	alpnTPU = "solana-tpu"

	keepAlivePeriod = 1 * time.Second
	maxIdleTimeout  = 20 * time.Second

	// IPv6 minimum MTU. Path MTU discovery is disabled, so every packet
	// stays at this size.
	packetSize = 1280
)

// Endpoint is the shared client transport. It is immutable after
// construction and safe for use by any number of concurrent samplers; all of
// them dial through the same UDP socket.
type Endpoint struct {
	udpConn  *net.UDPConn
	tr       *quic.Transport
	tlsConf  *tls.Config
	quicConf *quic.Config
}

// NewEndpoint binds a local UDP socket (port 0 picks an ephemeral port) and
// assembles the fixed TLS/transport policy: TLS 1.3 only, X25519 key
// exchange, the TPU ALPN, 0-RTT allowed, and no server certificate
// verification. An error here is fatal to the run; there is nothing to
// measure without a local socket.
func NewEndpoint(cert tls.Certificate, port int) (*Endpoint, error) {
	udpConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", port, err)
	}

	tlsConf := &tls.Config{
		MinVersion:       tls.VersionTLS13,
		CurvePreferences: []tls.CurveID{tls.X25519},
		NextProtos:       []string{alpnTPU},
		Certificates:     []tls.Certificate{cert},
		// The protocol does not authenticate the server certificate; the
		// probe only needs the encrypted channel to come up. Any chain is
		// accepted.
		InsecureSkipVerify: true,
		// Session cache so a remote supporting 0-RTT resumption can show its
		// best-case handshake on later attempts.
		ClientSessionCache: tls.NewLRUClientSessionCache(0),
	}

	quicConf := &quic.Config{
		HandshakeIdleTimeout:    Window,
		MaxIdleTimeout:          maxIdleTimeout,
		KeepAlivePeriod:         keepAlivePeriod,
		Allow0RTT:               true,
		DisablePathMTUDiscovery: true,
		InitialPacketSize:       packetSize,
	}

	return &Endpoint{
		udpConn:  udpConn,
		tr:       &quic.Transport{Conn: udpConn},
		tlsConf:  tlsConf,
		quicConf: quicConf,
	}, nil
}

// LocalAddr returns the bound local address.
func (e *Endpoint) LocalAddr() net.Addr {
	return e.udpConn.LocalAddr()
}

// Close releases the transport and its socket. In-flight probes are cut off
// abruptly, which is acceptable: connections carry no state worth draining.
func (e *Endpoint) Close() error {
	err := e.tr.Close()
	if cerr := e.udpConn.Close(); err == nil {
		err = cerr
	}
	return err
}

// ServerName synthesizes the placeholder hostname for a target address. It
// exists only to satisfy the TLS API and to key the session cache per
// target; verification is disabled so it carries no security meaning.
func ServerName(addr netip.AddrPort) string {
	return fmt.Sprintf("%s.%d.sol", addr.Addr(), addr.Port())
}

func (e *Endpoint) dial(ctx context.Context, addr netip.AddrPort) (quic.Connection, error) {
	tlsConf := e.tlsConf.Clone()
	tlsConf.ServerName = ServerName(addr)
	return e.tr.Dial(ctx, net.UDPAddrFromAddrPort(addr), tlsConf, e.quicConf)
}
