package net

import (
	"crypto/tls"
	"errors"
	"net"
	"time"
)

var (
	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
)

// Dialer opens outgoing connections.
type Dialer interface {
	Dial(address string, timeout time.Duration) (net.Conn, error)
}

// StreamLayer is used with the Server to provide the low level stream
// abstraction.
type StreamLayer interface {
	net.Listener
	Dialer

	// AdvertiseAddr returns the publicly-reachable address of the stream
	AdvertiseAddr() string
}

// TCPDialer dials plain TCP connections.
type TCPDialer struct{}

// Dial implements the Dialer interface.
func (TCPDialer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", address, timeout)
}

// TLSDialer dials TLS connections with a fixed configuration.
type TLSDialer struct {
	Config *tls.Config
}

// Dial implements the Dialer interface.
func (d TLSDialer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	return tls.DialWithDialer(&dialer, "tcp", address, d.Config)
}

// DialerFor returns the dialer matching the security of target.
func DialerFor(target string, security Security) (Dialer, error) {
	conf, err := security.TLSConfig(target)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		return TCPDialer{}, nil
	}
	return TLSDialer{Config: conf}, nil
}

// TCPStreamLayer implements StreamLayer interface for plain TCP, or TLS when
// the listener was wrapped by tls.NewListener.
type TCPStreamLayer struct {
	TCPDialer

	advertise string
	listener  net.Listener
}

// NewTCPStreamLayer binds bindAddr. A non-nil tlsConfig makes the listener
// serve TLS.
func NewTCPStreamLayer(bindAddr, advertiseAddr string, tlsConfig *tls.Config) (*TCPStreamLayer, error) {
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	// Try to resolve the advertise address
	var resolvedAdvertise net.Addr
	if advertiseAddr != "" {
		resolvedAdvertise, err = net.ResolveTCPAddr("tcp", advertiseAddr)
		if err != nil {
			list.Close()
			return nil, err
		}
	}

	if resolvedAdvertise == nil {
		resolvedAdvertise = list.Addr()
	}

	// Verify that we have a usable advertise address
	addr, ok := resolvedAdvertise.(*net.TCPAddr)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}
	if addr.IP.IsUnspecified() {
		list.Close()
		return nil, errNotAdvertisable
	}

	if tlsConfig != nil {
		list = tls.NewListener(list, tlsConfig)
	}

	return &TCPStreamLayer{
		advertise: advertiseAddr,
		listener:  list,
	}, nil
}

// Accept implements the net.Listener interface.
func (t *TCPStreamLayer) Accept() (c net.Conn, err error) {
	return t.listener.Accept()
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() (err error) {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr implements the SteamLayer interface.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	// Use an advertise addr if provided
	if t.advertise != "" {
		return t.advertise
	}
	return t.listener.Addr().String()
}
