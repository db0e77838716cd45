package net

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/mosaicnetworks/hgclient/src/crypto"
)

// Mode is the way a node address is reached.
type Mode uint8

const (
	// Plaintext dials the address without TLS.
	Plaintext Mode = iota
	// TLS dials the address with TLS and pins the node certificate.
	TLS
	// Proxy dials a TLS proxy verified against the system roots.
	Proxy
)

func (m Mode) String() string {
	switch m {
	case Plaintext:
		return "plaintext"
	case TLS:
		return "tls"
	case Proxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "plaintext", "":
		return Plaintext, nil
	case "tls":
		return TLS, nil
	case "proxy":
		return Proxy, nil
	}
	return Plaintext, fmt.Errorf("unknown address mode %q", s)
}

// Security describes how a channel secures its connection.
type Security struct {
	Mode Mode

	// CertHash is the hex encoded SHA-384 hash of the node's PEM certificate.
	// TLS mode accepts any certificate when it is empty.
	CertHash string
}

// TLSConfig returns the tls configuration for target, or nil in plaintext
// mode.
func (s Security) TLSConfig(target string) (*tls.Config, error) {
	switch s.Mode {
	case Plaintext:
		return nil, nil
	case Proxy:
		host, _, err := net.SplitHostPort(target)
		if err != nil {
			return nil, err
		}
		return &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}, nil
	case TLS:
		expected, err := hex.DecodeString(strings.TrimPrefix(s.CertHash, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid certificate hash: %w", err)
		}
		return &tls.Config{
			// Node certificates are self-signed; the pinned hash replaces the
			// chain verification.
			InsecureSkipVerify:    true,
			MinVersion:            tls.VersionTLS12,
			VerifyPeerCertificate: pinnedCertificate(expected),
		}, nil
	}
	return nil, fmt.Errorf("unknown address mode %d", s.Mode)
}

func pinnedCertificate(expected []byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(expected) == 0 {
			return nil
		}
		if len(rawCerts) == 0 {
			return errors.New("node presented no certificate")
		}

		block := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: rawCerts[0]})
		got := crypto.SHA384(block)

		if !bytes.Equal(got, expected) {
			return fmt.Errorf("node certificate hash %x does not match address book", got)
		}

		return nil
	}
}
