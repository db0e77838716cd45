package keys

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// KeyReaderWriter reads and writes private keys from/to any format or
// support.
type KeyReaderWriter interface {
	ReadKey() (PrivateKey, error)
	WriteKey(PrivateKey) error
}

// SimpleKeyfile implements KeyReaderWriter with unencrypted files holding
// "<type>:<hex>", for example "ed25519:9d61b19d...".
type SimpleKeyfile struct {
	l       sync.Mutex
	keyfile string
}

// NewSimpleKeyfile instantiates a new SimpleKeyfile with an underlying file
func NewSimpleKeyfile(keyfile string) *SimpleKeyfile {
	return &SimpleKeyfile{
		keyfile: keyfile,
	}
}

// CheckFileInfo verifies that the file exists and has user permissions only.
func (k *SimpleKeyfile) CheckFileInfo() error {
	info, err := os.Stat(k.keyfile)
	if err != nil {
		return err
	}

	perm := info.Mode().Perm()

	// build 000111111 mask
	var nonUserMask os.FileMode = (1 << 6) - 1

	if perm&nonUserMask != 0 {
		return fmt.Errorf("key file permissions should exclude 'groups' and 'others'. Got %o", perm)
	}

	return nil
}

// ReadKey implements KeyReaderWriter.
func (k *SimpleKeyfile) ReadKey() (PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	if err := k.CheckFileInfo(); err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	return DecodePrivateKey(strings.TrimSpace(string(buf)))
}

// WriteKey implements KeyReaderWriter.
func (k *SimpleKeyfile) WriteKey(key PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	if err := os.MkdirAll(filepath.Dir(k.keyfile), 0700); err != nil {
		return err
	}

	return os.WriteFile(k.keyfile, []byte(EncodePrivateKey(key)), 0600)
}

// EncodePrivateKey returns the "<type>:<hex>" form of a key.
func EncodePrivateKey(key PrivateKey) string {
	return key.Type().String() + ":" + hex.EncodeToString(key.Bytes())
}

// DecodePrivateKey parses the output of EncodePrivateKey. A bare hex string
// is read as an Ed25519 seed.
func DecodePrivateKey(s string) (PrivateKey, error) {
	t, h := Ed25519, s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		var err error
		if t, err = ParseKeyType(s[:i]); err != nil {
			return nil, err
		}
		h = s[i+1:]
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
	if err != nil {
		return nil, err
	}

	return ParsePrivateKey(t, raw)
}
