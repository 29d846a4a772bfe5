package cipher

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"

	"github.com/shadowsocks/go-shadowsocks2/core"
	"golang.org/x/crypto/chacha20poly1305"
)

// Kind names an AEAD method in its shadowsocks spelling, e.g. "aes-256-gcm".
type Kind string

const (
	AES128GCM            Kind = "aes-128-gcm"
	AES256GCM            Kind = "aes-256-gcm"
	Chacha20IETFPoly1305 Kind = "chacha20-ietf-poly1305"
)

type method struct {
	keySize  int
	coreName string // go-shadowsocks2 name
}

// SupportedCiphers is the set of methods the tunnel can speak.
var SupportedCiphers = map[Kind]method{
	AES128GCM:            {keySize: 16, coreName: "AEAD_AES_128_GCM"},
	AES256GCM:            {keySize: 32, coreName: "AEAD_AES_256_GCM"},
	Chacha20IETFPoly1305: {keySize: chacha20poly1305.KeySize, coreName: "AEAD_CHACHA20_POLY1305"},
}

// ParseKind accepts a method name case-insensitively, in either the
// shadowsocks spelling or the go-shadowsocks2 AEAD_* spelling.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := SupportedCiphers[Kind(n)]; ok {
		return Kind(n), nil
	}
	for k, m := range SupportedCiphers {
		if strings.EqualFold(m.coreName, n) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported method: %q (available: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the supported methods, sorted.
func Names() []string {
	names := make([]string, 0, len(SupportedCiphers))
	for k := range SupportedCiphers {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

func (k Kind) String() string { return string(k) }

// KeySize is the pre-shared key length in bytes, 0 for unknown kinds.
func (k Kind) KeySize() int { return SupportedCiphers[k].keySize }

// New derives the pre-shared key from password and returns a cipher that
// wraps both stream and packet connections.
func New(kind Kind, password string) (core.Cipher, error) {
	m, ok := SupportedCiphers[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported method: %s", kind)
	}
	if password == "" {
		return nil, fmt.Errorf("empty password for method %s", kind)
	}

	ciph, err := core.PickCipher(m.coreName, kdf(password, m.keySize), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher %s: %w", kind, err)
	}
	return ciph, nil
}

// kdf is OpenSSL's EVP_BytesToKey with MD5, as used by shadowsocks.
func kdf(password string, keyLen int) []byte {
	var b, prev []byte
	h := md5.New()
	for len(b) < keyLen {
		h.Write(prev)
		h.Write([]byte(password))
		b = h.Sum(b)
		prev = b[len(b)-h.Size():]
		h.Reset()
	}
	return b[:keyLen]
}
