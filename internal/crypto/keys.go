package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MasterKeySize is the length of the server master key in bytes.
const MasterKeySize = 32

// ErrInvalidKeyLength is returned when the provided key length is invalid.
var ErrInvalidKeyLength = errors.New("invalid key length")

// ErrNoMasterKey is returned when neither a hex key nor a key file is available.
var ErrNoMasterKey = errors.New("master key not configured")

// SessionKeys are the gorilla/sessions cookie keys.
type SessionKeys struct {
	Hash  []byte // HMAC, 64 bytes
	Block []byte // AES-256, 32 bytes
}

// ReadMasterKey decodes hexKey if set, otherwise the hex contents of keyFile.
func ReadMasterKey(hexKey, keyFile string) ([]byte, error) {
	src := strings.TrimSpace(hexKey)
	if src == "" {
		if keyFile == "" {
			return nil, ErrNoMasterKey
		}
		data, err := os.ReadFile(keyFile)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s missing", ErrNoMasterKey, keyFile)
			}
			return nil, err
		}
		src = strings.TrimSpace(string(data))
	}
	key, err := hex.DecodeString(src)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), MasterKeySize)
	}
	return key, nil
}

// DeriveSessionKeys derives independent cookie hash and block keys from the master key using HKDF-SHA256.
func DeriveSessionKeys(master []byte) (SessionKeys, error) {
	if len(master) != MasterKeySize {
		return SessionKeys{}, ErrInvalidKeyLength
	}
	hash, err := derive(master, "listqr-session-hash", 64)
	if err != nil {
		return SessionKeys{}, err
	}
	block, err := derive(master, "listqr-session-block", 32)
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{Hash: hash, Block: block}, nil
}

func derive(secret []byte, info string, n int) ([]byte, error) {
	h := hkdf.New(sha256.New, secret, nil, []byte(info))
	out := make([]byte, n)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateMasterKey returns a new random master key, hex encoded.
func GenerateMasterKey() string {
	return hex.EncodeToString(MustRandom(MasterKeySize))
}

// MustRandom returns n random bytes or panics.
func MustRandom(n int) []byte {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		panic(err)
	}
	return b
}
