package encoding

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors returned by Codec.
var (
	ErrInvalidFormat    = errors.New("invalid format")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrDecryptFailed    = errors.New("decryption failed")
)

// Codec computes keyed checksums over snapshot content and optionally seals
// whole payloads. It supports two transport modes:
//   - Signed (default): the payload travels as-is next to an HMAC checksum
//   - Sealed: AES-256-GCM - fully opaque to the client
type Codec struct {
	key []byte
	gcm cipher.AEAD
}

// NewCodec creates a codec with the given secret.
// Keys shorter than 32 bytes are stretched with SHA-256.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, errors.New("encoding: empty key")
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}

	block, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Codec{
		key: key,
		gcm: gcm,
	}, nil
}

// Canonical returns the canonical byte form of v: v is rendered to JSON,
// re-read as generic values and packed as msgpack with sorted map keys.
// Two values that serialize to the same JSON document (modulo key order and
// whitespace) share the same canonical form. Keys are compared exactly, so
// a key whose case changed produces different bytes.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return CanonicalJSON(raw)
}

// CanonicalJSON is Canonical for an already encoded JSON document.
func CanonicalJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(numbers(generic)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// numbers replaces json.Number leaves with int64, uint64 or float64 so that
// a number and a string holding the same digits never share a canonical
// form. Integers beyond the uint64 range keep their exact digits.
func numbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if strings.ContainsAny(t.String(), ".eE") {
			if f, err := t.Float64(); err == nil {
				return f
			}
		}
		return []any{"n", t.String()}
	case map[string]any:
		for k, item := range t {
			t[k] = numbers(item)
		}
	case []any:
		for i, item := range t {
			t[i] = numbers(item)
		}
	}
	return v
}

// Checksum returns the hex HMAC-SHA256 of the canonical form of v.
func (c *Codec) Checksum(v any) (string, error) {
	canon, err := Canonical(v)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write(canon)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the checksum of v and compares it with sum in constant time.
func (c *Codec) Verify(v any, sum string) error {
	got, err := hex.DecodeString(sum)
	if err != nil {
		return ErrSignatureInvalid
	}

	canon, err := Canonical(v)
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write(canon)

	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Seal encrypts data with AES-256-GCM and returns it base64 encoded.
func (c *Codec) Seal(data []byte) (string, error) {
	nonce := make([]byte, c.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := c.gcm.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Open decodes and decrypts a string produced by Seal.
func (c *Codec) Open(sealed string) ([]byte, error) {
	ciphertext, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	if len(ciphertext) < c.gcm.NonceSize() {
		return nil, ErrInvalidFormat
	}

	nonce := ciphertext[:c.gcm.NonceSize()]
	ciphertext = ciphertext[c.gcm.NonceSize():]

	plain, err := c.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
