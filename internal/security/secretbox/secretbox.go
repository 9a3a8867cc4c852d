// Package secretbox cifra secretos locales (session token persistido) con AES-256-GCM.
//
// Formato: base64(nonce)|base64(ciphertext).
// La clave sale de una master key (base64, hex o raw de 32 bytes) o de una
// passphrase derivada con argon2id.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// EnvMasterKey es la variable de entorno con la master key (base64).
	EnvMasterKey = "SECRETBOX_MASTER_KEY"

	nonceSizeGCM      = 12
	requiredKeyLength = 32 // AES-256
	sep               = "|"
)

// KDF params de argon2id para FromPassphrase.
var (
	kdfTime    uint32 = 3
	kdfMemory  uint32 = 64 * 1024 // KiB
	kdfThreads uint8  = 1
)

// ErrMalformed indica un texto cifrado con formato inválido.
var ErrMalformed = errors.New("secretbox: formato inválido: esperado base64(nonce)|base64(ciphertext)")

// Box cifra y descifra con una clave fija.
type Box struct {
	aead cipher.AEAD
}

// New crea un Box con una clave cruda de 32 bytes.
func New(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: clave inválida: %d bytes (requiere %d)", len(key), requiredKeyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead}, nil
}

// FromKey decodifica una master key en base64 (con o sin padding), hex o raw.
func FromKey(key string) (*Box, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("secretbox: %s vacía; genere una clave con: openssl rand -base64 32", EnvMasterKey)
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return New(b)
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return New(b)
	}
	if len(key) == 2*requiredKeyLength {
		if h, err := hex.DecodeString(key); err == nil {
			return New(h)
		}
	}
	return New([]byte(key))
}

// FromPassphrase deriva la clave con argon2id. salt debe ser estable entre ejecuciones.
func FromPassphrase(passphrase string, salt []byte) (*Box, error) {
	if passphrase == "" {
		return nil, errors.New("secretbox: passphrase vacía")
	}
	if len(salt) < 8 {
		return nil, errors.New("secretbox: salt demasiado corto")
	}
	return New(argon2.IDKey([]byte(passphrase), salt, kdfTime, kdfMemory, kdfThreads, requiredKeyLength))
}

// Seal cifra plain.
func (b *Box) Seal(plain string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open descifra lo producido por Seal. Falla si el texto fue alterado.
func (b *Box) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, sep)
	if len(parts) != 2 {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("nonce inválido: esperado %d bytes, obtuvo %d", nonceSizeGCM, len(nonce))
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}
