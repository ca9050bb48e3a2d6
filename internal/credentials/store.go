// Package credentials stores per-carrier, per-environment credentials
// encrypted at rest. Records are versioned: rotation deactivates the prior
// record and activates the new one in a single critical section, so a
// concurrent reader observes either the old or the new value, never a torn
// state. Records are never deleted; inactive versions remain for audit.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oscar-alvarez-quenty/Quenty-sub001/pkg/carrier"
	"go.uber.org/zap"
)

// Common credential types. Carriers recognize a subset; the schema passed at
// construction enforces that subset at store time.
const (
	TypeAPIKey            = "api_key"
	TypeAPISecret         = "api_secret"
	TypeAccountNumber     = "account_number"
	TypeOAuthClientID     = "oauth_client_id"
	TypeOAuthClientSecret = "oauth_client_secret"
	TypeUsername          = "username"
	TypePassword          = "password"
	TypeWebhookSecret     = "webhook_secret"
)

// Ref identifies one stored credential version.
type Ref struct {
	Carrier     string              `json:"carrier"`
	Type        string              `json:"type"`
	Environment carrier.Environment `json:"environment"`
	Version     int                 `json:"version"`
}

// Status describes one tuple's active credential without exposing plaintext.
type Status struct {
	Carrier     string              `json:"carrier"`
	Type        string              `json:"type"`
	Environment carrier.Environment `json:"environment"`
	Active      bool                `json:"active"`
	Age         time.Duration       `json:"age_seconds"`
	Versions    int                 `json:"versions"`
}

type record struct {
	version    int
	ciphertext []byte
	createdAt  time.Time
	active     bool
}

type tuple struct {
	carrier string
	typ     string
	env     carrier.Environment
}

// Store is the in-memory encrypted credential store. Reads take the shared
// lock and never block each other; writes (store, rotate) take the exclusive
// lock for the mutated tuple's record list.
type Store struct {
	aead   cipher.AEAD
	schema map[string][]string // carrier code -> recognized credential types

	mu      sync.RWMutex
	records map[tuple][]record

	logger *zap.Logger
}

// ErrNotFound is wrapped into a CREDENTIAL_NOT_FOUND carrier error by Resolve.
var ErrNotFound = errors.New("credential not found")

// NewStore creates a store keyed by the process-wide master key (base64,
// 32 bytes after decoding). The schema maps each carrier code to the exact
// credential types it recognizes; storing an unlisted type is rejected.
func NewStore(masterKey string, schema map[string][]string, logger *zap.Logger) (*Store, error) {
	key, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initializing GCM: %w", err)
	}

	return &Store{
		aead:    aead,
		schema:  schema,
		records: make(map[tuple][]record),
		logger:  logger,
	}, nil
}

// Store encrypts and saves a new active credential for the tuple. It fails
// if an active credential already exists (use Rotate) or if the carrier does
// not recognize the credential type.
func (s *Store) Store(carrierCode, credType string, env carrier.Environment, plaintext string) (Ref, error) {
	if err := s.validateType(carrierCode, credType); err != nil {
		return Ref{}, err
	}
	ct, err := s.encrypt(plaintext)
	if err != nil {
		return Ref{}, err
	}

	k := tuple{carrier: carrierCode, typ: credType, env: env}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records[k] {
		if r.active {
			return Ref{}, fmt.Errorf("active credential already exists for %s/%s/%s, rotate instead",
				carrierCode, credType, env)
		}
	}

	version := len(s.records[k]) + 1
	s.records[k] = append(s.records[k], record{
		version:    version,
		ciphertext: ct,
		createdAt:  time.Now(),
		active:     true,
	})

	s.logger.Info("credential stored",
		zap.String("carrier", carrierCode),
		zap.String("type", credType),
		zap.String("environment", string(env)),
		zap.Int("version", version),
	)
	return Ref{Carrier: carrierCode, Type: credType, Environment: env, Version: version}, nil
}

// Resolve decrypts and returns the active credential for the tuple. The
// plaintext is returned to the caller and never logged.
func (s *Store) Resolve(carrierCode, credType string, env carrier.Environment) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.records[tuple{carrier: carrierCode, typ: credType, env: env}]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].active {
			return s.decrypt(recs[i].ciphertext)
		}
	}
	return "", carrier.NewError(carrierCode, carrier.KindCredentialNotFound,
		fmt.Sprintf("no active %s credential for %s environment", credType, env)).
		WithCause(ErrNotFound)
}

// Rotate atomically deactivates the current credential and activates the new
// value. The prior version is retained for audit.
func (s *Store) Rotate(carrierCode, credType string, env carrier.Environment, newPlaintext string) (Ref, error) {
	if err := s.validateType(carrierCode, credType); err != nil {
		return Ref{}, err
	}
	ct, err := s.encrypt(newPlaintext)
	if err != nil {
		return Ref{}, err
	}

	k := tuple{carrier: carrierCode, typ: credType, env: env}

	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.records[k]
	if len(recs) == 0 {
		return Ref{}, carrier.NewError(carrierCode, carrier.KindCredentialNotFound,
			"nothing to rotate").WithCause(ErrNotFound)
	}
	for i := range recs {
		recs[i].active = false
	}

	version := len(recs) + 1
	s.records[k] = append(recs, record{
		version:    version,
		ciphertext: ct,
		createdAt:  time.Now(),
		active:     true,
	})

	s.logger.Info("credential rotated",
		zap.String("carrier", carrierCode),
		zap.String("type", credType),
		zap.String("environment", string(env)),
		zap.Int("version", version),
	)
	return Ref{Carrier: carrierCode, Type: credType, Environment: env, Version: version}, nil
}

// StatusFor lists the state of every stored tuple, optionally filtered by
// carrier. Plaintext values are never included.
func (s *Store) StatusFor(carrierCode string) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	out := make([]Status, 0, len(s.records))
	for k, recs := range s.records {
		if carrierCode != "" && k.carrier != carrierCode {
			continue
		}
		st := Status{
			Carrier:     k.carrier,
			Type:        k.typ,
			Environment: k.env,
			Versions:    len(recs),
		}
		for i := len(recs) - 1; i >= 0; i-- {
			if recs[i].active {
				st.Active = true
				st.Age = now.Sub(recs[i].createdAt)
				break
			}
		}
		out = append(out, st)
	}
	return out
}

func (s *Store) validateType(carrierCode, credType string) error {
	types, ok := s.schema[carrierCode]
	if !ok {
		return carrier.NewError(carrierCode, carrier.KindUnknownCarrier,
			"no credential schema registered")
	}
	for _, t := range types {
		if t == credType {
			return nil
		}
	}
	return fmt.Errorf("carrier %s does not recognize credential type %q", carrierCode, credType)
}

func (s *Store) encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

func (s *Store) decrypt(ciphertext []byte) (string, error) {
	ns := s.aead.NonceSize()
	if len(ciphertext) < ns {
		return "", errors.New("ciphertext shorter than nonce")
	}
	plaintext, err := s.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypting credential: %w", err)
	}
	return string(plaintext), nil
}
