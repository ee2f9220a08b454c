package shared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager issues bearer-token sessions backed by Redis.
type SessionManager struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	secret []byte
}

// Session holds per-request session data.
type Session struct {
	ID        string
	UserID    string
	Email     string
	CreatedAt time.Time
}

type sessionPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrSessionNotFound indicates an unknown or expired token.
var ErrSessionNotFound = errors.New("session not found")

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, prefix string, secret string, ttl time.Duration) *SessionManager {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionManager{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		secret: []byte(secret),
	}
}

// Issue creates a session for the user and returns it with a fresh token.
func (sm *SessionManager) Issue(ctx context.Context, userID, email string) (*Session, error) {
	sess := &Session{
		ID:        sm.generateSessionID(),
		UserID:    userID,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(sessionPayload{UserID: sess.UserID, Email: sess.Email, CreatedAt: sess.CreatedAt})
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Load resolves the bearer token on the request. A request without a token
// yields (nil, nil).
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, nil
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	return &Session{ID: token, UserID: stored.UserID, Email: stored.Email, CreatedAt: stored.CreatedAt}, nil
}

// Touch extends the session lifetime.
func (sm *SessionManager) Touch(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	return sm.client.Expire(ctx, sm.redisKey(sess.ID), sm.ttl).Err()
}

// Destroy removes the session.
func (sm *SessionManager) Destroy(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (sm *SessionManager) redisKey(id string) string {
	return sm.prefix + ":" + id
}

func (sm *SessionManager) generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()
	}
	if len(sm.secret) > 0 {
		for i := range b {
			b[i] ^= sm.secret[i%len(sm.secret)]
		}
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
