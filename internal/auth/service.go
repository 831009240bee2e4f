package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/workouttracker/internal/telemetry/tracing"
	"github.com/2beens/workouttracker/pkg"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

const (
	DefaultTTL       = 24 * time.Hour
	sessionKeyPrefix = "workout-tracker-session||"
	tokensSetKey     = "workout-tracker-sessions"
	tokenLength      = 32
)

var ErrSessionNotFound = errors.New("session not found")

// Service keeps login sessions in redis. Each session is a JSON record under
// its own key with a TTL; tokens are also tracked in a set so stale entries
// can be swept and all sessions of a user revoked.
type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	now         func() time.Time
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewService(ttl time.Duration, redisClient *redis.Client) *Service {
	return &Service{
		ttl:            ttl,
		redisClient:    redisClient,
		now:            time.Now,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Create stores a new session for the given identity and returns its token.
func (s *Service) Create(ctx context.Context, session Session) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.session.create")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", session.UserID))

	token, err := s.RandStringFunc(tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = s.now()
	}
	sessionBytes, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := s.redisClient.Set(ctx, sessionKeyPrefix+token, string(sessionBytes), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	// add token to the set of sessions
	if err := s.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return "", fmt.Errorf("track session: %w", err)
	}

	return token, nil
}

// Get returns the session for token, or ErrSessionNotFound when it does not
// exist or has outlived the TTL.
func (s *Service) Get(ctx context.Context, token string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.session.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if token == "" {
		return nil, ErrSessionNotFound
	}

	sessionJson, err := s.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(sessionJson), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	if s.now().Sub(session.CreatedAt) > s.ttl {
		return nil, ErrSessionNotFound
	}

	session.Token = token
	return &session, nil
}

func (s *Service) Destroy(ctx context.Context, token string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.session.destroy")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	deleted, err := s.redisClient.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return fmt.Errorf("untrack session: %w", err)
	}

	if deleted == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DestroyUserSessions revokes every session of the given user and returns how
// many were removed. A token that cannot be read or removed does not stop the
// others from being revoked, the failures are combined into the returned error.
func (s *Service) DestroyUserSessions(ctx context.Context, userID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.session.destroy-user")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("user.id", userID))

	tokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	removed := 0
	var errs error
	for _, token := range tokens {
		session, getErr := s.Get(ctx, token)
		if errors.Is(getErr, ErrSessionNotFound) {
			continue
		}
		if getErr != nil {
			log.Errorf("!!! auth service, destroy user %d sessions, read session: %s", userID, getErr)
			errs = multierr.Append(errs, getErr)
			continue
		}
		if session.UserID != userID {
			continue
		}
		if destroyErr := s.Destroy(ctx, token); destroyErr != nil && !errors.Is(destroyErr, ErrSessionNotFound) {
			log.Errorf("!!! auth service, destroy user %d sessions: %s", userID, destroyErr)
			errs = multierr.Append(errs, destroyErr)
			continue
		}
		removed++
	}

	return removed, errs
}

// ScanAndClean drops tracked tokens whose session key has expired.
func (s *Service) ScanAndClean(ctx context.Context) int {
	tokens, err := s.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return 0
	}

	if len(tokens) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return 0
	}

	log.Debugf("=> auth service, scan and clean [%d sessions] start ...", len(tokens))
	cleaned := 0
	for _, token := range tokens {
		exists, err := s.redisClient.Exists(ctx, sessionKeyPrefix+token).Result()
		if err != nil {
			log.Errorf("=> auth service, scan and clean token: %s", err)
			continue
		}
		if exists > 0 {
			continue
		}

		if err := s.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token: %s", err)
			continue
		}
		cleaned++
	}

	log.Debugf("=> auth service, scan and clean done, removed %d", cleaned)
	return cleaned
}

// RunCleaner calls ScanAndClean every interval until ctx is done.
func (s *Service) RunCleaner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ScanAndClean(ctx)
		}
	}
}
