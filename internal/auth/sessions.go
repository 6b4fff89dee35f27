package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/ninjatraining/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	TokenHeader      = "X-NINJA-TOKEN"
	sessionKeyPrefix = "ninja-session||"
	tokensSetKey     = "ninja-sessions"
	tokenLength      = 35
)

var errMalformedSession = errors.New("malformed session value")

type Session struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
}

// Sessions keeps login sessions in redis, one key per token plus a set of all tokens.
type Sessions struct {
	redisClient *redis.Client
	ttl         time.Duration
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewSessions(ttl time.Duration, redisClient *redis.Client) *Sessions {
	return &Sessions{
		ttl:            ttl,
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func sessionValue(userID uuid.UUID, createdAt time.Time) string {
	return fmt.Sprintf("%s|%d", userID, createdAt.Unix())
}

func parseSessionValue(value string) (uuid.UUID, time.Time, error) {
	userIDStr, createdAtStr, found := strings.Cut(value, "|")
	if !found {
		return uuid.Nil, time.Time{}, errMalformedSession
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("%w: %w", errMalformedSession, err)
	}

	createdAtUnix, err := strconv.ParseInt(createdAtStr, 10, 64)
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("%w: %w", errMalformedSession, err)
	}

	return userID, time.Unix(createdAtUnix, 0), nil
}

func (s *Sessions) Create(ctx context.Context, userID uuid.UUID, createdAt time.Time) (string, error) {
	token, err := s.RandStringFunc(tokenLength)
	if err != nil {
		return "", err
	}

	sessionKey := sessionKeyPrefix + token
	cmdSet := s.redisClient.Set(ctx, sessionKey, sessionValue(userID, createdAt), 0)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add token to list of sessions
	cmdSAdd := s.redisClient.SAdd(ctx, tokensSetKey, token)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	return token, nil
}

// Delete removes the session of token, reporting whether it existed.
func (s *Sessions) Delete(ctx context.Context, token string) (bool, error) {
	sessionKey := sessionKeyPrefix + token
	cmdDel := s.redisClient.Del(ctx, sessionKey)
	if err := cmdDel.Err(); err != nil {
		return false, err
	}

	// remove token from the list of sessions
	cmdSRem := s.redisClient.SRem(ctx, tokensSetKey, token)
	if err := cmdSRem.Err(); err != nil {
		return false, err
	}

	return cmdDel.Val() > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (s *Sessions) ScanAndClean(ctx context.Context) {
	cmd := s.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! sessions, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Debugln("=> sessions, scan and clean abort, no sessions")
		return
	}

	log.Infof("=> sessions, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		cmd := s.redisClient.Get(ctx, sessionKeyPrefix+token)
		if err := cmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				toRemove = append(toRemove, token)
				continue
			}
			log.Errorf("=> sessions, scan and clean token %s: %s", token, err)
			continue
		}

		_, createdAt, err := parseSessionValue(cmd.Val())
		if err != nil {
			log.Errorf("=> sessions, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if time.Since(createdAt) > s.ttl {
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if _, err := s.Delete(ctx, token); err != nil {
			log.Errorf("=> sessions, clean token %s: %s", token, err)
		}
	}
	log.Infof("=> sessions, scan and clean done, removed %d", len(toRemove))
}
