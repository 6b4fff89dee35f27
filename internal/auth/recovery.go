package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RecoveryTokenTTL  = time.Hour
	recoveryTokenType = "recovery"
	recoveryKeyPrefix = "ninja-recovery||"
)

var ErrInvalidRecoveryToken = errors.New("invalid recovery token")

type recoveryClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// RecoveryTokens issues signed password recovery tokens. Each token id is kept in redis
// until the token is used or expires, so a token works only once.
type RecoveryTokens struct {
	secret      []byte
	ttl         time.Duration
	redisClient *redis.Client
	now         func() time.Time
	newID       func() string
}

func NewRecoveryTokens(secret string, redisClient *redis.Client) *RecoveryTokens {
	return &RecoveryTokens{
		secret:      []byte(secret),
		ttl:         RecoveryTokenTTL,
		redisClient: redisClient,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (rt *RecoveryTokens) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	now := rt.now()
	jti := rt.newID()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, recoveryClaims{
		Type: recoveryTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(rt.ttl)),
		},
	})

	signed, err := token.SignedString(rt.secret)
	if err != nil {
		return "", fmt.Errorf("sign recovery token: %w", err)
	}

	if err := rt.redisClient.Set(ctx, recoveryKeyPrefix+jti, userID.String(), rt.ttl).Err(); err != nil {
		return "", fmt.Errorf("store recovery token: %w", err)
	}

	return signed, nil
}

func (rt *RecoveryTokens) parse(tokenStr string) (*recoveryClaims, uuid.UUID, error) {
	claims := &recoveryClaims{}
	_, err := jwt.ParseWithClaims(
		tokenStr,
		claims,
		func(*jwt.Token) (any, error) { return rt.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(rt.now),
	)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRecoveryToken, err)
	}

	if claims.Type != recoveryTokenType || claims.ID == "" {
		return nil, uuid.Nil, ErrInvalidRecoveryToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%w: subject: %w", ErrInvalidRecoveryToken, err)
	}

	return claims, userID, nil
}

// Verify checks the token without consuming it.
func (rt *RecoveryTokens) Verify(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	claims, userID, err := rt.parse(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}

	exists, err := rt.redisClient.Exists(ctx, recoveryKeyPrefix+claims.ID).Result()
	if err != nil {
		return uuid.Nil, err
	}
	if exists == 0 {
		return uuid.Nil, ErrInvalidRecoveryToken
	}

	return userID, nil
}

// Consume verifies the token and invalidates it, returning the user it was issued for.
func (rt *RecoveryTokens) Consume(ctx context.Context, tokenStr string) (uuid.UUID, error) {
	claims, userID, err := rt.parse(tokenStr)
	if err != nil {
		return uuid.Nil, err
	}

	deleted, err := rt.redisClient.Del(ctx, recoveryKeyPrefix+claims.ID).Result()
	if err != nil {
		return uuid.Nil, err
	}
	if deleted == 0 {
		return uuid.Nil, ErrInvalidRecoveryToken
	}

	return userID, nil
}
