package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/2beens/ninjatraining/internal/telemetry/tracing"
	"github.com/2beens/ninjatraining/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/ipinfo/go/v2/ipinfo"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TimezoneHeader = "X-Timezone"
	cacheTTL       = 24 * time.Hour
)

var ErrNoTimezone = errors.New("no timezone for ip")

type ipInfoClient interface {
	GetIPInfo(ip net.IP) (*ipinfo.Core, error)
}

// Resolver finds the time zone of the user behind a request: the X-Timezone
// header first, then the timezone of the client IP, then UTC.
type Resolver struct {
	mu          sync.Mutex
	ipInfo      ipInfoClient
	redisClient *redis.Client
}

func NewResolver(httpClient *http.Client, ipInfoToken string, redisClient *redis.Client) *Resolver {
	return &Resolver{
		ipInfo:      ipinfo.NewClient(httpClient, nil, ipInfoToken),
		redisClient: redisClient,
	}
}

func (r *Resolver) Location(ctx context.Context, req *http.Request) *time.Location {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geoip.location")
	defer span.End()

	if tz := req.Header.Get(TimezoneHeader); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			span.SetAttributes(attribute.String("tz.source", "header"))
			return loc
		}
		log.Debugf("geoip: invalid timezone header [%s]", tz)
	}

	userIP, err := pkg.ReadUserIP(req)
	if err != nil || userIP == "localhost" {
		span.SetAttributes(attribute.String("tz.source", "default"))
		return time.UTC
	}

	tz, err := r.Timezone(ctx, userIP)
	if err != nil {
		log.Errorf("geoip: timezone for [%s]: %s", userIP, err)
		return time.UTC
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Errorf("geoip: load location [%s]: %s", tz, err)
		return time.UTC
	}

	span.SetAttributes(attribute.String("tz.source", "ip"))
	return loc
}

// Timezone returns the IANA timezone name of ip, cached in redis.
func (r *Resolver) Timezone(ctx context.Context, ip string) (string, error) {
	// concurrent requests of the same user would all miss the cache
	r.mu.Lock()
	defer r.mu.Unlock()

	cacheKey := fmt.Sprintf("ip-timezone::%s", ip)
	cached, err := r.redisClient.Get(ctx, cacheKey).Result()
	switch {
	case err == nil && cached != "":
		return cached, nil
	case err != nil && !errors.Is(err, redis.Nil):
		log.Errorf("geoip: get cached timezone for [%s]: %s", ip, err)
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return "", fmt.Errorf("invalid ip: %s", ip)
	}

	core, err := r.ipInfo.GetIPInfo(parsedIP)
	if err != nil {
		return "", fmt.Errorf("get ip info: %w", err)
	}
	if core == nil || core.Timezone == "" {
		return "", fmt.Errorf("%w: %s", ErrNoTimezone, ip)
	}

	if err := r.redisClient.Set(ctx, cacheKey, core.Timezone, cacheTTL).Err(); err != nil {
		log.Errorf("geoip: cache timezone for [%s]: %s", ip, err)
	}

	return core.Timezone, nil
}
