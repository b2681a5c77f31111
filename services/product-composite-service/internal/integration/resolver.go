package integration

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/patrickmn/go-cache"
)

// Resolver преобразует имя хоста в адрес
type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

// NetResolver резолвит имена через DNS
type NetResolver struct {
	resolver *net.Resolver
}

func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

func (r *NetResolver) Resolve(ctx context.Context, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	addrs, err := r.resolver.LookupHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("failed to resolve host %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for host %s", host)
	}
	return addrs[0], nil
}

// CachingResolver кэширует результаты резолвинга на ttl.
// Ошибки не кэшируются.
type CachingResolver struct {
	next   Resolver
	cache  *cache.Cache
	logger interfaces.LoggerPort
}

func NewCachingResolver(next Resolver, ttl time.Duration, logger interfaces.LoggerPort) *CachingResolver {
	return &CachingResolver{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (r *CachingResolver) Resolve(ctx context.Context, host string) (string, error) {
	if addr, ok := r.cache.Get(host); ok {
		return addr.(string), nil
	}

	addr, err := r.next.Resolve(ctx, host)
	if err != nil {
		return "", err
	}

	r.cache.SetDefault(host, addr)
	r.logger.DebugWithContext(ctx, "Адрес хоста сохранен в кэш",
		interfaces.LogField{Key: "host", Value: host},
		interfaces.LogField{Key: "address", Value: addr})
	return addr, nil
}
