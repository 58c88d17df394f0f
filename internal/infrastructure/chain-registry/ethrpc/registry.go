package ethrpcregistry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultRefreshInterval   = 12 * time.Second
	defaultRequestsPerSecond = 2
	requestTimeout           = 5 * time.Second
)

type gasOracle interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	BlobBaseFee(ctx context.Context) (*big.Int, error)
	Close()
}

type Config struct {
	// RpcUrls maps chain ids to the json-rpc endpoint to query for gas prices.
	RpcUrls           map[string]string
	RefreshInterval   time.Duration
	RequestsPerSecond float64
}

type gasPrices struct {
	gasPrice     uint64
	blobGasPrice uint64
}

type chainOracle struct {
	chainId string
	client  gasOracle
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	lock       *sync.Mutex
	prices     *gasPrices
	fetchedAt  time.Time
	refreshing bool
}

type chainRegistry struct {
	base            ports.ChainRegistry
	oracles         map[string]*chainOracle
	refreshInterval time.Duration
	now             func() time.Time
}

// NewChainRegistry serves the chains of the base registry with gas prices fetched from the
// configured nodes. Static prices are served for chains without a node, or when the node
// can't be reached.
func NewChainRegistry(base ports.ChainRegistry, config Config) (ports.ChainRegistry, error) {
	clients := make(map[string]gasOracle, len(config.RpcUrls))
	for chainId, url := range config.RpcUrls {
		if _, err := base.GetChain(context.Background(), chainId); err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("cannot set rpc url of chain %s: %w", chainId, err)
		}
		client, err := ethclient.Dial(url)
		if err != nil {
			closeAll(clients)
			return nil, fmt.Errorf("failed to connect to %s node: %w", chainId, err)
		}
		clients[chainId] = client
	}
	return newChainRegistry(base, clients, config), nil
}

func newChainRegistry(
	base ports.ChainRegistry, clients map[string]gasOracle, config Config,
) *chainRegistry {
	refreshInterval := config.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}
	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	oracles := make(map[string]*chainOracle, len(clients))
	for chainId, client := range clients {
		oracles[chainId] = &chainOracle{
			chainId: chainId,
			client:  client,
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        fmt.Sprintf("%s-rpc", chainId),
				MaxRequests: 1,
				Interval:    time.Minute,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					log.WithFields(log.Fields{
						"name": name,
						"from": from.String(),
						"to":   to.String(),
					}).Warn("rpc circuit breaker state changed")
				},
			}),
			limiter: rate.NewLimiter(rate.Limit(rps), 1),
			lock:    &sync.Mutex{},
		}
	}

	return &chainRegistry{
		base:            base,
		oracles:         oracles,
		refreshInterval: refreshInterval,
		now:             time.Now,
	}
}

func (r *chainRegistry) GetChain(ctx context.Context, chainId string) (*domain.ChainInfo, error) {
	chain, err := r.base.GetChain(ctx, chainId)
	if err != nil {
		return nil, err
	}
	oracle, ok := r.oracles[chainId]
	if !ok {
		return chain, nil
	}

	prices := oracle.current(ctx, chain.BlobSupported, r.now(), r.refreshInterval)
	if prices != nil {
		applyPrices(chain, prices)
	}
	return chain, nil
}

// ListChains serves the last fetched prices without querying the nodes.
func (r *chainRegistry) ListChains(ctx context.Context) ([]domain.ChainInfo, error) {
	chains, err := r.base.ListChains(ctx)
	if err != nil {
		return nil, err
	}
	for i := range chains {
		oracle, ok := r.oracles[chains[i].Id]
		if !ok {
			continue
		}
		if prices := oracle.cached(); prices != nil {
			applyPrices(&chains[i], prices)
		}
	}
	return chains, nil
}

func (r *chainRegistry) Close() {
	for _, oracle := range r.oracles {
		oracle.client.Close()
	}
	r.base.Close()
}

func (o *chainOracle) cached() *gasPrices {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.prices
}

// current returns the cached prices, refreshing them if stale. Only one caller fetches at a
// time, concurrent callers get the cached prices (nil before the first successful fetch).
func (o *chainOracle) current(
	ctx context.Context, blobSupported bool, now time.Time, refreshInterval time.Duration,
) *gasPrices {
	o.lock.Lock()
	fresh := o.prices != nil && now.Sub(o.fetchedAt) < refreshInterval
	if fresh || o.refreshing || !o.limiter.Allow() {
		prices := o.prices
		o.lock.Unlock()
		return prices
	}
	o.refreshing = true
	o.lock.Unlock()

	res, err := o.breaker.Execute(func() (interface{}, error) {
		return o.fetch(ctx, blobSupported)
	})

	o.lock.Lock()
	defer o.lock.Unlock()
	o.refreshing = false

	if err != nil {
		entry := log.WithField("chain", o.chainId)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			entry.Debug("rpc circuit breaker open, serving last known gas prices")
		} else {
			entry.WithError(err).Warn("failed to fetch gas prices")
		}
		return o.prices
	}

	o.prices = res.(*gasPrices)
	o.fetchedAt = now
	return o.prices
}

func (o *chainOracle) fetch(ctx context.Context, blobSupported bool) (*gasPrices, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	gasPrice, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	if !gasPrice.IsUint64() {
		return nil, fmt.Errorf("gas price %s out of range", gasPrice)
	}
	prices := &gasPrices{gasPrice: gasPrice.Uint64()}

	if blobSupported {
		blobGasPrice, err := o.client.BlobBaseFee(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get blob base fee: %w", err)
		}
		if !blobGasPrice.IsUint64() {
			return nil, fmt.Errorf("blob gas price %s out of range", blobGasPrice)
		}
		prices.blobGasPrice = blobGasPrice.Uint64()
	}
	return prices, nil
}

func applyPrices(chain *domain.ChainInfo, prices *gasPrices) {
	chain.GasPrice = prices.gasPrice
	if chain.BlobSupported && prices.blobGasPrice > 0 {
		chain.BlobGasPrice = prices.blobGasPrice
	}
}

func closeAll(clients map[string]gasOracle) {
	for _, client := range clients {
		client.Close()
	}
}
