package staticregistry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type chainConfig struct {
	Id               string        `yaml:"id"`
	BlobSupported    bool          `yaml:"blobSupported"`
	AverageBlockTime time.Duration `yaml:"averageBlockTime"`
	GasToken         string        `yaml:"gasToken"`
	GasPrice         uint64        `yaml:"gasPrice"`
	BlobGasPrice     uint64        `yaml:"blobGasPrice"`
	BlobBaseFee      uint64        `yaml:"blobBaseFee"`
}

type registryFile struct {
	Chains []chainConfig `yaml:"chains"`
}

// DefaultChains are served when no chains file is configured. Prices are in wei.
var DefaultChains = []domain.ChainInfo{
	{
		Id:               "ethereum",
		BlobSupported:    true,
		AverageBlockTime: 12 * time.Second,
		GasToken:         "ETH",
		GasPrice:         20_000_000_000,
		BlobGasPrice:     1,
		BlobBaseFee:      420_000_000_000_000,
	},
	{
		Id:               "arbitrum",
		AverageBlockTime: 250 * time.Millisecond,
		GasToken:         "ETH",
		GasPrice:         10_000_000,
	},
	{
		Id:               "optimism",
		AverageBlockTime: 2 * time.Second,
		GasToken:         "ETH",
		GasPrice:         1_000_000,
	},
	{
		Id:               "base",
		AverageBlockTime: 2 * time.Second,
		GasToken:         "ETH",
		GasPrice:         1_000_000,
	},
	{
		Id:               "polygon",
		AverageBlockTime: 2 * time.Second,
		GasToken:         "POL",
		GasPrice:         30_000_000_000,
	},
}

type chainRegistry struct {
	lock   *sync.RWMutex
	chains map[string]domain.ChainInfo
	order  []string
}

// NewChainRegistry loads the chains from the given yaml file, or uses DefaultChains if the
// path is empty.
func NewChainRegistry(path string) (ports.ChainRegistry, error) {
	chains := DefaultChains
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read chains file: %w", err)
		}
		chains, err = parseChains(buf)
		if err != nil {
			return nil, fmt.Errorf("invalid chains file %s: %w", path, err)
		}
	}
	return NewChainRegistryFromList(chains)
}

func NewChainRegistryFromList(chains []domain.ChainInfo) (ports.ChainRegistry, error) {
	registry := &chainRegistry{
		lock:   &sync.RWMutex{},
		chains: make(map[string]domain.ChainInfo, len(chains)),
		order:  make([]string, 0, len(chains)),
	}
	for _, chain := range chains {
		chain.Id = strings.TrimSpace(chain.Id)
		if chain.Id == "" {
			return nil, fmt.Errorf("missing chain id")
		}
		if _, ok := registry.chains[chain.Id]; ok {
			return nil, fmt.Errorf("duplicate chain %s", chain.Id)
		}
		registry.chains[chain.Id] = chain
		registry.order = append(registry.order, chain.Id)
	}

	log.Debugf("loaded %d chains", len(chains))
	return registry, nil
}

func (r *chainRegistry) GetChain(_ context.Context, chainId string) (*domain.ChainInfo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	chain, ok := r.chains[chainId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownChain, chainId)
	}
	return &chain, nil
}

func (r *chainRegistry) ListChains(_ context.Context) ([]domain.ChainInfo, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	chains := make([]domain.ChainInfo, 0, len(r.order))
	for _, id := range r.order {
		chains = append(chains, r.chains[id])
	}
	return chains, nil
}

func (r *chainRegistry) Close() {}

func parseChains(buf []byte) ([]domain.ChainInfo, error) {
	var file registryFile
	if err := yaml.Unmarshal(buf, &file); err != nil {
		return nil, err
	}
	if len(file.Chains) == 0 {
		return nil, fmt.Errorf("no chains defined")
	}

	chains := make([]domain.ChainInfo, 0, len(file.Chains))
	for _, c := range file.Chains {
		if c.BlobSupported && c.BlobGasPrice == 0 {
			return nil, fmt.Errorf("chain %s supports blobs but has no blob gas price", c.Id)
		}
		chains = append(chains, domain.ChainInfo{
			Id:               c.Id,
			BlobSupported:    c.BlobSupported,
			AverageBlockTime: c.AverageBlockTime,
			GasToken:         c.GasToken,
			GasPrice:         c.GasPrice,
			BlobGasPrice:     c.BlobGasPrice,
			BlobBaseFee:      c.BlobBaseFee,
		})
	}
	return chains, nil
}
