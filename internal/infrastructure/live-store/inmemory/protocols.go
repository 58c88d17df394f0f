package inmemorylivestore

import (
	"context"
	"sort"
	"sync"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
)

type protocolStore struct {
	lock      sync.RWMutex
	protocols map[string]domain.Protocol
	sequence  uint64
}

func NewProtocolStore() ports.ProtocolStore {
	return &protocolStore{
		protocols: make(map[string]domain.Protocol),
	}
}

func (s *protocolStore) Add(
	_ context.Context, protocol domain.Protocol,
) (*domain.Protocol, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.protocols[protocol.Name]; ok {
		return nil, domain.ErrProtocolExists
	}
	s.sequence++
	protocol.Sequence = s.sequence
	s.protocols[protocol.Name] = protocol
	return &protocol, nil
}

func (s *protocolStore) Get(_ context.Context, name string) (*domain.Protocol, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	protocol, ok := s.protocols[name]
	if !ok {
		return nil, nil
	}
	return &protocol, nil
}

func (s *protocolStore) List(_ context.Context) ([]domain.Protocol, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	protocols := make([]domain.Protocol, 0, len(s.protocols))
	for _, protocol := range s.protocols {
		protocols = append(protocols, protocol)
	}
	sort.SliceStable(protocols, func(i, j int) bool {
		return protocols[i].Sequence < protocols[j].Sequence
	})
	return protocols, nil
}
