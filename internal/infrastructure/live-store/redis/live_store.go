package redislivestore

import (
	"fmt"
	"strings"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const defaultRetryDelay = 10 * time.Millisecond

type redisLiveStore struct {
	rdb              *redis.Client
	protocolStore    ports.ProtocolStore
	routeStore       ports.RouteStore
	assetStore       ports.AssetStore
	preferenceStore  ports.PreferenceStore
	statsStore       ports.StatsStore
	reservationStore ports.ReservationStore
}

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	return &redisLiveStore{
		rdb:              rdb,
		protocolStore:    NewProtocolStore(rdb, numOfRetries),
		routeStore:       NewRouteStore(rdb, numOfRetries),
		assetStore:       NewAssetStore(rdb, numOfRetries),
		preferenceStore:  NewPreferenceStore(rdb),
		statsStore:       NewStatsStore(rdb, numOfRetries),
		reservationStore: NewReservationStore(rdb, numOfRetries),
	}
}

func (s *redisLiveStore) Protocols() ports.ProtocolStore {
	return s.protocolStore
}

func (s *redisLiveStore) Routes() ports.RouteStore {
	return s.routeStore
}

func (s *redisLiveStore) Assets() ports.AssetStore {
	return s.assetStore
}

func (s *redisLiveStore) Preferences() ports.PreferenceStore {
	return s.preferenceStore
}

func (s *redisLiveStore) Stats() ports.StatsStore {
	return s.statsStore
}

func (s *redisLiveStore) Reservations() ports.ReservationStore {
	return s.reservationStore
}

func (s *redisLiveStore) Close() {
	if err := s.rdb.Close(); err != nil {
		log.WithError(err).Warn("failed to close redis client")
	}
}

// routeId length prefixes every component, network ids may contain the separator.
func routeId(key domain.RouteKey) string {
	var b strings.Builder
	for _, part := range []string{key.Source, key.Destination, key.Protocol} {
		fmt.Fprintf(&b, "%d:%s", len(part), part)
	}
	return b.String()
}
