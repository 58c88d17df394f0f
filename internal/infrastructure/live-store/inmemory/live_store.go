package inmemorylivestore

import "github.com/arkade-os/bridged/internal/core/ports"

type inMemoryLiveStore struct {
	protocolStore    ports.ProtocolStore
	routeStore       *routeStore
	assetStore       *assetStore
	preferenceStore  ports.PreferenceStore
	statsStore       ports.StatsStore
	reservationStore ports.ReservationStore
}

func NewLiveStore() ports.LiveStore {
	routes := NewRouteStore()
	assets := NewAssetStore()
	return &inMemoryLiveStore{
		protocolStore:    NewProtocolStore(),
		routeStore:       routes,
		assetStore:       assets,
		preferenceStore:  NewPreferenceStore(),
		statsStore:       NewStatsStore(),
		reservationStore: NewReservationStore(routes, assets),
	}
}

func (s *inMemoryLiveStore) Protocols() ports.ProtocolStore {
	return s.protocolStore
}

func (s *inMemoryLiveStore) Routes() ports.RouteStore {
	return s.routeStore
}

func (s *inMemoryLiveStore) Assets() ports.AssetStore {
	return s.assetStore
}

func (s *inMemoryLiveStore) Preferences() ports.PreferenceStore {
	return s.preferenceStore
}

func (s *inMemoryLiveStore) Stats() ports.StatsStore {
	return s.statsStore
}

func (s *inMemoryLiveStore) Reservations() ports.ReservationStore {
	return s.reservationStore
}

func (s *inMemoryLiveStore) Close() {}
