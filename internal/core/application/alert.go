package application

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/arkade-os/bridged/internal/core/domain"
	"github.com/arkade-os/bridged/internal/core/ports"
	"github.com/arkade-os/bridged/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func (s *service) publishAlert(topic ports.Topic, message any) {
	if s.alerts == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.alerts.Publish(ctx, topic, message); err != nil {
		log.WithError(err).WithField("topic", topic).Warn("failed to publish alert")
	}
}

// alertIfInconsistent publishes an InconsistentState alert if err carries that code.
func (s *service) alertIfInconsistent(operation, transferId string, err errors.Error) {
	if err == nil || !errors.INCONSISTENT_STATE.Is(err) {
		return
	}
	alert := ports.InconsistentStateAlert{
		Operation:  operation,
		TransferId: transferId,
		Reason:     err.Error(),
	}
	var volErr *domain.VolumeError
	if goerrors.As(err, &volErr) {
		alert.Key = volErr.Key
		alert.Volume = volErr.Volume
		alert.Credit = volErr.Credit
		alert.DailyCap = volErr.DailyCap
	}

	err.Log().WithField("transfer_id", transferId).Error("inconsistent capacity state")
	go s.publishAlert(ports.InconsistentState, alert)
}

func (s *service) alertIfExhausted(capacity domain.DailyCapacity, key string, now time.Time) {
	if capacity.Available(now) > 0 {
		return
	}
	go s.publishAlert(ports.CapacityExhausted, ports.CapacityExhaustedAlert{
		Key:       key,
		DailyCap:  capacity.DailyCap,
		LastReset: capacity.LastReset,
	})
}
