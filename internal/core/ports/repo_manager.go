package ports

import "github.com/arkade-os/bridged/internal/core/domain"

type RepoManager interface {
	Events() domain.EventRepository
	Transfers() domain.TransferRepository
	Close()
}
