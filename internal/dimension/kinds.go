package dimension

import (
	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"

	"gorm.io/gorm"
)

type (
	TeamService    = Service[domain.Team, *domain.Team]
	NetworkService = Service[domain.Network, *domain.Network]
)

func NewTeamService(db *gorm.DB, recorder audit.Recorder, invalidator Invalidator) *TeamService {
	return NewService[domain.Team, *domain.Team](TeamKind, NewRepository[domain.Team, *domain.Team](db), recorder, invalidator)
}

func NewNetworkService(db *gorm.DB, recorder audit.Recorder, invalidator Invalidator) *NetworkService {
	return NewService[domain.Network, *domain.Network](NetworkKind, NewRepository[domain.Network, *domain.Network](db), recorder, invalidator)
}
