package youtube

import (
	"context"
	"net/http"

	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/logging"
)

// StateSigner issues and checks the OAuth state parameter, binding a consent
// flow to the staff member who started it.
type StateSigner interface {
	GenerateState(staffID uint64) (string, error)
	VerifyState(state string) (uint64, error)
}

type ConnectService struct {
	connector  Connector
	states     StateSigner
	repository Repository
	audit      audit.Recorder
	invalidate Invalidator
}

func NewConnectService(connector Connector, states StateSigner, repository Repository, recorder audit.Recorder, invalidator Invalidator) *ConnectService {
	return &ConnectService{
		connector:  connector,
		states:     states,
		repository: repository,
		audit:      recorder,
		invalidate: invalidator,
	}
}

func (s *ConnectService) ConnectURL(staffID uint64) (string, error) {
	state, err := s.states.GenerateState(staffID)
	if err != nil {
		return "", errors.Internal(err)
	}
	return s.connector.AuthCodeURL(state), nil
}

// Complete finishes the consent flow: it checks state, exchanges code and
// stores the connection with its channels.
func (s *ConnectService) Complete(ctx context.Context, code, state string) ([]uint64, error) {
	if code == "" || state == "" {
		return nil, errors.BadRequest("Missing code or state", nil)
	}
	staffID, err := s.states.VerifyState(state)
	if err != nil {
		return nil, errors.BadRequest("Invalid state", err)
	}

	acct, err := s.connector.Exchange(ctx, code)
	if err != nil {
		return nil, errors.New(http.StatusBadGateway, "Failed to reach Google", err)
	}
	if acct.Token == nil || acct.Token.RefreshToken == "" {
		logging.Ctx(ctx).Warn().Uint64("staff_id", staffID).Msg("google returned no refresh token, channels will not sync")
	}

	ids, err := s.repository.SaveConnection(ctx, staffID, acct)
	if err != nil {
		return nil, errors.Internal(err)
	}

	for _, id := range ids {
		s.audit.Record(ctx, audit.Entry{
			ActorID:    staffID,
			Action:     "channel.connect",
			EntityType: audit.EntityChannel,
			EntityID:   id,
		})
	}
	s.invalidate.Invalidate(ctx)
	return ids, nil
}
