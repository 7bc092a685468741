package channel

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"strings"

	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/visibility"

	"gorm.io/gorm"
)

type ScopeResolver interface {
	Resolve(ctx context.Context, caller visibility.Caller) (visibility.Scope, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// OptionalID tells an absent JSON field apart from an explicit null.
type OptionalID struct {
	Set   bool
	Value *uint64
}

func (o *OptionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v uint64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if v == 0 {
		o.Value = nil
		return nil
	}
	o.Value = &v
	return nil
}

func Some(id uint64) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

type CreateInput struct {
	Name             string
	YoutubeChannelID string
	TeamID           *uint64
	NetworkID        *uint64
	ManagerID        *uint64
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name      *string
	Status    *string
	TeamID    OptionalID
	NetworkID OptionalID
	ManagerID OptionalID
}

type Service interface {
	List(ctx context.Context, caller visibility.Caller) ([]View, error)
	Mine(ctx context.Context, staffID uint64) ([]View, error)
	Create(ctx context.Context, actorID uint64, in CreateInput) (*domain.Channel, error)
	Update(ctx context.Context, actorID, id uint64, in UpdateInput) (*domain.Channel, error)
	Assign(ctx context.Context, actorID, staffID, channelID uint64, role string) error
	Unassign(ctx context.Context, actorID, staffID, channelID uint64, role string) error
	Delete(ctx context.Context, actorID, id uint64) error
}

type DefaultService struct {
	repository Repository
	resolver   ScopeResolver
	audit      audit.Recorder
	invalidate Invalidator
}

func NewService(repository Repository, resolver ScopeResolver, recorder audit.Recorder, invalidator Invalidator) Service {
	return &DefaultService{
		repository: repository,
		resolver:   resolver,
		audit:      recorder,
		invalidate: invalidator,
	}
}

func (s *DefaultService) List(ctx context.Context, caller visibility.Caller) ([]View, error) {
	scope, err := s.resolver.Resolve(ctx, caller)
	if err != nil {
		return nil, errors.Internal(err)
	}
	rows, err := s.repository.List(ctx, scope)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return rows, nil
}

func (s *DefaultService) Mine(ctx context.Context, staffID uint64) ([]View, error) {
	rows, err := s.repository.ListForStaff(ctx, staffID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return rows, nil
}

func (s *DefaultService) Create(ctx context.Context, actorID uint64, in CreateInput) (*domain.Channel, error) {
	name := strings.TrimSpace(in.Name)
	ytID := strings.TrimSpace(in.YoutubeChannelID)
	if name == "" || ytID == "" {
		return nil, errors.BadRequest("name and youtube_channel_id are required", nil)
	}
	if err := s.checkStaff(ctx, in.ManagerID); err != nil {
		return nil, err
	}

	ch := &domain.Channel{
		Name:             name,
		YoutubeChannelID: ytID,
		TeamID:           in.TeamID,
		NetworkID:        in.NetworkID,
		Status:           domain.ChannelActive,
	}
	if err := s.repository.Create(ctx, ch, in.ManagerID); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, actorID, "channel.create", ch.ID, map[string]any{
		"name":               ch.Name,
		"youtube_channel_id": ch.YoutubeChannelID,
	})
	s.invalidate.Invalidate(ctx)
	return ch, nil
}

func (s *DefaultService) Update(ctx context.Context, actorID, id uint64, in UpdateInput) (*domain.Channel, error) {
	ch, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}

	changes := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, errors.BadRequest("name must not be empty", nil)
		}
		ch.Name = name
		changes["name"] = name
	}
	if in.Status != nil {
		if *in.Status != domain.ChannelActive && *in.Status != domain.ChannelDeleted {
			return nil, errors.BadRequest("Invalid status", nil)
		}
		ch.Status = *in.Status
		changes["status"] = ch.Status
	}
	if in.TeamID.Set {
		ch.TeamID = in.TeamID.Value
		changes["team_id"] = ch.TeamID
	}
	if in.NetworkID.Set {
		ch.NetworkID = in.NetworkID.Value
		changes["network_id"] = ch.NetworkID
	}
	if in.ManagerID.Set {
		if err := s.checkStaff(ctx, in.ManagerID.Value); err != nil {
			return nil, err
		}
		changes["manager_id"] = in.ManagerID.Value
	}

	if err := s.repository.Update(ctx, ch, in.ManagerID.Set, in.ManagerID.Value); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, actorID, "channel.update", id, changes)
	s.invalidate.Invalidate(ctx)
	return ch, nil
}

func (s *DefaultService) Assign(ctx context.Context, actorID, staffID, channelID uint64, role string) error {
	if role == "" {
		role = domain.AssignmentManager
	}
	if !validAssignment(role) {
		return errors.BadRequest("Invalid role", nil)
	}
	if err := s.checkStaff(ctx, &staffID); err != nil {
		return err
	}
	if _, err := s.repository.FindByID(ctx, channelID); err != nil {
		return translate(err)
	}

	if err := s.repository.Assign(ctx, staffID, channelID, role); err != nil {
		return translate(err)
	}

	s.record(ctx, actorID, "channel.assign", channelID, map[string]any{"staff_id": staffID, "role": role})
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *DefaultService) Unassign(ctx context.Context, actorID, staffID, channelID uint64, role string) error {
	if role == "" {
		role = domain.AssignmentManager
	}
	if !validAssignment(role) {
		return errors.BadRequest("Invalid role", nil)
	}

	removed, err := s.repository.Unassign(ctx, staffID, channelID, role)
	if err != nil {
		return errors.Internal(err)
	}
	if !removed {
		return errors.NotFound("Assignment not found", nil)
	}

	s.record(ctx, actorID, "channel.unassign", channelID, map[string]any{"staff_id": staffID, "role": role})
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *DefaultService) Delete(ctx context.Context, actorID, id uint64) error {
	if err := s.repository.SoftDelete(ctx, id); err != nil {
		return translate(err)
	}

	s.record(ctx, actorID, "channel.delete", id, nil)
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *DefaultService) checkStaff(ctx context.Context, staffID *uint64) error {
	if staffID == nil {
		return nil
	}
	ok, err := s.repository.StaffActive(ctx, *staffID)
	if err != nil {
		return errors.Internal(err)
	}
	if !ok {
		return errors.NotFound("Staff not found", nil)
	}
	return nil
}

func (s *DefaultService) record(ctx context.Context, actorID uint64, action string, id uint64, meta map[string]any) {
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: audit.EntityChannel,
		EntityID:   id,
		Metadata:   meta,
	})
}

func validAssignment(role string) bool {
	return role == domain.AssignmentManager || role == domain.AssignmentEditor
}

func translate(err error) error {
	switch {
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound("Channel not found", err)
	case stdErrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Conflict("Channel already exists", err)
	case stdErrors.Is(err, gorm.ErrForeignKeyViolated):
		return errors.BadRequest("Unknown team or network", err)
	default:
		return errors.Internal(err)
	}
}
