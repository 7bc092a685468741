package project

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"

	"gorm.io/gorm"
)

type Invalidator interface {
	Invalidate(ctx context.Context)
}

// Input is the writable part of a project.
type Input struct {
	Name        string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type Detail struct {
	domain.Project
	ChannelIDs []uint64 `json:"channel_ids"`
}

type Service interface {
	List(ctx context.Context) ([]domain.Project, error)
	Get(ctx context.Context, id uint64) (*Detail, error)
	Create(ctx context.Context, actorID uint64, in Input) (*domain.Project, error)
	Update(ctx context.Context, actorID, id uint64, in Input) (*domain.Project, error)
	Delete(ctx context.Context, actorID, id uint64) error
	LinkChannel(ctx context.Context, actorID, projectID, channelID uint64) error
	UnlinkChannel(ctx context.Context, actorID, projectID, channelID uint64) error
}

type DefaultService struct {
	repository Repository
	audit      audit.Recorder
	invalidate Invalidator
}

func NewService(repository Repository, recorder audit.Recorder, invalidator Invalidator) Service {
	return &DefaultService{repository: repository, audit: recorder, invalidate: invalidator}
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.BadRequest("name is required", nil)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return errors.BadRequest("end_date must not be before start_date", nil)
	}
	return nil
}

func (in Input) apply(p *domain.Project) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
}

func (s *DefaultService) List(ctx context.Context) ([]domain.Project, error) {
	projects, err := s.repository.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return projects, nil
}

func (s *DefaultService) Get(ctx context.Context, id uint64) (*Detail, error) {
	p, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	ids, err := s.repository.ChannelIDs(ctx, id)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Detail{Project: *p, ChannelIDs: ids}, nil
}

func (s *DefaultService) Create(ctx context.Context, actorID uint64, in Input) (*domain.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p := &domain.Project{}
	in.apply(p)
	if err := s.repository.Create(ctx, p); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, actorID, "project.create", p.ID, map[string]any{"name": p.Name})
	return p, nil
}

func (s *DefaultService) Update(ctx context.Context, actorID, id uint64, in Input) (*domain.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	p, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	in.apply(p)
	if err := s.repository.Save(ctx, p); err != nil {
		return nil, translate(err)
	}

	s.record(ctx, actorID, "project.update", id, map[string]any{"name": p.Name})
	s.invalidate.Invalidate(ctx)
	return p, nil
}

func (s *DefaultService) Delete(ctx context.Context, actorID, id uint64) error {
	if err := s.repository.Delete(ctx, id); err != nil {
		return translate(err)
	}

	s.record(ctx, actorID, "project.delete", id, nil)
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *DefaultService) LinkChannel(ctx context.Context, actorID, projectID, channelID uint64) error {
	if _, err := s.repository.FindByID(ctx, projectID); err != nil {
		return translate(err)
	}
	ok, err := s.repository.ChannelExists(ctx, channelID)
	if err != nil {
		return errors.Internal(err)
	}
	if !ok {
		return errors.NotFound("Channel not found", nil)
	}

	if err := s.repository.LinkChannel(ctx, projectID, channelID); err != nil {
		return errors.Internal(err)
	}

	s.record(ctx, actorID, "project.link_channel", projectID, map[string]any{"channel_id": channelID})
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *DefaultService) UnlinkChannel(ctx context.Context, actorID, projectID, channelID uint64) error {
	removed, err := s.repository.UnlinkChannel(ctx, projectID, channelID)
	if err != nil {
		return errors.Internal(err)
	}
	if !removed {
		return errors.NotFound("Channel is not linked to this project", nil)
	}

	s.record(ctx, actorID, "project.unlink_channel", projectID, map[string]any{"channel_id": channelID})
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *DefaultService) record(ctx context.Context, actorID uint64, action string, id uint64, meta map[string]any) {
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     action,
		EntityType: audit.EntityProject,
		EntityID:   id,
		Metadata:   meta,
	})
}

func translate(err error) error {
	switch {
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound("Project not found", err)
	case stdErrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Conflict("Project name already exists", err)
	default:
		return errors.Internal(err)
	}
}
