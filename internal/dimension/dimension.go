// Package dimension manages the flat grouping entities channels are filed
// under: teams and networks. Both share one implementation parameterised by
// the model type.
package dimension

import (
	"context"
	stdErrors "errors"
	"strings"

	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/errors"

	"gorm.io/gorm"
)

// Model is satisfied by *domain.Team and *domain.Network.
type Model[T any] interface {
	*T
	Key() uint64
	Apply(name string, description *string)
}

// Kind names a dimension for messages, audit entries and actions.
type Kind struct {
	Entity string // audit entity type, e.g. "team"
	Label  string // human label, e.g. "Team"
}

var (
	TeamKind    = Kind{Entity: audit.EntityTeam, Label: "Team"}
	NetworkKind = Kind{Entity: audit.EntityNetwork, Label: "Network"}
)

type Repository[T any, P Model[T]] struct {
	db *gorm.DB
}

func NewRepository[T any, P Model[T]](db *gorm.DB) *Repository[T, P] {
	return &Repository[T, P]{db: db}
}

func (r *Repository[T, P]) List(ctx context.Context) ([]T, error) {
	rows := []T{}
	err := r.db.WithContext(ctx).Order("name ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository[T, P]) FindByID(ctx context.Context, id uint64) (P, error) {
	var row T
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, err
	}
	return P(&row), nil
}

func (r *Repository[T, P]) Create(ctx context.Context, row P) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository[T, P]) Save(ctx context.Context, row P) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete removes the row. Channel references are nulled by the foreign key.
func (r *Repository[T, P]) Delete(ctx context.Context, id uint64) error {
	var row T
	res := r.db.WithContext(ctx).Delete(&row, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type Store[T any, P Model[T]] interface {
	List(ctx context.Context) ([]T, error)
	FindByID(ctx context.Context, id uint64) (P, error)
	Create(ctx context.Context, row P) error
	Save(ctx context.Context, row P) error
	Delete(ctx context.Context, id uint64) error
}

// Invalidator drops cached dashboard results after a dimension changes.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Service[T any, P Model[T]] struct {
	kind       Kind
	store      Store[T, P]
	audit      audit.Recorder
	invalidate Invalidator
}

func NewService[T any, P Model[T]](kind Kind, store Store[T, P], recorder audit.Recorder, invalidator Invalidator) *Service[T, P] {
	return &Service[T, P]{kind: kind, store: store, audit: recorder, invalidate: invalidator}
}

func (s *Service[T, P]) List(ctx context.Context) ([]T, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return rows, nil
}

func (s *Service[T, P]) Create(ctx context.Context, actorID uint64, name string, description *string) (P, error) {
	name = strings.TrimSpace(name)
	row := P(new(T))
	row.Apply(name, description)

	if err := s.store.Create(ctx, row); err != nil {
		return nil, s.translate(err)
	}

	s.record(ctx, actorID, "create", row.Key(), map[string]any{"name": name})
	return row, nil
}

func (s *Service[T, P]) Update(ctx context.Context, actorID, id uint64, name string, description *string) (P, error) {
	row, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}

	name = strings.TrimSpace(name)
	row.Apply(name, description)
	if err := s.store.Save(ctx, row); err != nil {
		return nil, s.translate(err)
	}

	s.record(ctx, actorID, "update", id, map[string]any{"name": name})
	s.invalidate.Invalidate(ctx)
	return row, nil
}

func (s *Service[T, P]) Delete(ctx context.Context, actorID, id uint64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.translate(err)
	}

	s.record(ctx, actorID, "delete", id, nil)
	s.invalidate.Invalidate(ctx)
	return nil
}

func (s *Service[T, P]) record(ctx context.Context, actorID uint64, action string, id uint64, meta map[string]any) {
	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     s.kind.Entity + "." + action,
		EntityType: s.kind.Entity,
		EntityID:   id,
		Metadata:   meta,
	})
}

func (s *Service[T, P]) translate(err error) error {
	switch {
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound(s.kind.Label+" not found", err)
	case stdErrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Conflict(s.kind.Label+" name already exists", err)
	default:
		return errors.Internal(err)
	}
}
