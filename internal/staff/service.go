package staff

import (
	"context"
	stdErrors "errors"
	"strings"

	"mcn-dashboard/internal/audit"
	"mcn-dashboard/internal/domain"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service defines the interface for staff business logic
type Service interface {
	Register(ctx context.Context, s *domain.Staff) error
	Create(ctx context.Context, actorID uint64, s *domain.Staff) error
	Login(ctx context.Context, email, password string) (*domain.Staff, error)
	GetStaffByID(ctx context.Context, id uint64) (*domain.Staff, error)
	Logout(ctx context.Context, id uint64) error
	List(ctx context.Context, page, pageSize int) (*Page, error)
	ChangeRole(ctx context.Context, actorID, id uint64, role string) (*domain.Staff, error)
	Delete(ctx context.Context, actorID, id uint64) error
}

type Page struct {
	Data []domain.SafeStaff `json:"data"`
	Meta utils.PageMeta     `json:"meta"`
}

// Invalidator drops cached dashboard results.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type DefaultService struct {
	repository  Repository
	audit       audit.Recorder
	invalidator Invalidator
}

func NewService(repository Repository, recorder audit.Recorder, invalidator Invalidator) Service {
	return &DefaultService{repository: repository, audit: recorder, invalidator: invalidator}
}

// Register signs up a new viewer. The very first account becomes admin.
func (s *DefaultService) Register(ctx context.Context, st *domain.Staff) error {
	if err := s.prepare(ctx, st); err != nil {
		return err
	}
	st.Role = domain.RoleViewer

	if err := s.repository.CreateBootstrapping(ctx, st); err != nil {
		return translate(err, "Email already registered")
	}
	return nil
}

// Create adds a staff account with an explicit role on behalf of an admin.
func (s *DefaultService) Create(ctx context.Context, actorID uint64, st *domain.Staff) error {
	if !domain.ValidRole(st.Role) {
		return errors.BadRequest("Invalid role", nil)
	}
	if err := s.prepare(ctx, st); err != nil {
		return err
	}

	if err := s.repository.Create(ctx, st); err != nil {
		return translate(err, "Email already registered")
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     "staff.create",
		EntityType: audit.EntityStaff,
		EntityID:   st.ID,
		Metadata:   map[string]any{"email": st.Email, "role": st.Role},
	})
	return nil
}

func (s *DefaultService) prepare(ctx context.Context, st *domain.Staff) error {
	st.Email = strings.ToLower(strings.TrimSpace(st.Email))

	_, err := s.repository.FindByEmail(ctx, st.Email)
	if err != nil && !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Internal(err)
	}
	if err == nil {
		return errors.Conflict("Email already registered", nil)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(st.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal(err)
	}
	st.PasswordHash = string(hashedPassword)
	st.Password = ""
	return nil
}

// Login authenticates by email and password. Unknown emails, wrong passwords
// and deleted accounts all get the same answer.
func (s *DefaultService) Login(ctx context.Context, email, password string) (*domain.Staff, error) {
	invalid := errors.Unauthorized("Invalid email or password", nil)

	st, err := s.repository.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	if st.IsDeleted() {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(st.PasswordHash), []byte(password)); err != nil {
		return nil, invalid
	}
	return st, nil
}

func (s *DefaultService) GetStaffByID(ctx context.Context, id uint64) (*domain.Staff, error) {
	st, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "")
	}
	return st, nil
}

// Logout revokes every token issued to the account so far.
func (s *DefaultService) Logout(ctx context.Context, id uint64) error {
	return s.repository.IncrementTokenVersion(ctx, id)
}

func (s *DefaultService) List(ctx context.Context, page, pageSize int) (*Page, error) {
	staff, total, err := s.repository.List(ctx, page, pageSize)
	if err != nil {
		return nil, errors.Internal(err)
	}

	data := make([]domain.SafeStaff, 0, len(staff))
	for i := range staff {
		data = append(data, staff[i].ToSafeStaff())
	}
	return &Page{Data: data, Meta: utils.NewPageMeta(total, page, pageSize)}, nil
}

// ChangeRole sets a new role and revokes the account's existing tokens so the
// change takes effect immediately.
func (s *DefaultService) ChangeRole(ctx context.Context, actorID, id uint64, role string) (*domain.Staff, error) {
	if !domain.ValidRole(role) {
		return nil, errors.BadRequest("Invalid role", nil)
	}
	if actorID == id {
		return nil, errors.BadRequest("You cannot change your own role", nil)
	}

	before, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "")
	}
	if before.IsDeleted() {
		return nil, errors.NotFound("Staff not found", nil)
	}

	if err := s.repository.UpdateRole(ctx, id, role); err != nil {
		return nil, translate(err, "")
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     "staff.update",
		EntityType: audit.EntityStaff,
		EntityID:   id,
		Metadata: map[string]any{
			"email":   before.Email,
			"changes": map[string]any{"role": map[string]any{"before": before.Role, "after": role}},
		},
	})

	before.Role = role
	return before, nil
}

func (s *DefaultService) Delete(ctx context.Context, actorID, id uint64) error {
	if actorID == id {
		return errors.BadRequest("You cannot delete your own account", nil)
	}

	st, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return translate(err, "")
	}
	if st.IsDeleted() {
		return errors.NotFound("Staff not found", nil)
	}

	if err := s.repository.SoftDelete(ctx, id); err != nil {
		return translate(err, "")
	}
	// the deleted staff's manager rows feed the dashboard views
	s.invalidator.Invalidate(ctx)

	s.audit.Record(ctx, audit.Entry{
		ActorID:    actorID,
		Action:     "staff.delete",
		EntityType: audit.EntityStaff,
		EntityID:   id,
		Metadata:   map[string]any{"email": st.Email},
	})
	return nil
}

func translate(err error, conflictMessage string) error {
	switch {
	case stdErrors.Is(err, gorm.ErrRecordNotFound):
		return errors.NotFound("Staff not found", err)
	case stdErrors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Conflict(conflictMessage, err)
	default:
		return errors.Internal(err)
	}
}
