package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Staff roles, lowest privilege first. RoleDeleted marks a soft-deleted account.
const (
	RoleDeleted = "deleted"
	RoleViewer  = "viewer"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

var roleRank = map[string]int{
	RoleViewer:  1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// RoleRank returns the position of role in the privilege order. Unknown and
// deleted roles rank 0.
func RoleRank(role string) int {
	return roleRank[role]
}

// ValidRole reports whether role can be assigned to an active staff member.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// Channel association roles.
const (
	AssignmentManager = "manager"
	AssignmentEditor  = "editor"
)

// Channel lifecycle states.
const (
	ChannelActive  = "active"
	ChannelDeleted = "deleted"
)

type Staff struct {
	ID           uint64 `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Password     string `gorm:"-"` // input only, not stored in db
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:viewer;index"`
	TokenVersion uint64 `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Staff) TableName() string { return "staff_users" }

// IsDeleted reports whether the account was soft deleted.
func (s *Staff) IsDeleted() bool {
	return s.Role == RoleDeleted
}

// SafeStaff represents a staff member without sensitive information
type SafeStaff struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Staff) ToSafeStaff() SafeStaff {
	return SafeStaff{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		CreatedAt: s.CreatedAt,
	}
}

type Team struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Team) Key() uint64 { return t.ID }

func (t *Team) Apply(name string, description *string) {
	t.Name = name
	t.Description = description
}

type Network struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (n *Network) Key() uint64 { return n.ID }

func (n *Network) Apply(name string, description *string) {
	n.Name = name
	n.Description = description
}

type Project struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;not null" json:"name"`
	Description *string    `json:"description"`
	StartDate   *time.Time `gorm:"type:date" json:"start_date"`
	EndDate     *time.Time `gorm:"type:date" json:"end_date"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Task statuses. Published and cancelled tasks are closed.
const (
	TaskIdea      = "idea"
	TaskScript    = "script"
	TaskShooting  = "shooting"
	TaskEditing   = "editing"
	TaskReview    = "review"
	TaskScheduled = "scheduled"
	TaskPublished = "published"
	TaskCancelled = "cancelled"
)

// PipelineStages lists the production board columns in display order.
var PipelineStages = []string{"Idea", "Script", "Shooting", "Editing", "Review", "Scheduled", "Published"}

type ChecklistItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Task is a unit of video production work, optionally tied to a channel and
// a project.
type Task struct {
	ID             uint64                             `gorm:"primaryKey" json:"id"`
	Title          string                             `gorm:"not null" json:"title"`
	ChannelID      *uint64                            `gorm:"index" json:"channel_id"`
	Channel        *Channel                           `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ProjectID      *uint64                            `gorm:"index" json:"project_id"`
	Project        *Project                           `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	YoutubeVideoID *string                            `json:"youtube_video_id"`
	Status         string                             `gorm:"not null;default:idea;index" json:"status"`
	PipelineStage  string                             `gorm:"not null;default:Idea" json:"pipeline_stage"`
	AssigneeID     *uint64                            `gorm:"index" json:"assignee_id"`
	Assignee       *Staff                             `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	DueDate        *time.Time                         `gorm:"type:date" json:"due_date"`
	Checklist      datatypes.JSONSlice[ChecklistItem] `gorm:"type:jsonb;not null;default:'[]'" json:"checklist"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`
}

type YoutubeConnection struct {
	ID               uint64 `gorm:"primaryKey"`
	StaffID          uint64 `gorm:"not null;index"`
	Staff            Staff  `gorm:"constraint:OnDelete:CASCADE"`
	GoogleEmail      *string
	ChannelOwnerName *string
	AccessToken      *string
	RefreshToken     *string
	TokenExpiry      *time.Time
	CreatedAt        time.Time
}

type Channel struct {
	ID                uint64             `gorm:"primaryKey" json:"id"`
	Name              string             `gorm:"not null" json:"name"`
	YoutubeChannelID  string             `gorm:"uniqueIndex;not null" json:"youtube_channel_id"`
	NetworkID         *uint64            `gorm:"index" json:"network_id"`
	Network           *Network           `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	TeamID            *uint64            `gorm:"index" json:"team_id"`
	Team              *Team              `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	OwnerConnectionID *uint64            `gorm:"index" json:"owner_connection_id"`
	OwnerConnection   *YoutubeConnection `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Status            string             `gorm:"not null;default:active;index" json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
}

// StaffChannel links a staff member to a channel with a role tag. One staff
// member may hold several roles on the same channel.
type StaffChannel struct {
	ID        uint64  `gorm:"primaryKey"`
	StaffID   uint64  `gorm:"not null;uniqueIndex:idx_staff_channel_role,priority:1"`
	Staff     Staff   `gorm:"constraint:OnDelete:CASCADE"`
	ChannelID uint64  `gorm:"not null;uniqueIndex:idx_staff_channel_role,priority:2;index"`
	Channel   Channel `gorm:"constraint:OnDelete:CASCADE"`
	Role      string  `gorm:"not null;default:manager;uniqueIndex:idx_staff_channel_role,priority:3"`
}

type ProjectChannel struct {
	ID        uint64  `gorm:"primaryKey"`
	ProjectID uint64  `gorm:"not null;uniqueIndex:idx_project_channel,priority:1"`
	Project   Project `gorm:"constraint:OnDelete:CASCADE"`
	ChannelID uint64  `gorm:"not null;uniqueIndex:idx_project_channel,priority:2"`
	Channel   Channel `gorm:"constraint:OnDelete:CASCADE"`
}

// MetricDay is one row of daily channel figures, unique per (channel, date).
type MetricDay struct {
	ID               uint64          `gorm:"primaryKey"`
	ChannelID        uint64          `gorm:"not null;uniqueIndex:channel_metrics_daily_unique,priority:1"`
	Channel          Channel         `gorm:"constraint:OnDelete:CASCADE"`
	Date             time.Time       `gorm:"type:date;not null;uniqueIndex:channel_metrics_daily_unique,priority:2;index"`
	Views            int64           `gorm:"not null;default:0"`
	WatchTimeMinutes int64           `gorm:"not null;default:0"`
	Revenue          decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0"`
	SubsGained       int64           `gorm:"not null;default:0"`
	SubsLost         int64           `gorm:"not null;default:0"`
}

func (MetricDay) TableName() string { return "channel_metrics_daily" }

type AuditLog struct {
	ID          uint64            `gorm:"primaryKey" json:"id"`
	ActorUserID *uint64           `gorm:"index" json:"actor_user_id"`
	Action      string            `gorm:"not null" json:"action"`
	EntityType  string            `gorm:"not null;index:audit_logs_entity_idx,priority:1" json:"entity_type"`
	EntityID    *uint64           `gorm:"index:audit_logs_entity_idx,priority:2" json:"entity_id"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}
