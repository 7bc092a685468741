// Package visibility decides which channels a caller may see. Every read of
// channel-scoped data goes through Resolver so the rule lives in one place.
package visibility

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"

	"mcn-dashboard/internal/domain"

	"gorm.io/gorm"
)

// Caller is the authenticated identity a scope is resolved for.
type Caller struct {
	ID   uint64
	Role string
}

// Scope is the set of active channels a caller may see. All means every
// active channel; otherwise ChannelIDs lists them.
type Scope struct {
	All        bool
	ChannelIDs []uint64
}

// Empty reports whether the caller can see nothing at all.
func (s Scope) Empty() bool {
	return !s.All && len(s.ChannelIDs) == 0
}

// Key identifies the scope's contents, suitable for cache keys.
func (s Scope) Key() string {
	if s.All {
		return "all"
	}
	h := fnv.New64a()
	for _, id := range s.ChannelIDs {
		h.Write([]byte(strconv.FormatUint(id, 10)))
		h.Write([]byte{','})
	}
	return fmt.Sprintf("ids:%d:%x", len(s.ChannelIDs), h.Sum64())
}

type AssignmentLookup interface {
	// AssignedChannelIDs returns the active channels linked to staffID under
	// any role, in ascending order.
	AssignedChannelIDs(ctx context.Context, staffID uint64) ([]uint64, error)
}

type Resolver struct {
	lookup AssignmentLookup
}

func NewResolver(lookup AssignmentLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the caller's scope. Admins see every active channel, anyone
// else sees the active channels they are associated with.
func (r *Resolver) Resolve(ctx context.Context, caller Caller) (Scope, error) {
	if caller.Role == domain.RoleAdmin {
		return Scope{All: true}, nil
	}
	if domain.RoleRank(caller.Role) == 0 {
		return Scope{}, nil
	}

	ids, err := r.lookup.AssignedChannelIDs(ctx, caller.ID)
	if err != nil {
		return Scope{}, fmt.Errorf("resolve visibility: %w", err)
	}
	return Scope{ChannelIDs: ids}, nil
}

type GormLookup struct {
	db *gorm.DB
}

func NewGormLookup(db *gorm.DB) *GormLookup {
	return &GormLookup{db: db}
}

func (l *GormLookup) AssignedChannelIDs(ctx context.Context, staffID uint64) ([]uint64, error) {
	ids := []uint64{}
	err := l.db.WithContext(ctx).
		Table("staff_channels AS sc").
		Joins("JOIN channels c ON c.id = sc.channel_id").
		Where("sc.staff_id = ? AND c.status = ?", staffID, domain.ChannelActive).
		Distinct("sc.channel_id").
		Order("sc.channel_id").
		Pluck("sc.channel_id", &ids).Error
	return ids, err
}
