package dashboard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals is the Summary aggregate before RPM is derived.
type Totals struct {
	TotalViews     int64           `gorm:"column:total_views" json:"total_views"`
	TotalRevenue   decimal.Decimal `gorm:"column:total_revenue" json:"total_revenue"`
	TotalWatchTime int64           `gorm:"column:total_watch_time" json:"total_watch_time"`
}

type ChannelRow struct {
	ID               uint64          `gorm:"column:id" json:"id"`
	Name             string          `gorm:"column:name" json:"name"`
	YoutubeChannelID string          `gorm:"column:youtube_channel_id" json:"youtube_channel_id"`
	NetworkID        *uint64         `gorm:"column:network_id" json:"network_id"`
	TeamID           *uint64         `gorm:"column:team_id" json:"team_id"`
	NetworkName      *string         `gorm:"column:network_name" json:"network_name"`
	TeamName         *string         `gorm:"column:team_name" json:"team_name"`
	ManagerID        *uint64         `gorm:"column:manager_id" json:"manager_id"`
	ManagerName      *string         `gorm:"column:manager_name" json:"manager_name"`
	Views            int64           `gorm:"column:views" json:"views"`
	Revenue          decimal.Decimal `gorm:"column:revenue" json:"revenue"`
}

// GroupRow is one team, network or project with its summed metrics.
type GroupRow struct {
	ID      uint64          `gorm:"column:id" json:"id"`
	Name    string          `gorm:"column:name" json:"name"`
	Views   int64           `gorm:"column:views" json:"views"`
	Revenue decimal.Decimal `gorm:"column:revenue" json:"revenue"`
}

type TimeseriesRow struct {
	Date        time.Time       `gorm:"column:date" json:"date"`
	ChannelID   uint64          `gorm:"column:channel_id" json:"channel_id"`
	ChannelName string          `gorm:"column:channel_name" json:"channel_name"`
	Views       int64           `gorm:"column:views" json:"views"`
	Revenue     decimal.Decimal `gorm:"column:revenue" json:"revenue"`
}

type Repository interface {
	Summary(ctx context.Context, q Query) (Totals, error)
	Channels(ctx context.Context, q Query) ([]ChannelRow, error)
	Teams(ctx context.Context, q Query) ([]GroupRow, error)
	Networks(ctx context.Context, q Query) ([]GroupRow, error)
	Projects(ctx context.Context, q Query) ([]GroupRow, error)
	Timeseries(ctx context.Context, q Query) ([]TimeseriesRow, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Every query below takes the fact predicate first (it sits in the join
// condition or leads the WHERE clause) and the channel predicate second.

const summarySQL = `
SELECT
	COALESCE(SUM(d.views), 0)::bigint              AS total_views,
	COALESCE(SUM(d.revenue), 0)                    AS total_revenue,
	COALESCE(SUM(d.watch_time_minutes), 0)::bigint AS total_watch_time
FROM channel_metrics_daily d
JOIN channels c ON c.id = d.channel_id
WHERE ? AND ?`

// The manager subquery keeps one row per channel so a stray second manager
// association can never duplicate a channel's metrics.
const channelsSQL = `
SELECT
	c.id, c.name, c.youtube_channel_id, c.network_id, c.team_id,
	n.name AS network_name,
	t.name AS team_name,
	m.id   AS manager_id,
	m.name AS manager_name,
	COALESCE(SUM(d.views), 0)::bigint AS views,
	COALESCE(SUM(d.revenue), 0)       AS revenue
FROM channels c
LEFT JOIN channel_metrics_daily d ON d.channel_id = c.id AND ?
LEFT JOIN networks n ON n.id = c.network_id
LEFT JOIN teams t ON t.id = c.team_id
LEFT JOIN (
	SELECT DISTINCT ON (sc.channel_id) sc.channel_id, sc.staff_id
	FROM staff_channels sc
	WHERE sc.role = 'manager'
	ORDER BY sc.channel_id, sc.staff_id
) mgr ON mgr.channel_id = c.id
LEFT JOIN staff_users m ON m.id = mgr.staff_id
WHERE ?
GROUP BY c.id, c.name, c.youtube_channel_id, c.network_id, c.team_id, n.name, t.name, m.id, m.name
ORDER BY revenue DESC, c.id ASC`

const teamsSQL = `
SELECT t.id, t.name,
	COALESCE(SUM(d.views), 0)::bigint AS views,
	COALESCE(SUM(d.revenue), 0)       AS revenue
FROM channels c
JOIN teams t ON t.id = c.team_id
LEFT JOIN channel_metrics_daily d ON d.channel_id = c.id AND ?
WHERE ?
GROUP BY t.id, t.name
ORDER BY revenue DESC, t.id ASC`

const networksSQL = `
SELECT n.id, n.name,
	COALESCE(SUM(d.views), 0)::bigint AS views,
	COALESCE(SUM(d.revenue), 0)       AS revenue
FROM channels c
JOIN networks n ON n.id = c.network_id
LEFT JOIN channel_metrics_daily d ON d.channel_id = c.id AND ?
WHERE ?
GROUP BY n.id, n.name
ORDER BY revenue DESC, n.id ASC`

const projectsSQL = `
SELECT p.id, p.name,
	COALESCE(SUM(d.views), 0)::bigint AS views,
	COALESCE(SUM(d.revenue), 0)       AS revenue
FROM projects p
JOIN project_channels pc ON pc.project_id = p.id
JOIN channels c ON c.id = pc.channel_id
LEFT JOIN channel_metrics_daily d ON d.channel_id = c.id AND ?
WHERE ?
GROUP BY p.id, p.name
ORDER BY revenue DESC, p.id ASC`

const timeseriesSQL = `
SELECT d.date, c.id AS channel_id, c.name AS channel_name,
	COALESCE(SUM(d.views), 0)::bigint AS views,
	COALESCE(SUM(d.revenue), 0)       AS revenue
FROM channel_metrics_daily d
JOIN channels c ON c.id = d.channel_id
WHERE ? AND ?
GROUP BY d.date, c.id, c.name
ORDER BY d.date ASC, c.id ASC`

func (r *repository) Summary(ctx context.Context, q Query) (Totals, error) {
	var totals Totals
	err := r.db.WithContext(ctx).Raw(summarySQL, q.Fact.Expr(), q.Channel.Expr()).Scan(&totals).Error
	return totals, err
}

func (r *repository) Channels(ctx context.Context, q Query) ([]ChannelRow, error) {
	rows := []ChannelRow{}
	err := r.db.WithContext(ctx).Raw(channelsSQL, q.Fact.Expr(), q.Channel.Expr()).Scan(&rows).Error
	return rows, err
}

func (r *repository) Teams(ctx context.Context, q Query) ([]GroupRow, error) {
	return r.groups(ctx, teamsSQL, q)
}

func (r *repository) Networks(ctx context.Context, q Query) ([]GroupRow, error) {
	return r.groups(ctx, networksSQL, q)
}

func (r *repository) Projects(ctx context.Context, q Query) ([]GroupRow, error) {
	return r.groups(ctx, projectsSQL, q)
}

func (r *repository) groups(ctx context.Context, query string, q Query) ([]GroupRow, error) {
	rows := []GroupRow{}
	err := r.db.WithContext(ctx).Raw(query, q.Fact.Expr(), q.Channel.Expr()).Scan(&rows).Error
	return rows, err
}

func (r *repository) Timeseries(ctx context.Context, q Query) ([]TimeseriesRow, error) {
	rows := []TimeseriesRow{}
	err := r.db.WithContext(ctx).Raw(timeseriesSQL, q.Fact.Expr(), q.Channel.Expr()).Scan(&rows).Error
	return rows, err
}
