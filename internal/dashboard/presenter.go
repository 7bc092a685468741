package dashboard

// Response shapes for the dashboard endpoints. Money and RPM are rendered as
// JSON numbers; names that may be missing are rendered as null.

type SummaryResponse struct {
	TotalViews     int64   `json:"totalViews"`
	TotalRevenue   float64 `json:"totalRevenue"`
	TotalWatchTime int64   `json:"totalWatchTime"`
	AvgRPM         float64 `json:"avgRPM"`
}

type ChannelResponse struct {
	ID               uint64  `json:"id"`
	Name             string  `json:"name"`
	YoutubeChannelID string  `json:"youtube_channel_id"`
	NetworkID        *uint64 `json:"network_id"`
	TeamID           *uint64 `json:"team_id"`
	NetworkName      *string `json:"network_name"`
	TeamName         *string `json:"team_name"`
	ManagerID        *uint64 `json:"manager_id"`
	ManagerName      *string `json:"manager_name"`
	Views            int64   `json:"views"`
	Revenue          float64 `json:"revenue"`
	RPM              float64 `json:"rpm"`
}

type TeamResponse struct {
	ID       uint64  `json:"id"`
	TeamName string  `json:"team_name"`
	Views    int64   `json:"views"`
	Revenue  float64 `json:"revenue"`
}

type NetworkResponse struct {
	ID          uint64  `json:"id"`
	NetworkName string  `json:"network_name"`
	Views       int64   `json:"views"`
	Revenue     float64 `json:"revenue"`
}

type ProjectResponse struct {
	ID          uint64  `json:"id"`
	ProjectName string  `json:"project_name"`
	Views       int64   `json:"views"`
	Revenue     float64 `json:"revenue"`
}

type TimeseriesResponse struct {
	Date        string  `json:"date"`
	ChannelID   uint64  `json:"channel_id"`
	ChannelName string  `json:"channel_name"`
	Revenue     float64 `json:"revenue"`
	Views       int64   `json:"views"`
}

type OverviewResponse struct {
	Summary    SummaryResponse      `json:"summary"`
	Channels   []ChannelResponse    `json:"channels"`
	Timeseries []TimeseriesResponse `json:"timeseries"`
}

func PresentSummary(s *Summary) SummaryResponse {
	return SummaryResponse{
		TotalViews:     s.TotalViews,
		TotalRevenue:   s.TotalRevenue.InexactFloat64(),
		TotalWatchTime: s.TotalWatchTime,
		AvgRPM:         s.AvgRPM.InexactFloat64(),
	}
}

func PresentChannels(rows []ChannelMetrics) []ChannelResponse {
	out := make([]ChannelResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ChannelResponse{
			ID:               r.ID,
			Name:             r.Name,
			YoutubeChannelID: r.YoutubeChannelID,
			NetworkID:        r.NetworkID,
			TeamID:           r.TeamID,
			NetworkName:      r.NetworkName,
			TeamName:         r.TeamName,
			ManagerID:        r.ManagerID,
			ManagerName:      r.ManagerName,
			Views:            r.Views,
			Revenue:          r.Revenue.InexactFloat64(),
			RPM:              r.RPM.InexactFloat64(),
		})
	}
	return out
}

func PresentTeams(rows []GroupRow) []TeamResponse {
	out := make([]TeamResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, TeamResponse{ID: r.ID, TeamName: r.Name, Views: r.Views, Revenue: r.Revenue.InexactFloat64()})
	}
	return out
}

func PresentNetworks(rows []GroupRow) []NetworkResponse {
	out := make([]NetworkResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, NetworkResponse{ID: r.ID, NetworkName: r.Name, Views: r.Views, Revenue: r.Revenue.InexactFloat64()})
	}
	return out
}

func PresentProjects(rows []GroupRow) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ProjectResponse{ID: r.ID, ProjectName: r.Name, Views: r.Views, Revenue: r.Revenue.InexactFloat64()})
	}
	return out
}

func PresentTimeseries(rows []TimeseriesRow) []TimeseriesResponse {
	out := make([]TimeseriesResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, TimeseriesResponse{
			Date:        r.Date.UTC().Format(dateLayout),
			ChannelID:   r.ChannelID,
			ChannelName: r.ChannelName,
			Revenue:     r.Revenue.InexactFloat64(),
			Views:       r.Views,
		})
	}
	return out
}

func PresentOverview(o *Overview) OverviewResponse {
	return OverviewResponse{
		Summary:    PresentSummary(o.Summary),
		Channels:   PresentChannels(o.Channels),
		Timeseries: PresentTimeseries(o.Timeseries),
	}
}
