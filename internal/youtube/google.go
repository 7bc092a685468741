package youtube

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"mcn-dashboard/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
	"google.golang.org/api/youtubeanalytics/v2"
)

// RemoteChannel is a channel owned by a connected Google account.
type RemoteChannel struct {
	ID    string
	Title string
}

// Account is what one completed consent flow yields.
type Account struct {
	Email    *string
	Name     *string
	Token    *oauth2.Token
	Channels []RemoteChannel
}

// Connector drives the OAuth consent flow.
type Connector interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Account, error)
}

// Analytics queries YouTube Analytics on behalf of a connected account.
type Analytics interface {
	Query(ctx context.Context, refreshToken string, q ReportQuery) (*Report, error)
}

// NewOAuthConfig builds the Google OAuth client used for both the consent
// flow and offline refresh-token access.
func NewOAuthConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		Endpoint:     google.Endpoint,
		Scopes: []string{
			yt.YoutubeReadonlyScope,
			youtubeanalytics.YtAnalyticsReadonlyScope,
			oauth2api.UserinfoEmailScope,
			oauth2api.UserinfoProfileScope,
		},
	}
}

type GoogleConnector struct {
	oauth *oauth2.Config
}

func NewGoogleConnector(oauth *oauth2.Config) *GoogleConnector {
	return &GoogleConnector{oauth: oauth}
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is issued on every connect.
func (g *GoogleConnector) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *GoogleConnector) Exchange(ctx context.Context, code string) (*Account, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	client := g.oauth.Client(ctx, token)

	users, err := oauth2api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := users.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get userinfo: %w", err)
	}

	svc, err := yt.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}

	acct := &Account{
		Email: nonEmpty(info.Email),
		Name:  nonEmpty(info.Name),
		Token: token,
	}
	err = svc.Channels.List([]string{"snippet"}).
		Mine(true).
		MaxResults(50).
		Pages(ctx, func(resp *yt.ChannelListResponse) error {
			for _, ch := range resp.Items {
				title := "Unknown Channel"
				if ch.Snippet != nil && strings.TrimSpace(ch.Snippet.Title) != "" {
					title = ch.Snippet.Title
				}
				acct.Channels = append(acct.Channels, RemoteChannel{ID: ch.Id, Title: title})
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return acct, nil
}

// GoogleAnalytics keeps one refreshing token source per connection so
// consecutive queries reuse the access token.
type GoogleAnalytics struct {
	oauth   *oauth2.Config
	sources sync.Map // refresh token -> oauth2.TokenSource
}

func NewGoogleAnalytics(oauth *oauth2.Config) *GoogleAnalytics {
	return &GoogleAnalytics{oauth: oauth}
}

func (g *GoogleAnalytics) tokenSource(refreshToken string) oauth2.TokenSource {
	if ts, ok := g.sources.Load(refreshToken); ok {
		return ts.(oauth2.TokenSource)
	}
	ts := g.oauth.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refreshToken})
	actual, _ := g.sources.LoadOrStore(refreshToken, ts)
	return actual.(oauth2.TokenSource)
}

func (g *GoogleAnalytics) Query(ctx context.Context, refreshToken string, q ReportQuery) (*Report, error) {
	svc, err := youtubeanalytics.NewService(ctx, option.WithTokenSource(g.tokenSource(refreshToken)))
	if err != nil {
		return nil, fmt.Errorf("analytics client: %w", err)
	}

	resp, err := svc.Reports.Query().
		Ids("channel==" + q.ChannelID).
		StartDate(q.From.Format(dateLayout)).
		EndDate(q.To.Format(dateLayout)).
		Metrics(strings.Join(q.Metrics, ",")).
		Dimensions("day").
		Sort("day").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	report := &Report{Rows: resp.Rows}
	for _, h := range resp.ColumnHeaders {
		report.Columns = append(report.Columns, h.Name)
	}
	return report, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
