package youtube

import (
	stdErrors "errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mcn-dashboard/auth"
	"mcn-dashboard/internal/errors"
	"mcn-dashboard/internal/logging"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	connect     *ConnectService
	syncer      *Syncer
	frontendURL string
	now         func() time.Time
}

func NewHandler(connect *ConnectService, syncer *Syncer, frontendURL string) *Handler {
	return &Handler{
		connect:     connect,
		syncer:      syncer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

type SyncForm struct {
	Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
}

type BackfillForm struct {
	From string `json:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `json:"to" binding:"omitempty,datetime=2006-01-02"`
}

// RegisterRoutes mounts the authenticated routes. The OAuth callback is
// reached by Google's redirect and is mounted separately.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rg.GET("/connect-url", h.ConnectURL)
	rg.POST("/sync-daily", adminOnly, h.SyncDaily)
	rg.POST("/backfill", adminOnly, h.Backfill)
}

func (h *Handler) ConnectURL(c *gin.Context) {
	id, ok := auth.CurrentIdentity(c)
	if !ok {
		return
	}

	authURL, err := h.connect.ConnectURL(id.ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

// Callback completes the consent flow and sends the browser back to the app.
func (h *Handler) Callback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.Redirect(http.StatusFound, h.frontendURL+"/youtube-connected?error="+url.QueryEscape(reason))
		return
	}

	_, err := h.connect.Complete(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		logging.Ctx(c.Request.Context()).Error().Err(err).Msg("youtube oauth callback failed")
		c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/youtube-connected")
}

func (h *Handler) SyncDaily(c *gin.Context) {
	var form SyncForm
	if err := c.ShouldBindJSON(&form); err != nil && !stdErrors.Is(err, io.EOF) {
		c.Error(errors.NewValidationError(err))
		return
	}

	var date time.Time
	if form.Date != "" {
		date, _ = time.Parse(dateLayout, form.Date)
	}

	res, err := h.syncer.SyncDay(c.Request.Context(), date)
	if err != nil {
		c.Error(syncError(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// Backfill starts a background sync over a date range, by default the last
// year up to yesterday.
func (h *Handler) Backfill(c *gin.Context) {
	var form BackfillForm
	if err := c.ShouldBindJSON(&form); err != nil && !stdErrors.Is(err, io.EOF) {
		c.Error(errors.NewValidationError(err))
		return
	}

	from, to := DefaultBackfillRange(h.now())
	if form.From != "" {
		from, _ = time.Parse(dateLayout, form.From)
	}
	if form.To != "" {
		to, _ = time.Parse(dateLayout, form.To)
	}

	if err := h.syncer.Start(from, to); err != nil {
		c.Error(syncError(err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"from":   from.Format(dateLayout),
		"to":     to.Format(dateLayout),
		"status": "started",
	})
}

func syncError(err error) error {
	switch {
	case stdErrors.Is(err, ErrSyncRunning):
		return errors.Conflict(err.Error(), err)
	case stdErrors.Is(err, ErrBadRange):
		return errors.BadRequest(err.Error(), err)
	default:
		return errors.Internal(err)
	}
}
