package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/catalogsync"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

type SyncController struct {
	syncer   CatalogSyncer
	schedule SyncSchedule // optional
	prefs    Preferences  // optional
	log      logrus.FieldLogger
}

func NewSyncController(syncer CatalogSyncer, schedule SyncSchedule, prefs Preferences, log logrus.FieldLogger) *SyncController {
	return &SyncController{syncer: syncer, schedule: schedule, prefs: prefs, log: log}
}

// SyncStatus is the response of GET /api/sync.
type SyncStatus struct {
	Syncing          bool                                 `json:"syncing"`
	LastSync         *time.Time                           `json:"last_sync"`
	ShouldSync       bool                                 `json:"should_sync"`
	NextSyncInSecs   *int64                               `json:"next_sync_in_seconds"`
	SchedulerRunning bool                                 `json:"scheduler_running"`
	NextRunAt        *time.Time                           `json:"next_run_at,omitempty"`
	LastResult       *catalogsync.Result                  `json:"last_result,omitempty"`
	Schedule         *settingsstore.CatalogSyncConfigInfo `json:"schedule,omitempty"`
}

// Status handles GET /api/sync
func (sc *SyncController) Status(c *gin.Context) {
	ctx := c.Request.Context()
	status := SyncStatus{
		Syncing:    sc.syncer.IsSyncing(),
		ShouldSync: sc.syncer.ShouldSync(ctx),
	}

	last, err := sc.syncer.LastSync(ctx)
	if err != nil {
		respondInternalError(c, sc.log, err, "read last sync")
		return
	}
	if !last.IsZero() {
		status.LastSync = &last
	}
	if remaining := sc.syncer.TimeUntilNextSync(ctx); remaining != nil {
		secs := int64(remaining.Seconds())
		status.NextSyncInSecs = &secs
	}

	if sc.schedule != nil {
		status.SchedulerRunning = sc.schedule.IsRunning()
		status.NextRunAt = sc.schedule.GetNextRunTime()
		status.LastResult = sc.schedule.LastResult()
	}
	if sc.prefs != nil {
		info := sc.prefs.GetCatalogSyncConfigInfo()
		status.Schedule = &info
	}

	c.JSON(http.StatusOK, status)
}

// Run handles POST /api/sync?force=true
// The sync runs within the request.
func (sc *SyncController) Run(c *gin.Context) {
	force, ok := parseBoolQuery(c, "force")
	if !ok {
		return
	}
	respondSyncResult(c, sc.syncer.SyncCatalog(c.Request.Context(), force))
}

// RunCategory handles POST /api/sync/category/:name
func (sc *SyncController) RunCategory(c *gin.Context) {
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		respondBadRequest(c, "category is required")
		return
	}
	respondSyncResult(c, sc.syncer.SyncCategory(c.Request.Context(), entities.ParseCategory(name)))
}

// RunLevel handles POST /api/sync/level/:level
func (sc *SyncController) RunLevel(c *gin.Context) {
	level, err := entities.ParseLevel(c.Param("level"))
	if err != nil {
		respondBadRequest(c, "invalid level")
		return
	}
	respondSyncResult(c, sc.syncer.SyncLevel(c.Request.Context(), level))
}

// respondSyncResult maps a sync outcome to a status code. The body is
// always the result itself.
func respondSyncResult(c *gin.Context, result catalogsync.Result) {
	code := http.StatusOK
	if !result.Success {
		switch result.Message {
		case catalogsync.MessageInProgress:
			code = http.StatusConflict
		case catalogsync.MessageOffline:
			code = http.StatusServiceUnavailable
		default:
			code = http.StatusBadGateway
		}
	}
	c.JSON(code, result)
}
