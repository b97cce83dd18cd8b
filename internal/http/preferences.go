package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/database"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/settingsstore"
)

type PreferencesController struct {
	prefs    Preferences
	schedule SyncSchedule // optional
	// appCtx bounds a rescheduled sync run; a request context would stop
	// the scheduler as soon as the response is written.
	appCtx context.Context
	log    logrus.FieldLogger
}

func NewPreferencesController(appCtx context.Context, prefs Preferences, schedule SyncSchedule, log logrus.FieldLogger) *PreferencesController {
	if appCtx == nil {
		appCtx = context.Background()
	}
	return &PreferencesController{prefs: prefs, schedule: schedule, appCtx: appCtx, log: log}
}

type SetPreferenceRequest struct {
	Value string `json:"value" form:"value"`
}

// List handles GET /api/preferences
func (pc *PreferencesController) List(c *gin.Context) {
	all := pc.prefs.All()
	respondList(c, all, len(all))
}

// Get handles GET /api/preferences/:key
func (pc *PreferencesController) Get(c *gin.Context) {
	info, err := pc.prefs.Get(c.Param("key"))
	if err != nil {
		pc.respondPreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Set handles PUT /api/preferences/:key
func (pc *PreferencesController) Set(c *gin.Context) {
	var req SetPreferenceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	key := c.Param("key")
	if err := pc.prefs.Set(key, req.Value); err != nil {
		pc.respondPreferenceError(c, err)
		return
	}
	pc.afterChange(key)

	info, err := pc.prefs.Get(key)
	if err != nil {
		pc.respondPreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Reset handles DELETE /api/preferences/:key
// Drops the stored override so the environment or default applies again.
func (pc *PreferencesController) Reset(c *gin.Context) {
	key := c.Param("key")
	if err := pc.prefs.Clear(key); err != nil {
		pc.respondPreferenceError(c, err)
		return
	}
	pc.afterChange(key)

	info, err := pc.prefs.Get(key)
	if err != nil {
		pc.respondPreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// afterChange restarts the scheduler when a sync setting moved.
func (pc *PreferencesController) afterChange(key string) {
	if pc.schedule == nil {
		return
	}
	if key != entities.PreferenceKeyAutoSyncEnabled && key != entities.PreferenceKeySyncSchedule {
		return
	}
	if err := pc.schedule.Reschedule(pc.appCtx); err != nil {
		pc.log.WithError(err).Warn("Failed to reschedule catalog sync")
	}
}

func (pc *PreferencesController) respondPreferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, settingsstore.ErrUnknownKey):
		respondNotFound(c, "preference")
	case errors.Is(err, settingsstore.ErrReadOnly):
		respondError(c, http.StatusForbidden, "read_only", err.Error())
	case errors.Is(err, database.ErrStorage):
		respondInternalError(c, pc.log, err, "preferences")
	default:
		respondBadRequest(c, err.Error())
	}
}
