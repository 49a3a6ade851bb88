package sapsync

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/models"
	"github.com/mmdatafocus/portal_backend/utils"
	"gorm.io/gorm"
)

// ScheduledActor is recorded as the actor of passes started by the scheduler.
const ScheduledActor = "scheduler"

type Handlers struct {
	client  Querier
	sapCfg  config.SAPConfig
	syncCfg config.SyncConfig
	policy  ConflictPolicy
	db      func() *gorm.DB
	locker  func() Locker
}

func NewHandlers(client Querier, sapCfg config.SAPConfig, syncCfg config.SyncConfig) *Handlers {
	return &Handlers{
		client:  client,
		sapCfg:  sapCfg,
		syncCfg: syncCfg,
		policy:  PolicyByName(syncCfg.ConflictPolicy),
		db:      config.GetDB,
		locker: func() Locker {
			return NewLocker(config.GetRedisLock(), syncCfg)
		},
	}
}

func (h *Handlers) deps() Deps {
	return Deps{
		DB:     h.db(),
		Client: h.client,
		SAP:    h.sapCfg,
		Locker: h.locker(),
		Policy: h.policy,
		Logger: config.GetLogger(),
	}
}

type syncBusinessPartnersRequest struct {
	Type string `json:"type" binding:"required"`
}

type syncContactsRequest struct {
	CardCode string `json:"cardCode" binding:"required"`
}

func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": true, "status": status, "message": message})
}

func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   true,
		"status":  http.StatusBadRequest,
		"message": message,
		"fields":  utils.ProcessValidationErrors(err),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidScope):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func actorFrom(c *gin.Context) string {
	username, _ := utils.GetUsernameFromContext(c.Request.Context())
	return username
}

// SyncBusinessPartnersHandler runs the BP master sync for {"type": "C"}.
func (h *Handlers) SyncBusinessPartnersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncBusinessPartnersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "type is required", err)
			return
		}
		res, err := SyncBusinessPartners(c.Request.Context(), h.deps(), req.Type, actorFrom(c))
		if err != nil {
			config.LogError(config.GetLogger(), "sapsync", "SyncBusinessPartnersHandler", "sync business partners", req, err)
			failure(c, statusForError(err), err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  http.StatusOK,
			"message": fmt.Sprintf("Business partners (%s) synced: %d inserted, %d updated", res.Scope, res.Inserted, res.Upserted),
		})
	}
}

// SyncContactsHandler runs the contact master sync for {"cardCode": "..."}.
func (h *Handlers) SyncContactsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req syncContactsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "cardCode is required", err)
			return
		}
		res, err := SyncContacts(c.Request.Context(), h.deps(), req.CardCode, actorFrom(c))
		if err != nil {
			config.LogError(config.GetLogger(), "sapsync", "SyncContactsHandler", "sync contacts", req, err)
			failure(c, statusForError(err), err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  http.StatusOK,
			"message": fmt.Sprintf("Contacts of %s synced: %d inserted, %d updated", res.Scope, res.Inserted, res.Upserted),
		})
	}
}

func (h *Handlers) SyncRunsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 20
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		runs, err := models.ListSyncRuns(c.Request.Context(), h.db(), strings.TrimSpace(c.Query("entity")), limit)
		if err != nil {
			config.LogError(config.GetLogger(), "sapsync", "SyncRunsHandler", "list sync runs", nil, err)
			failure(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": runs})
	}
}

func (h *Handlers) SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			failure(c, http.StatusBadRequest, "invalid id")
			return
		}
		run, err := models.GetSyncRun(c.Request.Context(), h.db(), uint(id))
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				failure(c, http.StatusNotFound, err.Error())
				return
			}
			config.LogError(config.GetLogger(), "sapsync", "SyncRunDetailHandler", "get sync run", id, err)
			failure(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, run)
	}
}
