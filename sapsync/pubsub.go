package sapsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/portal_backend/config"
	"github.com/sirupsen/logrus"
)

const (
	EntityBusinessPartner = entityBusinessPartner
	EntityContact         = entityContact
)

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// SyncRequestMessage asks a sync service instance to run one pass. Passes it
// starts are always attributed to ScheduledActor.
type SyncRequestMessage struct {
	Entity string `json:"entity"`
	Scope  string `json:"scope"`
}

func PublishSyncRequest(ctx context.Context, topic string, msg SyncRequestMessage) (string, error) {
	return config.PublishJSON(ctx, topic, msg, map[string]string{
		"entity": msg.Entity,
		"scope":  msg.Scope,
	})
}

// RunSyncRequest dispatches a message to the matching entity sync.
func RunSyncRequest(ctx context.Context, d Deps, msg SyncRequestMessage, actor string) (Result, error) {
	switch msg.Entity {
	case entityBusinessPartner:
		return SyncBusinessPartners(ctx, d, msg.Scope, actor)
	case entityContact:
		return SyncContacts(ctx, d, msg.Scope, actor)
	default:
		return Result{}, fmt.Errorf("%w: unknown entity %q", ErrInvalidScope, msg.Entity)
	}
}

// PubSubPushHandler always acknowledges; failed passes are logged and the
// next scheduled message retries them. The endpoint is unauthenticated, so
// nothing in the body can choose the recorded actor.
func (h *Handlers) PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.syncCfg.PushDisabled {
			c.Status(http.StatusNoContent)
			return
		}
		logger := config.GetLogger()
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusNoContent)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			config.LogError(logger, "sapsync", "PubSubPushHandler", "decode push envelope", nil, err)
			c.Status(http.StatusNoContent)
			return
		}
		var msg SyncRequestMessage
		if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
			config.LogError(logger, "sapsync", "PubSubPushHandler", "decode sync request", envelope.Message.ID, err)
			c.Status(http.StatusNoContent)
			return
		}
		res, err := RunSyncRequest(c.Request.Context(), h.deps(), msg, ScheduledActor)
		if err != nil {
			config.LogError(logger, "sapsync", "PubSubPushHandler", "run sync request", msg, err)
			c.Status(http.StatusNoContent)
			return
		}
		logger.WithFields(logrus.Fields{
			"messageId": envelope.Message.ID,
			"entity":    msg.Entity,
			"scope":     msg.Scope,
			"branch":    res.Branch,
		}).Info("scheduled sap sync done")
		c.Status(http.StatusNoContent)
	}
}
