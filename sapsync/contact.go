package sapsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/portal_backend/models"
	"github.com/sirupsen/logrus"
)

func ContactWatermarkCode(cardCode string) string {
	return "contact-" + cardCode
}

type contactSource struct {
	client      Querier
	queryID     string
	phoneRegion string
	logger      *logrus.Logger
}

func (s contactSource) Fetch(ctx context.Context, cardCode string) ([]ContactRecord, error) {
	raw, err := s.client.Query(ctx, s.queryID, "CardCode="+odataQuote(cardCode))
	if err != nil {
		return nil, err
	}
	records, errs := decodeContacts(raw, s.phoneRegion)
	logRecordErrors(s.logger, "contactSource.Fetch", errs)
	return records, nil
}

func contactEntity(x ContactRecord, actor string) models.Contact {
	return models.Contact{
		ContactCode:   x.ContactCode,
		CardCode:      x.CardCode,
		Name:          x.Name,
		FirstName:     x.FirstName,
		LastName:      x.LastName,
		Position:      x.Position,
		Phone:         x.Phone,
		Mobile:        x.Mobile,
		Email:         x.Email,
		Active:        x.Active,
		SapCreateDate: datePtr(x.Created),
		SapUpdateDate: datePtr(x.Updated),
		Source:        models.RecordSourceSAP,
		SyncStatus:    models.SyncStatusSynced,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
}

func contactUpdates(x ContactRecord, actor string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"card_code":       x.CardCode,
		"name":            x.Name,
		"first_name":      x.FirstName,
		"last_name":       x.LastName,
		"position":        x.Position,
		"phone":           x.Phone,
		"mobile":          x.Mobile,
		"email":           x.Email,
		"active":          x.Active,
		"sap_create_date": datePtr(x.Created),
		"sap_update_date": datePtr(x.Updated),
		"source":          models.RecordSourceSAP,
		"sync_status":     models.SyncStatusSynced,
		"updated_by":      actor,
		"updated_at":      at,
	}
}

func NewContactEngine(d Deps) *Engine[ContactRecord, models.Contact] {
	return &Engine[ContactRecord, models.Contact]{
		Entity: entityContact,
		Source: contactSource{
			client:      d.Client,
			queryID:     d.SAP.ContactQueryID,
			phoneRegion: d.SAP.PhoneRegion,
			logger:      d.logger(),
		},
		Local: &gormLocalStore[ContactRecord, models.Contact]{
			store:     models.NewStore[models.Contact](d.DB, "card_code"),
			keyColumn: "contact_code",
			toEntity:  contactEntity,
			toUpdates: contactUpdates,
		},
		Watermarks:    gormWatermarks{db: d.DB},
		WatermarkCode: ContactWatermarkCode,
		Policy:        d.Policy,
		Locker:        d.Locker,
		Runs:          gormRuns{db: d.DB},
		Logger:        d.logger(),
		Now:           d.Now,
	}
}

// SyncContacts reconciles the contact persons of one business partner. Card
// codes are upper-cased so the lock and watermark are shared across spellings.
func SyncContacts(ctx context.Context, d Deps, cardCode string, actor string) (Result, error) {
	cardCode = strings.ToUpper(strings.TrimSpace(cardCode))
	if cardCode == "" {
		return Result{}, fmt.Errorf("%w: card code is required", ErrInvalidScope)
	}
	return NewContactEngine(d).Reconcile(ctx, cardCode, actor)
}
