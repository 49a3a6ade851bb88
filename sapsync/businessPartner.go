package sapsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	entityBusinessPartner = "business-partner"
	entityContact         = "contact"
)

var ErrInvalidScope = errors.New("invalid sync scope")

// Querier is the part of Client the entity sources need.
type Querier interface {
	Query(ctx context.Context, queryID string, filter string) ([]json.RawMessage, error)
}

// Deps carries what every entity engine is built from.
type Deps struct {
	DB     *gorm.DB
	Client Querier
	SAP    config.SAPConfig
	Locker Locker
	Policy ConflictPolicy
	Logger *logrus.Logger
	Now    func() time.Time
}

func (d Deps) logger() *logrus.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return config.GetLogger()
}

func BusinessPartnerWatermarkCode(cardType string) string {
	return "bp-master-" + strings.ToLower(cardType)
}

func odataQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func logRecordErrors(logger *logrus.Logger, funcName string, errs []error) {
	for _, err := range errs {
		var recErr *RecordError
		if errors.As(err, &recErr) {
			config.LogError(logger, "sapsync", funcName, "skip undecodable record", logrus.Fields{"entity": recErr.Entity, "index": recErr.Index, "key": recErr.Key}, err)
			continue
		}
		config.LogError(logger, "sapsync", funcName, "skip undecodable record", nil, err)
	}
}

type businessPartnerSource struct {
	client  Querier
	queryID string
	logger  *logrus.Logger
}

func (s businessPartnerSource) Fetch(ctx context.Context, cardType string) ([]BusinessPartnerRecord, error) {
	raw, err := s.client.Query(ctx, s.queryID, "CardType="+odataQuote(cardType))
	if err != nil {
		return nil, err
	}
	records, errs := decodeBusinessPartners(raw)
	logRecordErrors(s.logger, "businessPartnerSource.Fetch", errs)
	return records, nil
}

func businessPartnerEntity(x BusinessPartnerRecord, actor string) models.BusinessPartner {
	return models.BusinessPartner{
		CardCode:      x.CardCode,
		CardName:      x.CardName,
		CardType:      x.CardType,
		GroupCode:     x.GroupCode,
		Phone1:        x.Phone1,
		Phone2:        x.Phone2,
		Cellular:      x.Cellular,
		Email:         x.Email,
		Website:       x.Website,
		Currency:      x.Currency,
		FederalTaxId:  x.FederalTaxId,
		Address:       x.Address,
		City:          x.City,
		ZipCode:       x.ZipCode,
		Country:       x.Country,
		Frozen:        x.Frozen,
		SapCreateDate: datePtr(x.Created),
		SapUpdateDate: datePtr(x.Updated),
		Source:        models.RecordSourceSAP,
		SyncStatus:    models.SyncStatusSynced,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	}
}

func businessPartnerUpdates(x BusinessPartnerRecord, actor string, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"card_name":       x.CardName,
		"card_type":       x.CardType,
		"group_code":      x.GroupCode,
		"phone1":          x.Phone1,
		"phone2":          x.Phone2,
		"cellular":        x.Cellular,
		"email":           x.Email,
		"website":         x.Website,
		"currency":        x.Currency,
		"federal_tax_id":  x.FederalTaxId,
		"address":         x.Address,
		"city":            x.City,
		"zip_code":        x.ZipCode,
		"country":         x.Country,
		"frozen":          x.Frozen,
		"sap_create_date": datePtr(x.Created),
		"sap_update_date": datePtr(x.Updated),
		"source":          models.RecordSourceSAP,
		"sync_status":     models.SyncStatusSynced,
		"updated_by":      actor,
		"updated_at":      at,
	}
}

func NewBusinessPartnerEngine(d Deps) *Engine[BusinessPartnerRecord, models.BusinessPartner] {
	return &Engine[BusinessPartnerRecord, models.BusinessPartner]{
		Entity: entityBusinessPartner,
		Source: businessPartnerSource{client: d.Client, queryID: d.SAP.BusinessPartnerQueryID, logger: d.logger()},
		Local: &gormLocalStore[BusinessPartnerRecord, models.BusinessPartner]{
			store:     models.NewStore[models.BusinessPartner](d.DB, "card_type"),
			keyColumn: "card_code",
			toEntity:  businessPartnerEntity,
			toUpdates: businessPartnerUpdates,
		},
		Watermarks:    gormWatermarks{db: d.DB},
		WatermarkCode: BusinessPartnerWatermarkCode,
		Policy:        d.Policy,
		Locker:        d.Locker,
		Runs:          gormRuns{db: d.DB},
		Logger:        d.logger(),
		Now:           d.Now,
	}
}

// SyncBusinessPartners reconciles every business partner of one card type.
func SyncBusinessPartners(ctx context.Context, d Deps, cardType string, actor string) (Result, error) {
	ct, ok := models.ParseCardType(cardType)
	if !ok {
		return Result{}, fmt.Errorf("%w: card type %q", ErrInvalidScope, cardType)
	}
	return NewBusinessPartnerEngine(d).Reconcile(ctx, string(ct), actor)
}
