package config

import (
	"errors"
	"strings"
	"time"
)

// SAPConfig holds everything the Service Layer client and the sync engine
// need. Load it once in main and pass it down.
type SAPConfig struct {
	BaseURL            string
	CompanyDB          string
	Username           string
	Password           string
	PageSize           int
	RequestsPerSecond  float64
	Timeout            time.Duration
	InsecureSkipVerify bool

	BusinessPartnerQueryID string
	ContactQueryID         string
	PhoneRegion            string
}

// SyncConfig controls per-scope locking and scheduled runs.
type SyncConfig struct {
	LockTTL        time.Duration
	LockDisabled   bool
	Topic          string
	BPTypes        []string
	ConflictPolicy string
	// PushDisabled turns the Pub/Sub push endpoint into a no-op ack.
	PushDisabled bool
}

func LoadSAPConfig() (SAPConfig, error) {
	cfg := SAPConfig{
		BaseURL:                strings.TrimRight(stringFromEnv("SAP_BASE_URL", ""), "/"),
		CompanyDB:              stringFromEnv("SAP_COMPANY_DB", ""),
		Username:               stringFromEnv("SAP_USERNAME", ""),
		Password:               stringFromEnv("SAP_PASSWORD", ""),
		PageSize:               intFromEnv("SAP_PAGE_SIZE", 500),
		RequestsPerSecond:      float64(intFromEnv("SAP_RATE_LIMIT_PER_SEC", 5)),
		Timeout:                time.Duration(intFromEnv("SAP_TIMEOUT_SECONDS", 60)) * time.Second,
		InsecureSkipVerify:     boolFromEnv("SAP_INSECURE_SKIP_VERIFY", false),
		BusinessPartnerQueryID: stringFromEnv("SAP_BP_QUERY_ID", "BPMaster"),
		ContactQueryID:         stringFromEnv("SAP_CONTACT_QUERY_ID", "ContactMaster"),
		PhoneRegion:            stringFromEnv("SAP_PHONE_REGION", "US"),
	}
	if cfg.BaseURL == "" {
		return cfg, errors.New("SAP_BASE_URL is required")
	}
	return cfg, nil
}

func LoadSyncConfig() SyncConfig {
	cfg := SyncConfig{
		LockTTL:        time.Duration(intFromEnv("SAP_SYNC_LOCK_TTL_SECONDS", 300)) * time.Second,
		LockDisabled:   boolFromEnv("SAP_SYNC_LOCK_DISABLED", false),
		Topic:          stringFromEnv("SAP_SYNC_TOPIC", "sap-sync"),
		ConflictPolicy: stringFromEnv("SAP_SYNC_CONFLICT_POLICY", "sap-wins"),
		PushDisabled:   !boolFromEnv("SAP_SYNC_PUSH_ENDPOINT_ENABLED", true),
	}
	for _, t := range strings.Split(stringFromEnv("SAP_SYNC_BP_TYPES", "C,S,L"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.BPTypes = append(cfg.BPTypes, strings.ToUpper(t))
		}
	}
	return cfg
}
