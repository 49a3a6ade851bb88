package models

import "strings"

// RecordSource tells which system is authoritative for a record's edits.
type RecordSource string

const (
	RecordSourceSAP    RecordSource = "sap"
	RecordSourcePortal RecordSource = "portal"
)

type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
)

// CardType is the SAP business partner type.
type CardType string

const (
	CardTypeCustomer CardType = "C"
	CardTypeSupplier CardType = "S"
	CardTypeLead     CardType = "L"
)

// ParseCardType accepts the single letter codes as well as the Service Layer
// enum names (cCustomer, cSupplier, cLid).
func ParseCardType(s string) (CardType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "ccustomer", "customer":
		return CardTypeCustomer, true
	case "s", "csupplier", "supplier":
		return CardTypeSupplier, true
	case "l", "clid", "lead":
		return CardTypeLead, true
	default:
		return "", false
	}
}

const (
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
)

const (
	SyncBranchBootstrap   = "bootstrap"
	SyncBranchIncremental = "incremental"
)
