package sapsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/portal_backend/models"
	"github.com/mmdatafocus/portal_backend/utils"
)

const sapDateLayout = "20060102"

var ErrMissingKey = errors.New("natural key is empty")

// RecordError reports an external record that could not be decoded. The
// record is skipped; the rest of the page is still used.
type RecordError struct {
	Entity string
	Index  int
	Key    string
	Err    error
}

func (e *RecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s record %d (%s): %v", e.Entity, e.Index, e.Key, e.Err)
	}
	return fmt.Sprintf("%s record %d: %v", e.Entity, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// parseSAPDate reads a yyyyMMdd date. Anything else yields the zero time,
// which is never after a watermark.
func parseSAPDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if len(s) != len(sapDateLayout) {
		return time.Time{}
	}
	t, err := time.ParseInLocation(sapDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func sapBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "tyes", "yes", "true", "1":
		return true
	default:
		return false
	}
}

func datePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// sapBusinessPartner mirrors the OCRD columns returned by the BP master query.
type sapBusinessPartner struct {
	CardCode   string      `json:"CardCode"`
	CardName   string      `json:"CardName"`
	CardType   string      `json:"CardType"`
	GroupCode  json.Number `json:"GroupCode"`
	Phone1     string      `json:"Phone1"`
	Phone2     string      `json:"Phone2"`
	Cellular   string      `json:"Cellular"`
	Email      string      `json:"E_Mail"`
	Website    string      `json:"IntrntSite"`
	Currency   string      `json:"Currency"`
	LicTradNum string      `json:"LicTradNum"`
	Address    string      `json:"Address"`
	City       string      `json:"City"`
	ZipCode    string      `json:"ZipCode"`
	Country    string      `json:"Country"`
	FrozenFor  string      `json:"frozenFor"`
	CreateDate string      `json:"CreateDate"`
	UpdateDate string      `json:"UpdateDate"`
}

// sapContact mirrors the OCPR columns returned by the contact master query.
type sapContact struct {
	CntctCode  json.Number `json:"CntctCode"`
	CardCode   string      `json:"CardCode"`
	Name       string      `json:"Name"`
	FirstName  string      `json:"FirstName"`
	LastName   string      `json:"LastName"`
	Position   string      `json:"Position"`
	Tel1       string      `json:"Tel1"`
	Cellolar   string      `json:"Cellolar"`
	Email      string      `json:"E_MailL"`
	Active     string      `json:"Active"`
	CreateDate string      `json:"CreateDate"`
	UpdateDate string      `json:"UpdateDate"`
}

type BusinessPartnerRecord struct {
	CardCode     string
	CardName     string
	CardType     models.CardType
	GroupCode    int
	Phone1       string
	Phone2       string
	Cellular     string
	Email        string
	Website      string
	Currency     string
	FederalTaxId string
	Address      string
	City         string
	ZipCode      string
	Country      string
	Frozen       bool
	Created      time.Time
	Updated      time.Time
}

func (r BusinessPartnerRecord) NaturalKey() string { return r.CardCode }

func (r BusinessPartnerRecord) InScope(scope string) bool {
	return strings.EqualFold(string(r.CardType), scope)
}

func (r BusinessPartnerRecord) CreatedOn() time.Time { return r.Created }
func (r BusinessPartnerRecord) UpdatedOn() time.Time { return r.Updated }

type ContactRecord struct {
	ContactCode string
	CardCode    string
	Name        string
	FirstName   string
	LastName    string
	Position    string
	Phone       string
	Mobile      string
	Email       string
	Active      bool
	Created     time.Time
	Updated     time.Time
}

func (r ContactRecord) NaturalKey() string { return r.ContactCode }

func (r ContactRecord) InScope(scope string) bool { return strings.EqualFold(r.CardCode, scope) }

func (r ContactRecord) CreatedOn() time.Time { return r.Created }
func (r ContactRecord) UpdatedOn() time.Time { return r.Updated }

func decodeBusinessPartners(raw []json.RawMessage) ([]BusinessPartnerRecord, []error) {
	records := make([]BusinessPartnerRecord, 0, len(raw))
	var errs []error
	for i, msg := range raw {
		var dto sapBusinessPartner
		if err := json.Unmarshal(msg, &dto); err != nil {
			errs = append(errs, &RecordError{Entity: entityBusinessPartner, Index: i, Err: err})
			continue
		}
		code := strings.TrimSpace(dto.CardCode)
		if code == "" {
			errs = append(errs, &RecordError{Entity: entityBusinessPartner, Index: i, Err: ErrMissingKey})
			continue
		}
		cardType, ok := models.ParseCardType(dto.CardType)
		if !ok {
			errs = append(errs, &RecordError{Entity: entityBusinessPartner, Index: i, Key: code, Err: fmt.Errorf("unknown card type %q", dto.CardType)})
			continue
		}
		var group int
		if dto.GroupCode != "" {
			n, err := dto.GroupCode.Int64()
			if err != nil {
				errs = append(errs, &RecordError{Entity: entityBusinessPartner, Index: i, Key: code, Err: fmt.Errorf("group code: %w", err)})
				continue
			}
			group = int(n)
		}
		records = append(records, BusinessPartnerRecord{
			CardCode:     code,
			CardName:     strings.TrimSpace(dto.CardName),
			CardType:     cardType,
			GroupCode:    group,
			Phone1:       strings.TrimSpace(dto.Phone1),
			Phone2:       strings.TrimSpace(dto.Phone2),
			Cellular:     strings.TrimSpace(dto.Cellular),
			Email:        strings.TrimSpace(dto.Email),
			Website:      strings.TrimSpace(dto.Website),
			Currency:     strings.TrimSpace(dto.Currency),
			FederalTaxId: strings.TrimSpace(dto.LicTradNum),
			Address:      strings.TrimSpace(dto.Address),
			City:         strings.TrimSpace(dto.City),
			ZipCode:      strings.TrimSpace(dto.ZipCode),
			Country:      strings.TrimSpace(dto.Country),
			Frozen:       sapBool(dto.FrozenFor),
			Created:      parseSAPDate(dto.CreateDate),
			Updated:      parseSAPDate(dto.UpdateDate),
		})
	}
	return records, errs
}

func decodeContacts(raw []json.RawMessage, phoneRegion string) ([]ContactRecord, []error) {
	records := make([]ContactRecord, 0, len(raw))
	var errs []error
	for i, msg := range raw {
		var dto sapContact
		if err := json.Unmarshal(msg, &dto); err != nil {
			errs = append(errs, &RecordError{Entity: entityContact, Index: i, Err: err})
			continue
		}
		code := strings.TrimSpace(dto.CntctCode.String())
		if code == "" {
			errs = append(errs, &RecordError{Entity: entityContact, Index: i, Err: ErrMissingKey})
			continue
		}
		records = append(records, ContactRecord{
			ContactCode: code,
			CardCode:    strings.TrimSpace(dto.CardCode),
			Name:        strings.TrimSpace(dto.Name),
			FirstName:   strings.TrimSpace(dto.FirstName),
			LastName:    strings.TrimSpace(dto.LastName),
			Position:    strings.TrimSpace(dto.Position),
			Phone:       utils.FormatPhoneNumber(dto.Tel1, phoneRegion),
			Mobile:      utils.FormatPhoneNumber(dto.Cellolar, phoneRegion),
			Email:       strings.TrimSpace(dto.Email),
			Active:      dto.Active == "" || sapBool(dto.Active),
			Created:     parseSAPDate(dto.CreateDate),
			Updated:     parseSAPDate(dto.UpdateDate),
		})
	}
	return records, errs
}
