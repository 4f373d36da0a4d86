package workflow

import (
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// RawRecord is one inbound row from an order export, delivery note or
// invoice, as handed over by the external billing system.
type RawRecord struct {
	Kind           models.RecordKind `json:"kind" validate:"required"`
	SourceRecordId string            `json:"source_record_id" validate:"required"`
	OrderNumber    string            `json:"order_number" validate:"required"`
	Sku            string            `json:"sku" validate:"required"`
	Description    string            `json:"description"`
	Quantity       string            `json:"quantity" validate:"required"`
	UnitPrice      string            `json:"unit_price" validate:"required"`
	LineTotal      string            `json:"line_total"`
	Currency       string            `json:"currency" validate:"required,len=3"`
}

var validate = validator.New()

// NormalizeRecords converts heterogeneous raw records into canonical line
// items. Pure: no lookups, no side effects. Rejects the whole submission on
// the first malformed row so no partial unit state can be produced.
func NormalizeRecords(source models.RecordSource, records []RawRecord) ([]models.LineItem, error) {
	lineItems := make([]models.LineItem, 0, len(records))
	currency := ""

	for i, record := range records {
		switch record.Kind {
		case models.RecordKindOrder, models.RecordKindDeliveryNote, models.RecordKindInvoice:
		default:
			return nil, fmt.Errorf("%w: record %d kind %q", utils.ErrUnknownSource, i, record.Kind)
		}

		if err := validate.Struct(record); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", utils.ErrMalformedRecord, i, utils.ProcessValidationErrors(err))
		}

		qty, err := decimal.NewFromString(strings.TrimSpace(record.Quantity))
		if err != nil || qty.IsNegative() {
			return nil, fmt.Errorf("%w: record %d quantity %q", utils.ErrMalformedRecord, i, record.Quantity)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(record.UnitPrice))
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("%w: record %d unit_price %q", utils.ErrMalformedRecord, i, record.UnitPrice)
		}

		computedTotal := qty.Mul(price)
		lineTotal := computedTotal
		if strings.TrimSpace(record.LineTotal) != "" {
			claimed, err := decimal.NewFromString(strings.TrimSpace(record.LineTotal))
			if err != nil || claimed.IsNegative() {
				return nil, fmt.Errorf("%w: record %d line_total %q", utils.ErrMalformedRecord, i, record.LineTotal)
			}
			// A reported total that disagrees with qty*price beyond rounding
			// is a data defect on the reporting side, not a variance.
			if claimed.Sub(computedTotal).Abs().GreaterThan(decimal.NewFromFloat(0.01)) {
				return nil, fmt.Errorf("%w: record %d line_total %s != quantity*unit_price %s",
					utils.ErrMalformedRecord, i, claimed, computedTotal)
			}
			lineTotal = claimed
		}

		recordCurrency := strings.ToUpper(strings.TrimSpace(record.Currency))
		if currency == "" {
			currency = recordCurrency
		} else if currency != recordCurrency {
			return nil, fmt.Errorf("%w: record %d reports %s, submission started with %s",
				utils.ErrCurrencyMismatch, i, recordCurrency, currency)
		}

		lineItems = append(lineItems, models.LineItem{
			Source:         source,
			SourceRecordId: record.SourceRecordId,
			OrderNumber:    strings.TrimSpace(record.OrderNumber),
			Sku:            strings.TrimSpace(record.Sku),
			Description:    record.Description,
			Quantity:       qty,
			UnitPrice:      price,
			LineTotal:      lineTotal,
			Currency:       recordCurrency,
			Position:       i,
		})
	}

	return lineItems, nil
}
