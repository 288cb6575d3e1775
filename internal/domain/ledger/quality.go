package ledger

import "fmt"

// RecordKind names the kind of record a warning refers to
type RecordKind string

const (
	RecordKindOrder    RecordKind = "order"
	RecordKindPayment  RecordKind = "payment"
	RecordKindCustomer RecordKind = "customer"
	RecordKindEntity   RecordKind = "entity"
)

// WarningReason classifies a data-quality problem
type WarningReason string

const (
	ReasonMissingAmount       WarningReason = "MISSING_AMOUNT"
	ReasonMissingDate         WarningReason = "MISSING_DATE"
	ReasonForeignTenant       WarningReason = "FOREIGN_TENANT"
	ReasonInconsistentBalance WarningReason = "INCONSISTENT_BALANCE"
)

// DataQualityWarning describes a record that was skipped or an entity whose
// figures could not be fully explained. Warnings are never fatal.
type DataQualityWarning struct {
	RecordKind RecordKind    `json:"record_kind"`
	RecordID   string        `json:"record_id"`
	EntityID   EntityID      `json:"entity_id,omitempty"`
	Reason     WarningReason `json:"reason"`
	Message    string        `json:"message"`
}

func orderWarnings(entityID EntityID, o Order) []DataQualityWarning {
	var warnings []DataQualityWarning
	if !o.TotalAmount.Valid {
		warnings = append(warnings, DataQualityWarning{
			RecordKind: RecordKindOrder,
			RecordID:   o.ID,
			EntityID:   entityID,
			Reason:     ReasonMissingAmount,
			Message:    fmt.Sprintf("order %s has no total amount and was excluded", o.ID),
		})
	}
	if _, ok := o.EffectiveDate(); !ok {
		warnings = append(warnings, DataQualityWarning{
			RecordKind: RecordKindOrder,
			RecordID:   o.ID,
			EntityID:   entityID,
			Reason:     ReasonMissingDate,
			Message:    fmt.Sprintf("order %s has neither order date nor creation time and was excluded", o.ID),
		})
	}
	return warnings
}

func paymentWarnings(entityID EntityID, p Payment) []DataQualityWarning {
	var warnings []DataQualityWarning
	if !p.Amount.Valid {
		warnings = append(warnings, DataQualityWarning{
			RecordKind: RecordKindPayment,
			RecordID:   p.ID,
			EntityID:   entityID,
			Reason:     ReasonMissingAmount,
			Message:    fmt.Sprintf("payment %s has no amount and was excluded", p.ID),
		})
	}
	if _, ok := p.EffectiveDate(); !ok {
		warnings = append(warnings, DataQualityWarning{
			RecordKind: RecordKindPayment,
			RecordID:   p.ID,
			EntityID:   entityID,
			Reason:     ReasonMissingDate,
			Message:    fmt.Sprintf("payment %s has neither date nor creation time and was excluded", p.ID),
		})
	}
	return warnings
}

// recordWarnings reports every unusable record of one entity
func recordWarnings(entityID EntityID, orders []Order, payments []Payment) []DataQualityWarning {
	var warnings []DataQualityWarning
	for _, o := range orders {
		warnings = append(warnings, orderWarnings(entityID, o)...)
	}
	for _, p := range payments {
		warnings = append(warnings, paymentWarnings(entityID, p)...)
	}
	return warnings
}

func foreignTenantWarning(kind RecordKind, id string) DataQualityWarning {
	return DataQualityWarning{
		RecordKind: kind,
		RecordID:   id,
		Reason:     ReasonForeignTenant,
		Message:    fmt.Sprintf("%s %s belongs to another tenant and was ignored", kind, id),
	}
}
