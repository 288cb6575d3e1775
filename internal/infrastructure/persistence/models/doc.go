// Package models contains the GORM models of the tables the ledger reads:
// customers, orders and payments. The ledger never writes derived values
// back; the models only map rows to the engine's record types.
//
// Nullable amount and date columns stay nullable here so that malformed rows
// reach the engine and surface as data quality warnings instead of being
// silently coerced to zero.
package models
