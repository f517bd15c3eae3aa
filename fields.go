package tally

import "github.com/zoobzio/capitan"

// Field keys for Board events.
var (
	// KeyAction is the action category (refresh, sync, export, submit, delete).
	KeyAction = capitan.NewStringKey("action")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyTable is the table named by a feed change.
	KeyTable = capitan.NewStringKey("table")

	// KeyCustomerID is the customer a mutation targets.
	KeyCustomerID = capitan.NewStringKey("customer_id")

	// KeyCustomers is the customer count after a refresh.
	KeyCustomers = capitan.NewIntKey("customers")

	// KeyToastKind is the kind of a toast (success, error).
	KeyToastKind = capitan.NewStringKey("toast_kind")

	// KeyDebounce is the configured feed debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")
)
