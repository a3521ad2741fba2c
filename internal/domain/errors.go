package domain

import "errors"

var (
	// ErrRecordNotFound is returned by stores when a lookup matches nothing
	ErrRecordNotFound = errors.New("record not found")

	// ErrMissingLedgerConfig is returned when the asset contract address or
	// primary RPC endpoint is not configured; no partial answer is possible
	ErrMissingLedgerConfig = errors.New("ledger configuration missing")
)
