package dto

import (
	"github.com/fanvault/reconciler/internal/domain"
	"github.com/fanvault/reconciler/internal/reconcile"
)

// ReconcileRequest is the body of POST /api/v1/balances/reconcile.
// At least one of UserID and Address must be present; UserID falls back
// to the authenticated subject when omitted.
type ReconcileRequest struct {
	UserID       string   `json:"user_id"`
	Address      string   `json:"address"`
	AssetIDs     []string `json:"asset_ids" binding:"required"`
	WithMetadata bool     `json:"with_metadata"`
	MaxIndex     int      `json:"max_index"`
}

// ReconcileResponse is the reconciliation result envelope
type ReconcileResponse struct {
	Candidates []CandidateDTO `json:"candidates"`
	Balances   []BalanceDTO   `json:"balances"`
}

// CandidateDTO is one discovered candidate address with its provenance
type CandidateDTO struct {
	Address string `json:"address"`
	Source  string `json:"source"`
	Factory string `json:"factory,omitempty"`
	Param   *int   `json:"param,omitempty"`
	TxHash  string `json:"tx_hash,omitempty"`
}

// BalanceDTO is the reconciled balance for one asset id. Totals are decimal
// strings; ledger quantities can exceed int64.
type BalanceDTO struct {
	AssetID          string       `json:"asset_id"`
	Total            string       `json:"total"`
	HoldingAddresses []string     `json:"holding_addresses"`
	Metadata         *MetadataDTO `json:"metadata,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// MetadataDTO is the optional supply/price enrichment for one asset id
type MetadataDTO struct {
	TotalSupply          string  `json:"total_supply"`
	ExternallyHeldSupply string  `json:"externally_held_supply"`
	UnitPriceUSD         float64 `json:"unit_price_usd"`
}

// NewReconcileResponse maps an engine result into the response envelope
func NewReconcileResponse(result *reconcile.Result) ReconcileResponse {
	response := ReconcileResponse{
		Candidates: make([]CandidateDTO, 0, len(result.Candidates)),
		Balances:   make([]BalanceDTO, 0, len(result.Balances)),
	}

	for _, candidate := range result.Candidates {
		c := CandidateDTO{
			Address: candidate.Address,
			Source:  string(candidate.Source),
			Factory: candidate.Factory,
			TxHash:  candidate.TxHash,
		}
		if candidate.Source == domain.SourceFactory {
			param := candidate.Param
			c.Param = &param
		}
		response.Candidates = append(response.Candidates, c)
	}

	for _, balance := range result.Balances {
		b := BalanceDTO{
			AssetID:          balance.AssetID.String(),
			Total:            "0",
			HoldingAddresses: balance.HoldingAddresses,
			Error:            balance.Err,
		}
		if b.HoldingAddresses == nil {
			b.HoldingAddresses = []string{}
		}
		if balance.Total != nil {
			b.Total = balance.Total.String()
		}
		if balance.Metadata != nil {
			b.Metadata = &MetadataDTO{
				TotalSupply:          "0",
				ExternallyHeldSupply: "0",
				UnitPriceUSD:         balance.Metadata.UnitPriceUSD,
			}
			if balance.Metadata.TotalSupply != nil {
				b.Metadata.TotalSupply = balance.Metadata.TotalSupply.String()
			}
			if balance.Metadata.ExternallyHeldSupply != nil {
				b.Metadata.ExternallyHeldSupply = balance.Metadata.ExternallyHeldSupply.String()
			}
		}
		response.Balances = append(response.Balances, b)
	}

	return response
}
