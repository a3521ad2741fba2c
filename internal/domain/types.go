package domain

import (
	"math/big"
	"regexp"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID is the numeric identifier of one support-asset type, scoped to
// the platform's asset contract. Kept as a decimal string at the edges
// (request, response, database) and converted to big.Int at the ledger
// boundary.
type AssetID string

var assetIDPattern = regexp.MustCompile(`^[0-9]+$`)

// Valid checks if the AssetID is a non-empty decimal number
func (a AssetID) Valid() bool {
	return assetIDPattern.MatchString(string(a))
}

// BigInt converts the AssetID to a big.Int
func (a AssetID) BigInt() (*big.Int, bool) {
	return new(big.Int).SetString(string(a), 10)
}

func (a AssetID) String() string {
	return string(a)
}

// CandidateSource describes how a candidate address entered the set
type CandidateSource string

const (
	// SourceSeed is an address supplied explicitly on the request
	SourceSeed CandidateSource = "seed"
	// SourceStored is an address previously recorded for the user
	SourceStored CandidateSource = "stored"
	// SourceEOA is the address recovered from the user's key material
	SourceEOA CandidateSource = "eoa"
	// SourceFactory is a counterfactual wallet-factory prediction
	SourceFactory CandidateSource = "factory"
	// SourceMinedTx is a recipient mined from a historical purchase receipt
	SourceMinedTx CandidateSource = "mined_tx"
)

// Candidate is a checksummed address suspected of holding a user's assets,
// together with the provenance of how it was discovered.
type Candidate struct {
	Address string          `json:"address"`
	Source  CandidateSource `json:"source"`
	Factory string          `json:"factory,omitempty"` // factory name for SourceFactory
	Param   int             `json:"param,omitempty"`   // derivation parameter for SourceFactory
	TxHash  string          `json:"tx_hash,omitempty"` // transaction hash for SourceMinedTx
}

// CandidateSet is a deduplicated set of candidate addresses keyed by
// checksummed address. The first-seen source wins; membership is idempotent.
type CandidateSet struct {
	members map[string]Candidate
	order   []string
}

// NewCandidateSet creates an empty candidate set
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{members: make(map[string]Candidate)}
}

// Add inserts a candidate, normalizing its address. Invalid and zero
// addresses are ignored. Returns true if the candidate was newly added.
func (s *CandidateSet) Add(c Candidate) bool {
	if !common.IsHexAddress(c.Address) {
		return false
	}
	addr := NormalizeAddress(c.Address)
	if addr == ETHEREUM_ZERO_ADDRESS {
		return false
	}
	if _, ok := s.members[addr]; ok {
		return false
	}
	c.Address = addr
	s.members[addr] = c
	s.order = append(s.order, addr)
	return true
}

// Contains reports whether the normalized address is already a member
func (s *CandidateSet) Contains(address string) bool {
	_, ok := s.members[NormalizeAddress(address)]
	return ok
}

// Len returns the number of candidates
func (s *CandidateSet) Len() int {
	return len(s.members)
}

// Candidates returns the members in insertion order
func (s *CandidateSet) Candidates() []Candidate {
	out := make([]Candidate, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.members[addr])
	}
	return out
}

// BalanceRecord is one (candidate address, asset id) balance as read from
// the ledger at query time. Ephemeral; never cached across requests.
type BalanceRecord struct {
	Address string
	AssetID AssetID
	Balance *big.Int
}

// AssetMetadata holds the optional supply/price enrichment for one asset id,
// read fresh from the contract each time.
type AssetMetadata struct {
	TotalSupply          *big.Int
	ExternallyHeldSupply *big.Int
	UnitPriceUSD         float64
}

// ReconciledBalance is the externally visible result for one asset id:
// the total across all candidate addresses plus the subset of candidates
// actually holding a nonzero balance.
type ReconciledBalance struct {
	AssetID          AssetID
	Total            *big.Int
	HoldingAddresses []string
	Metadata         *AssetMetadata
	Err              string // degraded (but not fatal) computation note
}

// SortHoldingAddresses orders holding addresses lexicographically so the
// result is stable regardless of query completion order.
func (r *ReconciledBalance) SortHoldingAddresses() {
	sort.Strings(r.HoldingAddresses)
}

// TransferEvent is one parsed transfer log emitted by the asset contract
type TransferEvent struct {
	Operator string
	From     string
	To       string
	AssetID  AssetID
	Amount   *big.Int
	TxHash   string
}

// NormalizeAddress normalizes an address to its EIP-55 checksummed form
func NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

// NormalizeAddresses normalizes a list of addresses in place
func NormalizeAddresses(addresses []string) []string {
	for i, address := range addresses {
		addresses[i] = NormalizeAddress(address)
	}
	return addresses
}
