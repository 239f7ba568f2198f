package voucher

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StatusDuration is the duration reported by every status query. It is a
// fixed reporting value, not the remaining lifetime of the voucher.
const StatusDuration = 3600

// Defaults applied by callers when a voucher request omits them.
const (
	DefaultAmount      = 10_000_000_000_000
	DefaultDurationSec = 3600
)

// Bounds on request values. Amounts are uint256 in the on-chain registry.
// MaxExpiryUnix keeps expiries representable by time.Time; registries
// saturate at it.
const (
	MaxAmountBits  = 256
	MaxDurationSec = 1 << 62
	MaxExpiryUnix  = 1 << 62
)

// ExpiryAfter returns base+durationSec in unix seconds, saturating at
// MaxExpiryUnix.
func ExpiryAfter(base int64, durationSec uint64) int64 {
	if base >= MaxExpiryUnix || durationSec >= uint64(MaxExpiryUnix-base) {
		return MaxExpiryUnix
	}
	return base + int64(durationSec)
}

// Account, ProgramID and ID are 32-byte identifiers written as "0x" followed
// by 64 hex digits.
type (
	Account   = common.Hash
	ProgramID = common.Hash
	ID        = common.Hash
)

// Voucher is a delegated fee-payment grant as reported by the registry.
type Voucher struct {
	ID       ID
	Owner    Account // spender whose fees the voucher covers
	Programs []ProgramID
	Balance  *big.Int
	Expiry   time.Time
	Enabled  bool
}

// Allows reports whether the voucher may be spent against program.
func (v *Voucher) Allows(program ProgramID) bool {
	for _, p := range v.Programs {
		if p == program {
			return true
		}
	}
	return false
}

// Status is the client-facing projection of a voucher.
type Status struct {
	ID       string   `json:"id"`
	Enabled  bool     `json:"enabled"`
	Duration uint64   `json:"duration"`
	Balance  *big.Int `json:"balance"`
}

// ProgramStatus answers "does this account hold a voucher for this program".
// A nil ID is the null sentinel returned when it does not.
type ProgramStatus struct {
	ID          *string  `json:"id"`
	Enabled     bool     `json:"enabled"`
	Duration    uint64   `json:"duration"`
	VaraToIssue *big.Int `json:"varaToIssue"`
}

// NullProgramStatus returns {id: null, enabled: false, duration: 0, varaToIssue: 0}.
func NullProgramStatus() *ProgramStatus {
	return &ProgramStatus{VaraToIssue: new(big.Int)}
}

// IssueRequest carries the raw parameters of a new voucher. Account and
// Program are validated by the mediator, not by the caller.
type IssueRequest struct {
	Account     string
	Program     string
	Amount      *big.Int
	DurationSec uint64
}

// ProlongRequest tops up a voucher's balance and/or extends its expiry.
type ProlongRequest struct {
	VoucherID   string
	Account     string
	Balance     *big.Int
	DurationSec uint64
}

// ParseAccount parses a 0x-prefixed 32-byte hex account.
func ParseAccount(s string) (Account, error) { return parseHash("account", s) }

// ParseProgramID parses a 0x-prefixed 32-byte hex program identifier.
func ParseProgramID(s string) (ProgramID, error) { return parseHash("program", s) }

// ParseID parses a 0x-prefixed 32-byte hex voucher identifier.
func ParseID(s string) (ID, error) { return parseHash("voucherId", s) }

func parseHash(field, s string) (common.Hash, error) {
	if !strings.HasPrefix(s, "0x") || len(s) != 2+2*common.HashLength {
		return common.Hash{}, &InputError{Field: field, Value: s}
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, &InputError{Field: field, Value: s, Reason: "not hex"}
	}
	return common.BytesToHash(b), nil
}

// toStatus normalizes a registry voucher into the reported Status.
func toStatus(v *Voucher) *Status {
	bal := new(big.Int)
	if v.Balance != nil {
		bal.Set(v.Balance)
	}
	return &Status{
		ID:       v.ID.Hex(),
		Enabled:  v.Enabled,
		Duration: StatusDuration,
		Balance:  bal,
	}
}
