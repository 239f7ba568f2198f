package voucher

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"go.uber.org/zap"
)

// Mediator is a validated surface over a Registry. It holds no voucher state
// of its own; every answer comes from the registry within the same call.
type Mediator struct {
	reg    Registry
	policy SelectPolicy
	log    *zap.Logger
}

// Option configures a Mediator.
type Option func(*Mediator)

// WithSelectPolicy sets the tie-break used by StatusForProgram.
func WithSelectPolicy(p SelectPolicy) Option {
	return func(m *Mediator) { m.policy = p }
}

func NewMediator(reg Registry, log *zap.Logger, opts ...Option) *Mediator {
	m := &Mediator{reg: reg, policy: SelectFirst, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates a voucher for req.Account spendable against req.Program.
// Calling it twice creates two vouchers.
func (m *Mediator) Issue(ctx context.Context, req IssueRequest) (ID, error) {
	account, err := ParseAccount(req.Account)
	if err != nil {
		return ID{}, err
	}
	program, err := ParseProgramID(req.Program)
	if err != nil {
		return ID{}, err
	}
	if err := requirePositive("amount", req.Amount); err != nil {
		return ID{}, err
	}
	if req.DurationSec == 0 {
		return ID{}, &InputError{Field: "durationInSec", Value: "0", Reason: "must be positive"}
	}
	if err := checkDuration(req.DurationSec); err != nil {
		return ID{}, err
	}

	id, err := m.reg.Issue(ctx, account, []ProgramID{program}, req.Amount, req.DurationSec)
	if err != nil {
		return ID{}, registryErr("issue voucher", err)
	}
	m.log.Info("voucher issued",
		zap.String("voucher", id.Hex()),
		zap.String("account", account.Hex()),
		zap.String("program", program.Hex()),
		zap.String("amount", req.Amount.String()),
		zap.Uint64("duration_sec", req.DurationSec),
	)
	return id, nil
}

// Status looks a voucher up by id.
func (m *Mediator) Status(ctx context.Context, rawID string) (*Status, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	v, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toStatus(v), nil
}

// StatusForProgram reports the account's voucher for program. Absence is a
// normal outcome and yields NullProgramStatus, not an error.
func (m *Mediator) StatusForProgram(ctx context.Context, rawAccount, rawProgram string) (*ProgramStatus, error) {
	account, err := ParseAccount(rawAccount)
	if err != nil {
		return nil, err
	}
	program, err := ParseProgramID(rawProgram)
	if err != nil {
		return nil, err
	}

	vs, err := m.reg.ListByAccount(ctx, account)
	if err != nil {
		return nil, registryErr("list vouchers", err)
	}
	chosen := m.policy.pick(vs, program)
	if chosen == nil {
		return NullProgramStatus(), nil
	}

	v, err := m.get(ctx, chosen.ID)
	if errors.Is(err, ErrNotFound) {
		// revoked between the two reads
		return NullProgramStatus(), nil
	}
	if err != nil {
		return nil, err
	}
	id := v.ID.Hex()
	return &ProgramStatus{
		ID:          &id,
		Enabled:     v.Enabled,
		Duration:    StatusDuration,
		VaraToIssue: new(big.Int).Set(balanceOf(v)),
	}, nil
}

// Prolong tops up and/or extends a voucher owned by req.Account.
func (m *Mediator) Prolong(ctx context.Context, req ProlongRequest) error {
	id, err := ParseID(req.VoucherID)
	if err != nil {
		return err
	}
	account, err := ParseAccount(req.Account)
	if err != nil {
		return err
	}
	balance := req.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	if err := checkAmountBits("balance", balance); err != nil {
		return err
	}
	if balance.Sign() < 0 {
		return &InputError{Field: "balance", Value: balance.String(), Reason: "must not be negative"}
	}
	if balance.Sign() == 0 && req.DurationSec == 0 {
		return &InputError{Field: "balance", Value: "0", Reason: "balance or durationInSec must be positive"}
	}
	if err := checkDuration(req.DurationSec); err != nil {
		return err
	}
	if _, err := m.owned(ctx, id, account); err != nil {
		return err
	}

	if err := m.reg.Prolong(ctx, id, account, balance, req.DurationSec); err != nil {
		return registryErr("prolong voucher", err)
	}
	m.log.Info("voucher prolonged",
		zap.String("voucher", id.Hex()),
		zap.String("account", account.Hex()),
		zap.String("balance", balance.String()),
		zap.Uint64("duration_sec", req.DurationSec),
	)
	return nil
}

// Revoke terminates a voucher owned by rawAccount.
func (m *Mediator) Revoke(ctx context.Context, rawID, rawAccount string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	account, err := ParseAccount(rawAccount)
	if err != nil {
		return err
	}
	if _, err := m.owned(ctx, id, account); err != nil {
		return err
	}

	if err := m.reg.Revoke(ctx, id, account); err != nil {
		return registryErr("revoke voucher", err)
	}
	m.log.Info("voucher revoked",
		zap.String("voucher", id.Hex()),
		zap.String("account", account.Hex()),
	)
	return nil
}

func (m *Mediator) get(ctx context.Context, id ID) (*Voucher, error) {
	v, err := m.reg.Get(ctx, id)
	if err != nil {
		return nil, registryErr("get voucher", err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *Mediator) owned(ctx context.Context, id ID, account Account) (*Voucher, error) {
	v, err := m.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.Owner != account {
		return nil, ErrForbidden
	}
	return v, nil
}

func requirePositive(field string, n *big.Int) error {
	if n == nil {
		return &InputError{Field: field, Value: "null", Reason: "required"}
	}
	if err := checkAmountBits(field, n); err != nil {
		return err
	}
	if n.Sign() <= 0 {
		return &InputError{Field: field, Value: n.String(), Reason: "must be positive"}
	}
	return nil
}

// checkAmountBits runs before anything formats n, so an oversized value is
// never rendered in full.
func checkAmountBits(field string, n *big.Int) error {
	if n.BitLen() > MaxAmountBits {
		return &InputError{Field: field, Value: fmt.Sprintf("%d-bit integer", n.BitLen()), Reason: "exceeds uint256"}
	}
	return nil
}

func checkDuration(sec uint64) error {
	if sec > MaxDurationSec {
		return &InputError{Field: "durationInSec", Value: strconv.FormatUint(sec, 10), Reason: "out of range"}
	}
	return nil
}

func balanceOf(v *Voucher) *big.Int {
	if v.Balance == nil {
		return new(big.Int)
	}
	return v.Balance
}
