// Package ledger is a voucher registry kept in Redis. It stands in for the
// on-chain registry on local and devnet deployments: vouchers live in Redis
// hashes, each account keeps its vouchers in issuance order, and lifecycle
// events are published on a pub/sub channel.
package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/voucher"
)

// Redis key templates
const (
	voucherKeyPrefix = "gasless:voucher:" // + voucher id
	accountKeyPrefix = "gasless:account:" // + spender; list of voucher ids
	seqKey           = "gasless:seq"
	EventsChannel    = "gasless:events"
)

var (
	errSpenderMismatch = errors.New("spender mismatch")
	errRevoked         = errors.New("voucher revoked")
	errUnknownVoucher  = errors.New("unknown voucher")
)

// Ledger implements voucher.Registry and voucher.Watcher on Redis.
type Ledger struct {
	rdb *redis.Client
	now func() time.Time
	log *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func New(rdb *redis.Client, log *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{rdb: rdb, now: time.Now, log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func voucherKey(id voucher.ID) string {
	return voucherKeyPrefix + id.Hex()
}

func accountKey(account voucher.Account) string {
	return accountKeyPrefix + account.Hex()
}

// voucherID derives a fresh id from keccak256(spender || programs || seq).
func voucherID(account voucher.Account, programs []voucher.ProgramID, seq int64) voucher.ID {
	data := make([]byte, 0, common.HashLength*(1+len(programs))+8)
	data = append(data, account.Bytes()...)
	for _, p := range programs {
		data = append(data, p.Bytes()...)
	}
	data = binary.BigEndian.AppendUint64(data, uint64(seq))
	return crypto.Keccak256Hash(data)
}

// Issue stores a new voucher and appends it to the spender's list.
func (l *Ledger) Issue(ctx context.Context, account voucher.Account, programs []voucher.ProgramID, amount *big.Int, durationSec uint64) (voucher.ID, error) {
	seq, err := l.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return voucher.ID{}, fmt.Errorf("incr seq: %w", err)
	}
	id := voucherID(account, programs, seq)
	expiry := voucher.ExpiryAfter(l.now().Unix(), durationSec)

	_, err = l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, voucherKey(id),
			"id", id.Hex(),
			"owner", account.Hex(),
			"programs", joinHashes(programs),
			"balance", amount.String(),
			"expiry", expiry,
			"revoked", 0,
		)
		pipe.RPush(ctx, accountKey(account), id.Hex())
		return nil
	})
	if err != nil {
		return voucher.ID{}, fmt.Errorf("store voucher: %w", err)
	}

	l.publish(ctx, voucher.Event{Kind: voucher.EventIssued, ID: id, Account: account, Balance: amount, Expiry: expiry})
	return id, nil
}

// Prolong adds balance and pushes expiry out by durationSec, counted from the
// later of the current expiry and now.
func (l *Ledger) Prolong(ctx context.Context, id voucher.ID, account voucher.Account, balance *big.Int, durationSec uint64) error {
	key := voucherKey(id)
	var ev voucher.Event

	err := l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		rec, err := recordFromMap(vals)
		if err != nil {
			return err
		}
		if rec == nil {
			return errUnknownVoucher
		}
		if rec.owner != account {
			return errSpenderMismatch
		}
		if rec.revoked {
			return errRevoked
		}

		newBalance := new(big.Int).Add(rec.balance, balance)
		base := rec.expiry
		if now := l.now().Unix(); now > base {
			base = now
		}
		newExpiry := voucher.ExpiryAfter(base, durationSec)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "balance", newBalance.String(), "expiry", newExpiry)
			return nil
		})
		ev = voucher.Event{Kind: voucher.EventProlonged, ID: id, Account: account, Balance: newBalance, Expiry: newExpiry}
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("prolong %s: %w", id.Hex(), err)
	}

	l.publish(ctx, ev)
	return nil
}

// Revoke zeroes the voucher, marks it revoked and drops it from the
// spender's list. The hash is kept so lookups by id report it disabled.
func (l *Ledger) Revoke(ctx context.Context, id voucher.ID, account voucher.Account) error {
	key := voucherKey(id)
	var refunded *big.Int

	err := l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		rec, err := recordFromMap(vals)
		if err != nil {
			return err
		}
		if rec == nil {
			return errUnknownVoucher
		}
		if rec.owner != account {
			return errSpenderMismatch
		}
		if rec.revoked {
			return errRevoked
		}
		refunded = rec.balance

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, "balance", "0", "revoked", 1)
			pipe.LRem(ctx, accountKey(account), 0, id.Hex())
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("revoke %s: %w", id.Hex(), err)
	}

	l.publish(ctx, voucher.Event{Kind: voucher.EventRevoked, ID: id, Account: account, Balance: refunded})
	return nil
}

// Get returns the voucher or (nil, nil) when the id is unknown.
func (l *Ledger) Get(ctx context.Context, id voucher.ID) (*voucher.Voucher, error) {
	vals, err := l.rdb.HGetAll(ctx, voucherKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id.Hex(), err)
	}
	rec, err := recordFromMap(vals)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.toVoucher(l.now()), nil
}

// ListByAccount returns the spender's live vouchers in issuance order.
func (l *Ledger) ListByAccount(ctx context.Context, account voucher.Account) ([]voucher.Voucher, error) {
	ids, err := l.rdb.LRange(ctx, accountKey(account), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", account.Hex(), err)
	}
	now := l.now()
	out := make([]voucher.Voucher, 0, len(ids))
	for _, raw := range ids {
		vals, err := l.rdb.HGetAll(ctx, voucherKeyPrefix+raw).Result()
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", account.Hex(), err)
		}
		rec, err := recordFromMap(vals)
		if err != nil {
			l.log.Warn("ledger: skipping corrupt voucher", zap.String("voucher", raw), zap.Error(err))
			continue
		}
		if rec == nil {
			continue
		}
		out = append(out, *rec.toVoucher(now))
	}
	return out, nil
}

// ── record encoding ──────────────────────────────────────────────────────────

type record struct {
	id       voucher.ID
	owner    voucher.Account
	programs []voucher.ProgramID
	balance  *big.Int
	expiry   int64
	revoked  bool
}

func recordFromMap(m map[string]string) (*record, error) {
	if len(m) == 0 {
		return nil, nil
	}
	balance, ok := new(big.Int).SetString(m["balance"], 10)
	if !ok {
		return nil, fmt.Errorf("bad balance %q", m["balance"])
	}
	expiry, err := strconv.ParseInt(m["expiry"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad expiry %q: %w", m["expiry"], err)
	}
	return &record{
		id:       common.HexToHash(m["id"]),
		owner:    common.HexToHash(m["owner"]),
		programs: splitHashes(m["programs"]),
		balance:  balance,
		expiry:   expiry,
		revoked:  m["revoked"] == "1",
	}, nil
}

func (r *record) toVoucher(now time.Time) *voucher.Voucher {
	expiry := time.Unix(r.expiry, 0)
	return &voucher.Voucher{
		ID:       r.id,
		Owner:    r.owner,
		Programs: r.programs,
		Balance:  r.balance,
		Expiry:   expiry,
		Enabled:  !r.revoked && now.Before(expiry),
	}
}

func joinHashes(hs []common.Hash) string {
	parts := make([]string, len(hs))
	for i, h := range hs {
		parts[i] = h.Hex()
	}
	return strings.Join(parts, ",")
}

func splitHashes(s string) []common.Hash {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]common.Hash, len(parts))
	for i, p := range parts {
		out[i] = common.HexToHash(p)
	}
	return out
}
