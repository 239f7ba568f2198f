package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/voucher"
)

var (
	alice   = common.HexToHash("0xaaaa")
	bob     = common.HexToHash("0xbbbb")
	progA   = common.HexToHash("0x01")
	progB   = common.HexToHash("0x02")
	fixedAt = time.Unix(1_700_000_000, 0)
)

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return rdb, mr
}

// newTestLedger returns a ledger whose clock is controlled by *now.
func newTestLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	rdb, _ := newTestRedis(t)
	now := fixedAt
	l := New(rdb, zap.NewNop(), WithClock(func() time.Time { return now }))
	return l, &now
}

func mustIssue(t *testing.T, l *Ledger, account voucher.Account, program voucher.ProgramID, amount int64, dur uint64) voucher.ID {
	t.Helper()
	id, err := l.Issue(context.Background(), account, []voucher.ProgramID{program}, big.NewInt(amount), dur)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return id
}

// ── Issue / Get ──────────────────────────────────────────────────────────────

func TestIssue_Get(t *testing.T) {
	l, _ := newTestLedger(t)
	id := mustIssue(t, l, alice, progA, 5000, 3600)

	v, err := l.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v == nil {
		t.Fatal("Get: voucher not found")
	}
	if v.ID != id {
		t.Errorf("ID: got %s, want %s", v.ID.Hex(), id.Hex())
	}
	if v.Owner != alice {
		t.Errorf("Owner: got %s", v.Owner.Hex())
	}
	if len(v.Programs) != 1 || v.Programs[0] != progA {
		t.Errorf("Programs: got %v", v.Programs)
	}
	if v.Balance.Int64() != 5000 {
		t.Errorf("Balance: got %s", v.Balance)
	}
	if want := fixedAt.Add(time.Hour); !v.Expiry.Equal(want) {
		t.Errorf("Expiry: got %v, want %v", v.Expiry, want)
	}
	if !v.Enabled {
		t.Error("fresh voucher should be enabled")
	}
}

func TestIssue_DistinctIDs(t *testing.T) {
	l, _ := newTestLedger(t)
	a := mustIssue(t, l, alice, progA, 1, 60)
	b := mustIssue(t, l, alice, progA, 1, 60)
	if a == b {
		t.Fatalf("identical issue calls must yield distinct ids, both %s", a.Hex())
	}
}

func TestGet_Unknown(t *testing.T) {
	l, _ := newTestLedger(t)
	v, err := l.Get(context.Background(), common.HexToHash("0xdead"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil for unknown id, got %+v", v)
	}
}

func TestGet_ExpiredIsDisabled(t *testing.T) {
	l, now := newTestLedger(t)
	id := mustIssue(t, l, alice, progA, 10, 60)

	*now = fixedAt.Add(61 * time.Second)
	v, err := l.Get(context.Background(), id)
	if err != nil || v == nil {
		t.Fatalf("Get: %v, %v", v, err)
	}
	if v.Enabled {
		t.Error("voucher past expiry should be disabled")
	}
}

func TestIssue_LongDurationStaysEnabled(t *testing.T) {
	l, _ := newTestLedger(t)
	id := mustIssue(t, l, alice, progA, 5000, 10_000_000_000)

	v, err := l.Get(context.Background(), id)
	if err != nil || v == nil {
		t.Fatalf("Get: %v, %v", v, err)
	}
	if !v.Enabled {
		t.Errorf("voucher disabled right after issue, expiry %v", v.Expiry)
	}
	if got, want := v.Expiry.Unix(), fixedAt.Unix()+10_000_000_000; got != want {
		t.Errorf("Expiry: got %d, want %d", got, want)
	}
}

func TestIssue_ExpirySaturates(t *testing.T) {
	l, _ := newTestLedger(t)
	id := mustIssue(t, l, alice, progA, 1, voucher.MaxDurationSec)

	v, _ := l.Get(context.Background(), id)
	if v.Expiry.Unix() != voucher.MaxExpiryUnix || !v.Enabled {
		t.Errorf("got expiry %d enabled %v", v.Expiry.Unix(), v.Enabled)
	}
}

// ── ListByAccount ────────────────────────────────────────────────────────────

func TestListByAccount_IssuanceOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	first := mustIssue(t, l, alice, progA, 1, 60)
	mustIssue(t, l, bob, progA, 1, 60)
	second := mustIssue(t, l, alice, progB, 2, 60)

	vs, err := l.ListByAccount(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(vs) != 2 {
		t.Fatalf("expected 2 vouchers, got %d", len(vs))
	}
	if vs[0].ID != first || vs[1].ID != second {
		t.Errorf("order: got %s, %s", vs[0].ID.Hex(), vs[1].ID.Hex())
	}
}

func TestListByAccount_Empty(t *testing.T) {
	l, _ := newTestLedger(t)
	vs, err := l.ListByAccount(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(vs) != 0 {
		t.Errorf("expected no vouchers, got %d", len(vs))
	}
}

// ── Prolong ──────────────────────────────────────────────────────────────────

func TestProlong_TopUpAndExtend(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	id := mustIssue(t, l, alice, progA, 100, 3600)

	if err := l.Prolong(ctx, id, alice, big.NewInt(50), 600); err != nil {
		t.Fatalf("Prolong: %v", err)
	}
	v, _ := l.Get(ctx, id)
	if v.Balance.Int64() != 150 {
		t.Errorf("Balance: got %s, want 150", v.Balance)
	}
	if want := fixedAt.Add(time.Hour + 10*time.Minute); !v.Expiry.Equal(want) {
		t.Errorf("Expiry: got %v, want %v", v.Expiry, want)
	}
}

func TestProlong_ExpiredCountsFromNow(t *testing.T) {
	l, now := newTestLedger(t)
	ctx := context.Background()
	id := mustIssue(t, l, alice, progA, 100, 60)

	*now = fixedAt.Add(time.Hour)
	if err := l.Prolong(ctx, id, alice, big.NewInt(0), 120); err != nil {
		t.Fatalf("Prolong: %v", err)
	}
	v, _ := l.Get(ctx, id)
	if want := now.Add(120 * time.Second); !v.Expiry.Equal(want) {
		t.Errorf("Expiry: got %v, want %v", v.Expiry, want)
	}
	if !v.Enabled {
		t.Error("prolonged voucher should be enabled again")
	}
}

func TestProlong_NoWrapAround(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	id := mustIssue(t, l, alice, progA, 1, voucher.MaxDurationSec)

	for i := 0; i < 3; i++ {
		if err := l.Prolong(ctx, id, alice, big.NewInt(0), voucher.MaxDurationSec); err != nil {
			t.Fatalf("Prolong #%d: %v", i, err)
		}
	}
	v, _ := l.Get(ctx, id)
	if v.Expiry.Unix() != voucher.MaxExpiryUnix || !v.Enabled {
		t.Errorf("got expiry %d enabled %v", v.Expiry.Unix(), v.Enabled)
	}
}

func TestProlong_Rejections(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	id := mustIssue(t, l, alice, progA, 100, 60)

	if err := l.Prolong(ctx, id, bob, big.NewInt(1), 1); !errors.Is(err, errSpenderMismatch) {
		t.Errorf("wrong spender: got %v", err)
	}
	if err := l.Prolong(ctx, common.HexToHash("0xdead"), alice, big.NewInt(1), 1); !errors.Is(err, errUnknownVoucher) {
		t.Errorf("unknown voucher: got %v", err)
	}
	if err := l.Revoke(ctx, id, alice); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := l.Prolong(ctx, id, alice, big.NewInt(1), 1); !errors.Is(err, errRevoked) {
		t.Errorf("revoked voucher: got %v", err)
	}
}

// ── Revoke ───────────────────────────────────────────────────────────────────

func TestRevoke(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	id := mustIssue(t, l, alice, progA, 100, 3600)

	if err := l.Revoke(ctx, id, alice); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	v, err := l.Get(ctx, id)
	if err != nil || v == nil {
		t.Fatalf("revoked voucher should still resolve by id: %v, %v", v, err)
	}
	if v.Enabled {
		t.Error("revoked voucher must be disabled")
	}
	if v.Balance.Sign() != 0 {
		t.Errorf("revoked balance: got %s, want 0", v.Balance)
	}

	vs, _ := l.ListByAccount(ctx, alice)
	if len(vs) != 0 {
		t.Errorf("revoked voucher still listed: %d", len(vs))
	}

	if err := l.Revoke(ctx, id, alice); !errors.Is(err, errRevoked) {
		t.Errorf("second revoke: got %v", err)
	}
}

func TestRevoke_WrongSpender(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	id := mustIssue(t, l, alice, progA, 100, 3600)

	if err := l.Revoke(ctx, id, bob); !errors.Is(err, errSpenderMismatch) {
		t.Errorf("got %v", err)
	}
	v, _ := l.Get(ctx, id)
	if !v.Enabled {
		t.Error("voucher must stay enabled after rejected revoke")
	}
}

// ── Watch ────────────────────────────────────────────────────────────────────

func nextEvent(t *testing.T, sub voucher.Subscription) voucher.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return voucher.Event{}
}

func TestWatch_Lifecycle(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	sub, err := l.Watch(ctx, voucher.EventFilter{Accounts: []voucher.Account{alice}})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer sub.Unsubscribe()

	mustIssue(t, l, bob, progA, 1, 60) // filtered out
	id := mustIssue(t, l, alice, progA, 100, 60)
	if err := l.Prolong(ctx, id, alice, big.NewInt(20), 60); err != nil {
		t.Fatalf("Prolong: %v", err)
	}
	if err := l.Revoke(ctx, id, alice); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	ev := nextEvent(t, sub)
	if ev.Kind != voucher.EventIssued || ev.ID != id || ev.Balance.Int64() != 100 {
		t.Errorf("issued: got %+v", ev)
	}
	ev = nextEvent(t, sub)
	if ev.Kind != voucher.EventProlonged || ev.Balance.Int64() != 120 {
		t.Errorf("prolonged: got %+v", ev)
	}
	ev = nextEvent(t, sub)
	if ev.Kind != voucher.EventRevoked || ev.Balance.Int64() != 120 {
		t.Errorf("revoked: got %+v", ev)
	}
}

func TestWatch_UnsubscribeClosesEvents(t *testing.T) {
	l, _ := newTestLedger(t)
	sub, err := l.Watch(context.Background(), voucher.EventFilter{})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	sub.Unsubscribe()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Events not closed after Unsubscribe")
	}
}
