// cmd/voucherctl is the operator CLI. It talks to the voucher registry
// directly, without going through the HTTP server.
//
// Usage:
//
//	ISSUER_PRIVATE_KEY=0x<key> \
//	go run ./cmd/voucherctl/ \
//	  --rpc      https://rpc.example.org \
//	  --chain-id 16602 \
//	  --contract 0x<registry> \
//	  issue --account 0x<64 hex> --program 0x<64 hex> --amount 1000 --duration 3600
//
// Subcommands: status, program-status, list, issue, prolong, revoke, watch, sign.
// With --backend redis the Redis ledger at --redis is used instead.
package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ez-dapp/gasless-server/internal/auth"
	"github.com/ez-dapp/gasless-server/internal/chain"
	"github.com/ez-dapp/gasless-server/internal/config"
	"github.com/ez-dapp/gasless-server/internal/ledger"
	"github.com/ez-dapp/gasless-server/internal/voucher"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// globals are the connection flags shared by every subcommand.
type globals struct {
	backend  string
	rpc      string
	chainID  int64
	contract string
	redis    string
	verbose  bool
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("voucherctl", flag.ContinueOnError)
	var g globals
	fs.StringVar(&g.backend, "backend", config.BackendChain, "registry backend: chain or redis")
	fs.StringVar(&g.rpc, "rpc", os.Getenv("RPC_URL"), "RPC endpoint")
	fs.Int64Var(&g.chainID, "chain-id", 16602, "Chain ID")
	fs.StringVar(&g.contract, "contract", os.Getenv("REGISTRY_CONTRACT"), "GasVoucherRegistry address")
	fs.StringVar(&g.redis, "redis", "localhost:6379", "Redis address for the redis backend")
	fs.BoolVar(&g.verbose, "v", false, "log registry calls to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("missing subcommand")
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	// sign needs no registry
	if cmd == "sign" {
		return runSign(rest, out)
	}

	log := zap.NewNop()
	if g.verbose {
		log, _ = zap.NewDevelopment()
	}
	reg, closeReg, err := g.open(log)
	if err != nil {
		return err
	}
	defer closeReg()
	med := voucher.NewMediator(reg, log)

	switch cmd {
	case "status":
		return runStatus(ctx, med, rest, out)
	case "program-status":
		return runProgramStatus(ctx, med, rest, out)
	case "list":
		return runList(ctx, reg, rest, out)
	case "issue":
		return runIssue(ctx, med, rest, out)
	case "prolong":
		return runProlong(ctx, med, rest, out)
	case "revoke":
		return runRevoke(ctx, med, rest, out)
	case "watch":
		w, ok := reg.(voucher.Watcher)
		if !ok {
			return fmt.Errorf("backend %s cannot stream events", g.backend)
		}
		return runWatch(ctx, w, rest, out)
	default:
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func (g globals) open(log *zap.Logger) (voucher.Registry, func(), error) {
	switch g.backend {
	case config.BackendChain:
		cfg := &config.Config{Chain: config.ChainConfig{
			RPCURL:           g.rpc,
			ContractAddress:  g.contract,
			IssuerPrivateKey: os.Getenv("ISSUER_PRIVATE_KEY"),
			ChainID:          g.chainID,
		}}
		if cfg.Chain.IssuerPrivateKey == "" {
			return nil, nil, errors.New("ISSUER_PRIVATE_KEY not set")
		}
		c, err := chain.NewClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: g.redis, Password: os.Getenv("REDIS_PASSWORD")})
		return ledger.New(rdb, log), func() { rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", g.backend)
	}
}

// ── Subcommands ───────────────────────────────────────────────────────────────

func runStatus(ctx context.Context, med *voucher.Mediator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	id := fs.String("id", "", "voucher id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := med.Status(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(out, st)
}

func runProgramStatus(ctx context.Context, med *voucher.Mediator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("program-status", flag.ContinueOnError)
	account := fs.String("account", "", "spender account")
	program := fs.String("program", "", "program id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := med.StatusForProgram(ctx, *account, *program)
	if err != nil {
		return err
	}
	return printJSON(out, st)
}

// voucherView is the list output row.
type voucherView struct {
	ID       string   `json:"id"`
	Programs []string `json:"programs"`
	Balance  string   `json:"balance"`
	Expiry   string   `json:"expiry"`
	Enabled  bool     `json:"enabled"`
}

func runList(ctx context.Context, reg voucher.Registry, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	rawAccount := fs.String("account", "", "spender account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	account, err := voucher.ParseAccount(*rawAccount)
	if err != nil {
		return err
	}
	vs, err := reg.ListByAccount(ctx, account)
	if err != nil {
		return err
	}
	rows := make([]voucherView, 0, len(vs))
	for _, v := range vs {
		row := voucherView{
			ID:      v.ID.Hex(),
			Balance: "0",
			Expiry:  v.Expiry.UTC().Format(time.RFC3339),
			Enabled: v.Enabled,
		}
		if v.Balance != nil {
			row.Balance = v.Balance.String()
		}
		for _, p := range v.Programs {
			row.Programs = append(row.Programs, p.Hex())
		}
		rows = append(rows, row)
	}
	return printJSON(out, rows)
}

func runIssue(ctx context.Context, med *voucher.Mediator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	account := fs.String("account", "", "spender account")
	program := fs.String("program", os.Getenv("PROGRAM_ID"), "program id")
	amount := fs.String("amount", fmt.Sprint(voucher.DefaultAmount), "amount in smallest units")
	duration := fs.Uint64("duration", voucher.DefaultDurationSec, "validity in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	amt, err := parseAmount("amount", *amount)
	if err != nil {
		return err
	}
	id, err := med.Issue(ctx, voucher.IssueRequest{
		Account:     *account,
		Program:     *program,
		Amount:      amt,
		DurationSec: *duration,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id.Hex())
	return nil
}

func runProlong(ctx context.Context, med *voucher.Mediator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("prolong", flag.ContinueOnError)
	id := fs.String("id", "", "voucher id")
	account := fs.String("account", "", "spender account")
	balance := fs.String("balance", "0", "top-up amount")
	duration := fs.Uint64("duration", 0, "extension in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	bal, err := parseAmount("balance", *balance)
	if err != nil {
		return err
	}
	if err := med.Prolong(ctx, voucher.ProlongRequest{
		VoucherID:   *id,
		Account:     *account,
		Balance:     bal,
		DurationSec: *duration,
	}); err != nil {
		return err
	}
	fmt.Fprintln(out, "prolonged", *id)
	return nil
}

func runRevoke(ctx context.Context, med *voucher.Mediator, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	id := fs.String("id", "", "voucher id")
	account := fs.String("account", "", "spender account")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := med.Revoke(ctx, *id, *account); err != nil {
		return err
	}
	fmt.Fprintln(out, "revoked", *id)
	return nil
}

// runWatch prints one JSON line per event until ctx is cancelled, --count
// events have been printed, or the subscription fails.
func runWatch(ctx context.Context, w voucher.Watcher, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	account := fs.String("account", "", "only events for this account")
	count := fs.Int("count", 0, "exit after this many events (0 = forever)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var filter voucher.EventFilter
	if *account != "" {
		a, err := voucher.ParseAccount(*account)
		if err != nil {
			return err
		}
		filter.Accounts = []voucher.Account{a}
	}

	sub, err := w.Watch(ctx, filter)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	enc := json.NewEncoder(out)
	for seen := 0; *count == 0 || seen < *count; seen++ {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return <-sub.Err()
			}
			if err := enc.Encode(ev); err != nil {
				return err
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

// runSign prints the operator headers for one administrative request.
func runSign(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	action := fs.String("action", "", "issue, prolong or revoke")
	payload := fs.String("payload", "", "request body to bind into the signature (optional)")
	ttl := fs.Duration("ttl", 2*time.Minute, "validity of the signature")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch *action {
	case "issue", "prolong", "revoke":
	default:
		return fmt.Errorf("--action must be issue, prolong or revoke, got %q", *action)
	}
	key, err := operatorKey()
	if err != nil {
		return err
	}

	req := auth.SignedRequest{
		Action:    *action,
		ExpiresAt: time.Now().Add(*ttl).Unix(),
		Nonce:     uuid.NewString(),
	}
	if *payload != "" {
		if !json.Valid([]byte(*payload)) {
			return errors.New("--payload is not valid JSON")
		}
		req.Payload = json.RawMessage(*payload)
	}

	h := http.Header{}
	if err := auth.SetHeaders(h, req, key); err != nil {
		return err
	}
	for _, name := range []string{auth.HeaderAddress, auth.HeaderMessage, auth.HeaderSignature} {
		fmt.Fprintf(out, "%s: %s\n", name, h.Get(name))
	}
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func operatorKey() (*ecdsa.PrivateKey, error) {
	keyHex := strings.TrimPrefix(os.Getenv("OPERATOR_PRIVATE_KEY"), "0x")
	if keyHex == "" {
		return nil, errors.New("OPERATOR_PRIVATE_KEY not set")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	return key, nil
}

func parseAmount(field, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &voucher.InputError{Field: field, Value: s}
	}
	return n, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
