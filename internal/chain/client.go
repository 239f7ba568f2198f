package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	ethevent "github.com/ethereum/go-ethereum/event"

	"github.com/ez-dapp/gasless-server/internal/config"
	"github.com/ez-dapp/gasless-server/internal/voucher"
)

// Backend is what the client needs from an RPC connection: contract calls,
// transactions, log subscriptions and receipts. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client wraps go-ethereum and the generated GasVoucherRegistry binding. It
// implements voucher.Registry and voucher.Watcher.
type Client struct {
	eth          Backend
	contract     *GasVoucherRegistry
	contractAddr common.Address
	chainID      *big.Int
	issuerKey    *ecdsa.PrivateKey
	close        func()
}

func NewClient(cfg *config.Config) (*Client, error) {
	privKey, err := crypto.HexToECDSA(trim0x(cfg.Chain.IssuerPrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse issuer private key: %w", err)
	}

	eth, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	c, err := NewClientWithBackend(eth, common.HexToAddress(cfg.Chain.ContractAddress), big.NewInt(cfg.Chain.ChainID), privKey)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.close = eth.Close
	return c, nil
}

// NewClientWithBackend binds the registry at addr on an existing backend.
func NewClientWithBackend(backend Backend, addr common.Address, chainID *big.Int, issuerKey *ecdsa.PrivateKey) (*Client, error) {
	contract, err := NewGasVoucherRegistry(addr, backend)
	if err != nil {
		return nil, fmt.Errorf("bind contract: %w", err)
	}
	return &Client{
		eth:          backend,
		contract:     contract,
		contractAddr: addr,
		chainID:      chainID,
		issuerKey:    issuerKey,
		close:        func() {},
	}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() { c.close() }

// Issuer returns the address that signs registry transactions.
func (c *Client) Issuer() common.Address { return crypto.PubkeyToAddress(c.issuerKey.PublicKey) }

// ChainID returns the configured chain ID.
func (c *Client) ChainID() *big.Int { return c.chainID }

// ContractAddress returns the registry contract address.
func (c *Client) ContractAddress() common.Address { return c.contractAddr }

// transactOpts builds a *bind.TransactOpts signed by the issuer key.
func (c *Client) transactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.issuerKey, c.chainID)
	if err != nil {
		return nil, err
	}
	auth.Context = ctx
	return auth, nil
}

// waitSuccess waits for tx to be mined and fails on a reverted receipt.
func (c *Client) waitSuccess(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, fmt.Errorf("wait mined: %w", err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("tx reverted: %s", tx.Hash().Hex())
	}
	return receipt, nil
}

// Issue submits issue() and returns the id from the VoucherIssued log.
func (c *Client) Issue(ctx context.Context, account voucher.Account, programs []voucher.ProgramID, amount *big.Int, durationSec uint64) (voucher.ID, error) {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return voucher.ID{}, fmt.Errorf("build tx opts: %w", err)
	}

	tx, err := c.contract.Issue(opts, account, toBytes32s(programs), amount, durationSec)
	if err != nil {
		return voucher.ID{}, fmt.Errorf("issue tx: %w", err)
	}
	receipt, err := c.waitSuccess(ctx, tx)
	if err != nil {
		return voucher.ID{}, err
	}
	return c.issuedID(receipt)
}

// issuedID finds the VoucherIssued log emitted by the registry in receipt.
func (c *Client) issuedID(receipt *types.Receipt) (voucher.ID, error) {
	for _, lg := range receipt.Logs {
		if lg.Address != c.contractAddr {
			continue
		}
		ev, err := c.contract.ParseVoucherIssued(*lg)
		if err != nil {
			continue
		}
		return ev.Id, nil
	}
	return voucher.ID{}, fmt.Errorf("no VoucherIssued log in tx %s", receipt.TxHash.Hex())
}

func (c *Client) Prolong(ctx context.Context, id voucher.ID, account voucher.Account, balance *big.Int, durationSec uint64) error {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return fmt.Errorf("build tx opts: %w", err)
	}
	tx, err := c.contract.Prolong(opts, id, account, balance, durationSec)
	if err != nil {
		return fmt.Errorf("prolong tx: %w", err)
	}
	_, err = c.waitSuccess(ctx, tx)
	return err
}

func (c *Client) Revoke(ctx context.Context, id voucher.ID, account voucher.Account) error {
	opts, err := c.transactOpts(ctx)
	if err != nil {
		return fmt.Errorf("build tx opts: %w", err)
	}
	tx, err := c.contract.Revoke(opts, id, account)
	if err != nil {
		return fmt.Errorf("revoke tx: %w", err)
	}
	_, err = c.waitSuccess(ctx, tx)
	return err
}

// Get reads a voucher. The contract returns a zero id for unknown vouchers.
func (c *Client) Get(ctx context.Context, id voucher.ID) (*voucher.Voucher, error) {
	opts := &bind.CallOpts{Context: ctx}
	view, err := c.contract.GetVoucher(opts, id)
	if err != nil {
		return nil, fmt.Errorf("getVoucher: %w", err)
	}
	return fromView(view), nil
}

// ListByAccount reads the spender's voucher ids and resolves each one.
func (c *Client) ListByAccount(ctx context.Context, account voucher.Account) ([]voucher.Voucher, error) {
	opts := &bind.CallOpts{Context: ctx}
	ids, err := c.contract.VouchersOf(opts, account)
	if err != nil {
		return nil, fmt.Errorf("vouchersOf: %w", err)
	}
	out := make([]voucher.Voucher, 0, len(ids))
	for _, id := range ids {
		view, err := c.contract.GetVoucher(opts, id)
		if err != nil {
			return nil, fmt.Errorf("getVoucher %s: %w", common.Hash(id).Hex(), err)
		}
		if v := fromView(view); v != nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

// Watch subscribes to the three lifecycle events and merges them into one
// stream. Requires a websocket or IPC RPC endpoint.
func (c *Client) Watch(ctx context.Context, filter voucher.EventFilter) (voucher.Subscription, error) {
	opts := &bind.WatchOpts{Context: ctx}
	spenders := toBytes32s(filter.Accounts)

	issued := make(chan *GasVoucherRegistryVoucherIssued)
	prolonged := make(chan *GasVoucherRegistryVoucherProlonged)
	revoked := make(chan *GasVoucherRegistryVoucherRevoked)

	var subs []ethevent.Subscription
	unsubAll := func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}

	s, err := c.contract.WatchVoucherIssued(opts, issued, nil, spenders)
	if err != nil {
		return nil, fmt.Errorf("watch VoucherIssued: %w", err)
	}
	subs = append(subs, s)
	s, err = c.contract.WatchVoucherProlonged(opts, prolonged, nil, spenders)
	if err != nil {
		unsubAll()
		return nil, fmt.Errorf("watch VoucherProlonged: %w", err)
	}
	subs = append(subs, s)
	s, err = c.contract.WatchVoucherRevoked(opts, revoked, nil, spenders)
	if err != nil {
		unsubAll()
		return nil, fmt.Errorf("watch VoucherRevoked: %w", err)
	}
	subs = append(subs, s)

	return voucher.NewSubscription(func(quit <-chan struct{}, sink chan<- voucher.Event) error {
		defer unsubAll()
		for {
			var ev voucher.Event
			select {
			case e := <-issued:
				ev = voucher.Event{Kind: voucher.EventIssued, ID: e.Id, Account: e.Spender, Balance: e.Amount, Expiry: int64(e.Expiry)}
			case e := <-prolonged:
				ev = voucher.Event{Kind: voucher.EventProlonged, ID: e.Id, Account: e.Spender, Balance: e.Balance, Expiry: int64(e.Expiry)}
			case e := <-revoked:
				ev = voucher.Event{Kind: voucher.EventRevoked, ID: e.Id, Account: e.Spender, Balance: e.Refunded}
			case err := <-subs[0].Err():
				return subErr(err)
			case err := <-subs[1].Err():
				return subErr(err)
			case err := <-subs[2].Err():
				return subErr(err)
			case <-quit:
				return nil
			}
			if !filter.Match(ev) {
				continue
			}
			select {
			case sink <- ev:
			case <-quit:
				return nil
			}
		}
	}), nil
}

func subErr(err error) error {
	if err == nil {
		return errors.New("chain: log subscription closed")
	}
	return err
}

// fromView converts the contract view; a zero id means the voucher is absent.
func fromView(v GasVoucherRegistryVoucherView) *voucher.Voucher {
	if v.Id == ([32]byte{}) {
		return nil
	}
	programs := make([]voucher.ProgramID, len(v.Programs))
	for i, p := range v.Programs {
		programs[i] = p
	}
	balance := v.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	return &voucher.Voucher{
		ID:       v.Id,
		Owner:    v.Spender,
		Programs: programs,
		Balance:  balance,
		Expiry:   time.Unix(int64(v.Expiry), 0),
		Enabled:  v.Enabled,
	}
}

func toBytes32s(hs []common.Hash) [][32]byte {
	if len(hs) == 0 {
		return nil
	}
	out := make([][32]byte, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

func trim0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
