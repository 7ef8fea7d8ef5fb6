package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"
)

const (
	approvalGasLimit = uint64(80_000)

	gasPriceTTL = 5 * time.Minute
)

var (
	erc20ABI   abi.ABI
	erc1155ABI abi.ABI

	// maxUint256 is the "approve max" amount. Approvals are never lowered.
	maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// minAllowance is the threshold below which an ERC20 allowance counts as
	// insufficient: 1M units of a 6-decimal token.
	minAllowance = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000))
)

func init() {
	var err error

	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "approve",
			"type": "function",
			"inputs": [
				{"name": "spender", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "balanceOf",
			"type": "function",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("chain: erc20 abi parse: " + err.Error())
	}

	erc1155ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "setApprovalForAll",
			"type": "function",
			"inputs": [
				{"name": "operator", "type": "address"},
				{"name": "approved", "type": "bool"}
			],
			"outputs": []
		},
		{
			"name": "isApprovedForAll",
			"type": "function",
			"inputs": [
				{"name": "account", "type": "address"},
				{"name": "operator", "type": "address"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		}
	]`))
	if err != nil {
		panic("chain: erc1155 abi parse: " + err.Error())
	}
}

// Backend is the subset of the eth RPC client the allowance manager uses.
// *ethclient.Client satisfies it; tests substitute a fake.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// AllowanceState is the five on-chain facts read per verification pass, plus
// the hashes of any corrective transactions sent. It is recomputed on every
// call and never cached; chain state can move between calls.
type AllowanceState struct {
	Balance *big.Int

	// Allowances and Approvals are keyed by spender, in Contracts.Spenders
	// order.
	Allowances map[common.Address]*big.Int
	Approvals  map[common.Address]bool

	CorrectionTxs []common.Hash
}

// AllowanceManager verifies and repairs the wallet's settlement permissions:
// ERC20 allowance on the quote token and ERC1155 operator approval on the
// conditional token contract, both toward each exchange spender.
type AllowanceManager struct {
	backend   Backend
	contracts Contracts
	key       *ecdsa.PrivateKey
	owner     common.Address
	logger    *slog.Logger

	mu           sync.Mutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewAllowanceManager creates a manager for the given wallet key and
// settlement contract set.
func NewAllowanceManager(backend Backend, contracts Contracts, key *ecdsa.PrivateKey, logger *slog.Logger) *AllowanceManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &AllowanceManager{
		backend:   backend,
		contracts: contracts,
		key:       key,
		owner:     ethcrypto.PubkeyToAddress(key.PublicKey),
		logger:    logger,
	}
}

// Owner returns the wallet address the manager verifies permissions for.
func (am *AllowanceManager) Owner() common.Address {
	return am.owner
}

// EnsureAllowances reads the five permission facts concurrently, sends at
// most one corrective transaction per (token, spender) pair that is short,
// and returns the observed quote-token balance so callers can pre-check
// sufficiency before submitting an order.
//
// Approvals are never downgraded and corrections are never batched; each
// correction is its own transaction with its own receipt. Corrective
// transactions are sent without waiting for confirmation; a caller that
// needs the updated state re-invokes EnsureAllowances after a delay.
func (am *AllowanceManager) EnsureAllowances(ctx context.Context) (*big.Int, error) {
	state, err := am.readState(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: read allowance state: %w", err)
	}

	if err := am.correct(ctx, state); err != nil {
		return nil, fmt.Errorf("chain: correct allowances: %w", err)
	}
	return state.Balance, nil
}

// readState issues the five reads concurrently: the quote-token balance, one
// ERC20 allowance per spender, and one ERC1155 operator flag per spender. A
// failed read abandons the whole pass.
func (am *AllowanceManager) readState(ctx context.Context) (*AllowanceState, error) {
	spenders := am.contracts.Spenders()

	state := &AllowanceState{
		Allowances: make(map[common.Address]*big.Int, len(spenders)),
		Approvals:  make(map[common.Address]bool, len(spenders)),
	}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bal, err := am.balanceOf(ctx)
		if err != nil {
			return fmt.Errorf("balanceOf: %w", err)
		}
		mu.Lock()
		state.Balance = bal
		mu.Unlock()
		return nil
	})

	for _, spender := range spenders {
		g.Go(func() error {
			allowance, err := am.erc20Allowance(ctx, spender)
			if err != nil {
				return fmt.Errorf("allowance for %s: %w", spender.Hex(), err)
			}
			mu.Lock()
			state.Allowances[spender] = allowance
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			approved, err := am.isApprovedForAll(ctx, spender)
			if err != nil {
				return fmt.Errorf("isApprovedForAll for %s: %w", spender.Hex(), err)
			}
			mu.Lock()
			state.Approvals[spender] = approved
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

// correct sends one approve-max per spender whose ERC20 allowance is below
// the threshold and one setApprovalForAll per spender missing operator
// rights. Nonces are assigned locally so the transactions land in order.
func (am *AllowanceManager) correct(ctx context.Context, state *AllowanceState) error {
	type correction struct {
		to   common.Address
		data []byte
		desc string
	}
	var corrections []correction

	for _, spender := range am.contracts.Spenders() {
		if state.Allowances[spender].Cmp(minAllowance) < 0 {
			data, err := erc20ABI.Pack("approve", spender, maxUint256)
			if err != nil {
				return fmt.Errorf("pack approve: %w", err)
			}
			corrections = append(corrections, correction{
				to:   am.contracts.QuoteToken,
				data: data,
				desc: "erc20 approve " + spender.Hex(),
			})
		}
		if !state.Approvals[spender] {
			data, err := erc1155ABI.Pack("setApprovalForAll", spender, true)
			if err != nil {
				return fmt.Errorf("pack setApprovalForAll: %w", err)
			}
			corrections = append(corrections, correction{
				to:   am.contracts.ConditionalTokens,
				data: data,
				desc: "erc1155 setApprovalForAll " + spender.Hex(),
			})
		}
	}

	if len(corrections) == 0 {
		return nil
	}

	nonce, err := am.backend.PendingNonceAt(ctx, am.owner)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := am.gasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	signer := types.NewEIP155Signer(big.NewInt(am.contracts.ChainID))
	for _, c := range corrections {
		tx := types.NewTransaction(nonce, c.to, big.NewInt(0), approvalGasLimit, gasPrice, c.data)
		signed, err := types.SignTx(tx, signer, am.key)
		if err != nil {
			return fmt.Errorf("sign tx: %w", err)
		}
		if err := am.backend.SendTransaction(ctx, signed); err != nil {
			return fmt.Errorf("send %s: %w", c.desc, err)
		}
		nonce++

		state.CorrectionTxs = append(state.CorrectionTxs, signed.Hash())
		am.logger.Info("allowance correction sent",
			"what", c.desc,
			"tx", signed.Hash().Hex(),
		)
	}
	return nil
}

func (am *AllowanceManager) balanceOf(ctx context.Context) (*big.Int, error) {
	out, err := am.call(ctx, am.contracts.QuoteToken, erc20ABI, "balanceOf", am.owner)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (am *AllowanceManager) erc20Allowance(ctx context.Context, spender common.Address) (*big.Int, error) {
	out, err := am.call(ctx, am.contracts.QuoteToken, erc20ABI, "allowance", am.owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (am *AllowanceManager) isApprovedForAll(ctx context.Context, operator common.Address) (bool, error) {
	out, err := am.call(ctx, am.contracts.ConditionalTokens, erc1155ABI, "isApprovedForAll", am.owner, operator)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (am *AllowanceManager) call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := am.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}

	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

// gasPrice returns the suggested gas price with a short-lived cache and a
// 10% inclusion buffer.
func (am *AllowanceManager) gasPrice(ctx context.Context) (*big.Int, error) {
	am.mu.Lock()
	cached := am.cachedGasWei
	updatedAt := am.gasUpdatedAt
	am.mu.Unlock()

	if cached != nil && time.Since(updatedAt) < gasPriceTTL {
		return cached, nil
	}

	price, err := am.backend.SuggestGasPrice(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	am.mu.Lock()
	am.cachedGasWei = buffered
	am.gasUpdatedAt = time.Now()
	am.mu.Unlock()

	return buffered, nil
}
