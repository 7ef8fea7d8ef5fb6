// Package chain holds the on-chain side of trading: settlement contract
// addresses per network and the allowance manager that guarantees the
// exchange contracts can move the wallet's collateral and outcome tokens.
package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Contracts is the settlement contract set for one network: the quote token
// (ERC20 collateral), the conditional token contract (ERC1155 outcome
// tokens), and the exchange contracts that need spend and operator rights.
type Contracts struct {
	ChainID int64

	// QuoteToken is the collateral token, USDC.e on Polygon.
	QuoteToken common.Address

	// ConditionalTokens holds the outcome tokens.
	ConditionalTokens common.Address

	// Exchange and NegRiskExchange are the two spenders that must hold an
	// ERC20 allowance and ERC1155 operator approval before orders can fill.
	Exchange        common.Address
	NegRiskExchange common.Address

	// NegRiskAdapter wraps neg-risk markets; it only needs operator rights.
	NegRiskAdapter common.Address
}

// Spenders returns the contracts that require both an ERC20 allowance and
// ERC1155 operator approval, in a fixed order.
func (c Contracts) Spenders() []common.Address {
	return []common.Address{c.Exchange, c.NegRiskExchange}
}

var polygon = Contracts{
	ChainID:           137,
	QuoteToken:        common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"),
	ConditionalTokens: common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"),
	Exchange:          common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"),
	NegRiskExchange:   common.HexToAddress("0xC5d563A36AE78145C45a50134d48A1215220f80a"),
	NegRiskAdapter:    common.HexToAddress("0xd91E80cF2E7be2e162c6513ceD06f1dD0dA35296"),
}

var contractsByChain = map[int64]Contracts{
	polygon.ChainID: polygon,
}

// ContractsFor looks up the settlement contract set for a chain id.
func ContractsFor(chainID int64) (Contracts, error) {
	c, ok := contractsByChain[chainID]
	if !ok {
		return Contracts{}, fmt.Errorf("chain: no settlement contracts registered for chain %d", chainID)
	}
	return c, nil
}
