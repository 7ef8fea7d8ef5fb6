package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// Pre-computed keccak256 hashes of the canonical EIP-712 type strings.
var (
	// EIP712Domain with a verifying contract, used for order signatures.
	orderDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// EIP712Domain without a verifying contract, used for the auth message.
	authDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,uint256 timestamp,uint256 nonce)"),
	)

	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// Signer produces the EIP-712 signatures the settlement backend verifies:
// order signatures bound to the exchange contract, and the ClobAuth message
// used to derive API credentials.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int64

	// Cached domain separators; both depend only on construction inputs.
	orderDomainSep []byte
	authDomainSep  []byte
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
// chainID selects the settlement chain (137 for Polygon mainnet); exchange
// is the CTF exchange contract the order domain is bound to.
func NewSigner(privateKeyHex string, chainID int64, exchange common.Address) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}

	chain := to32Bytes(big.NewInt(chainID))
	s.orderDomainSep = ethcrypto.Keccak256(concat(
		orderDomainTypeHash,
		ethcrypto.Keccak256([]byte("Polymarket CTF Exchange")),
		ethcrypto.Keccak256([]byte("1")),
		chain,
		common.LeftPadBytes(exchange.Bytes(), 32),
	))
	s.authDomainSep = ethcrypto.Keccak256(concat(
		authDomainTypeHash,
		ethcrypto.Keccak256([]byte("ClobAuthDomain")),
		ethcrypto.Keccak256([]byte("1")),
		chain,
	))

	return s, nil
}

// Address returns the wallet address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignOrder signs the order struct fields of o and returns the hex-encoded
// 65-byte signature. The Signature field of o is ignored.
func (s *Signer) SignOrder(o *domain.SignedOrder) (string, error) {
	structHash, err := orderStructHash(o)
	if err != nil {
		return "", err
	}
	return s.sign(digest(s.orderDomainSep, structHash))
}

// SignAuth signs the ClobAuth message used by the API-key derivation flow.
func (s *Signer) SignAuth(timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(concat(
		clobAuthTypeHash,
		common.LeftPadBytes(s.address.Bytes(), 32),
		to32Bytes(big.NewInt(timestamp)),
		to32Bytes(big.NewInt(nonce)),
	))
	return s.sign(digest(s.authDomainSep, structHash))
}

// digest computes keccak256("\x19\x01" || domainSep || structHash).
func digest(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(concat([]byte{0x19, 0x01}, domainSep, structHash))
}

func (s *Signer) sign(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: sign digest: %w", err)
	}
	// go-ethereum yields v in {0,1}; the exchange expects {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

func orderStructHash(o *domain.SignedOrder) ([]byte, error) {
	nums := make([]*big.Int, 7)
	for i, f := range []struct {
		name, val string
	}{
		{"salt", o.Salt},
		{"tokenId", o.TokenID},
		{"makerAmount", o.MakerAmount},
		{"takerAmount", o.TakerAmount},
		{"expiration", o.Expiration},
		{"nonce", o.Nonce},
		{"feeRateBps", o.FeeRateBps},
	} {
		n, ok := new(big.Int).SetString(f.val, 10)
		if !ok {
			return nil, fmt.Errorf("crypto: order %s is not a decimal integer: %q", f.name, f.val)
		}
		nums[i] = n
	}

	return ethcrypto.Keccak256(concat(
		orderTypeHash,
		to32Bytes(nums[0]),
		common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32),
		to32Bytes(nums[1]),
		to32Bytes(nums[2]),
		to32Bytes(nums[3]),
		to32Bytes(nums[4]),
		to32Bytes(nums[5]),
		to32Bytes(nums[6]),
		to32Bytes(big.NewInt(int64(o.Side))),
		to32Bytes(big.NewInt(int64(o.SignatureType))),
	)), nil
}

// to32Bytes returns the 32-byte big-endian representation of n.
func to32Bytes(n *big.Int) []byte {
	return common.LeftPadBytes(n.Bytes(), 32)
}

func concat(slices ...[]byte) []byte {
	total := 0
	for _, b := range slices {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range slices {
		out = append(out, b...)
	}
	return out
}
