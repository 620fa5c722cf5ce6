// Package wallet holds the executor's own signing key and turns filled
// transaction skeletons from internal/txmanager into signed, ready-to-send
// transactions (spec.md §1: "wallet key storage" is an out-of-scope
// collaborator; this package is that collaborator's concrete shape).
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the executor's EOA key and signs outgoing transactions.
// Mirrors the way the teacher's Auth type wraps an *ecdsa.PrivateKey for
// EIP-712 signing — generalized here to EIP-1559/legacy transaction
// signing since there is no CLOB to authenticate against.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	signer     types.Signer
}

// NewSigner parses a hex-encoded private key (with or without "0x" prefix)
// and binds it to chainID for EIP-155 replay protection.
func NewSigner(privateKeyHex string, chainID *big.Int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Signer{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    new(big.Int).Set(chainID),
		signer:     types.NewLondonSigner(chainID),
	}, nil
}

// Address returns the wallet's on-chain address.
func (s *Signer) Address() common.Address { return s.address }

// ChainID returns the chain ID transactions are signed for.
func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// SignTransaction signs tx (EIP-1559 or legacy, depending on what the tx
// manager built it as) and returns the signed transaction ready for
// ChainClient.SendRawTransaction.
func (s *Signer) SignTransaction(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, s.signer, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// NewDynamicFeeTx builds an unsigned EIP-1559 transaction from the tx
// manager's constructed fields.
func NewDynamicFeeTx(chainID *big.Int, nonce uint64, to common.Address, value *big.Int, gas uint64, maxFeePerGas, maxPriorityFeePerGas *big.Int, data []byte) *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	})
}

// NewLegacyTx builds an unsigned legacy transaction for chains/providers
// that reject EIP-1559. The tx manager does not call it: its construction
// and fee-bump retry paths build EIP-1559 transactions only.
func NewLegacyTx(nonce uint64, to common.Address, value *big.Int, gas uint64, gasPrice *big.Int, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
}
