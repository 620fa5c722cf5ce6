package txmanager

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/conveyorlabs/coex/internal/chain"
	"github.com/conveyorlabs/coex/internal/coexerr"
	"github.com/conveyorlabs/coex/internal/wallet"
)

// feeBumpNum/feeBumpDenom is the 150% fee bump original_source applies on
// a "transaction underpriced" resubmit.
const (
	feeBumpNum   = 150
	feeBumpDenom = 100
)

// SignAndSendTransaction signs tx and submits it, bumping the fee caps by
// feeBumpNum/feeBumpDenom and retrying on "transaction underpriced", and
// surfacing a typed coexerr.InsufficientWalletFunds on "insufficient
// funds" (original source: transaction_utils::sign_and_send_transaction).
// It retries indefinitely on underpricing since the caller (the engine's
// per-order single-writer chain, spec.md §4.5) owns the decision to give
// up, not the tx manager.
func SignAndSendTransaction(ctx context.Context, tx *types.Transaction, signer *wallet.Signer, client chain.Client, backoff time.Duration) (common.Hash, error) {
	for {
		signed, err := signer.SignTransaction(tx)
		if err != nil {
			return common.Hash{}, err
		}

		err = client.SendRawTransaction(ctx, signed)
		if err == nil {
			return signed.Hash(), nil
		}

		msg := err.Error()
		switch {
		case strings.Contains(msg, "transaction underpriced"):
			tx = bumpFees(tx)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return common.Hash{}, ctx.Err()
			}
		case strings.Contains(msg, "insufficient funds"):
			return common.Hash{}, coexerr.NewInsufficientWalletFunds(signer.Address(), err)
		default:
			return common.Hash{}, err
		}
	}
}

// bumpFees rebuilds tx with its fee caps scaled by feeBumpNum/feeBumpDenom.
// go-ethereum transactions are immutable, so resubmitting at a higher fee
// means constructing a new one rather than mutating tx in place.
func bumpFees(tx *types.Transaction) *types.Transaction {
	bump := func(v *big.Int) *big.Int {
		out := new(big.Int).Mul(v, big.NewInt(feeBumpNum))
		return out.Div(out, big.NewInt(feeBumpDenom))
	}

	to := common.Address{}
	if tx.To() != nil {
		to = *tx.To()
	}

	return wallet.NewDynamicFeeTx(
		tx.ChainId(),
		tx.Nonce(),
		to,
		tx.Value(),
		tx.Gas(),
		bump(tx.GasFeeCap()),
		bump(tx.GasTipCap()),
		tx.Data(),
	)
}
