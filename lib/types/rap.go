package types

import (
	"encoding/json"
	"math/big"

	"golang.org/x/xerrors"
)

type RapActionType string

const (
	RapActionUnlock RapActionType = "unlock"
	RapActionSwap   RapActionType = "swap"
)

// RapTransaction tracks the on-chain progress of one action.
// Confirm flips once the gating check ran; Hash is set on broadcast;
// Confirmed stays nil until the wait resolves, then records the outcome.
type RapTransaction struct {
	Hash      string `json:"hash,omitempty"`
	Confirm   bool   `json:"confirm"`
	Confirmed *bool  `json:"confirmed,omitempty"`
}

// RapActionParameters carries the per-action inputs. One struct for all
// action types; unused fields stay zero.
type RapActionParameters struct {
	AccountAddress  string   `json:"accountAddress"`
	AssetAddress    string   `json:"assetAddress,omitempty"`
	Amount          *big.Int `json:"amount,omitempty"`
	ContractAddress string   `json:"contractAddress,omitempty"`

	InputAsset         string   `json:"inputAsset,omitempty"`
	OutputAsset        string   `json:"outputAsset,omitempty"`
	InputAmount        *big.Int `json:"inputAmount,omitempty"`
	OutputAmount       *big.Int `json:"outputAmount,omitempty"`
	InputAsExactAmount bool     `json:"inputAsExactAmount,omitempty"`
	SelectedGasPrice   *big.Int `json:"selectedGasPrice,omitempty"`
}

type RapAction struct {
	Type        RapActionType       `json:"type"`
	Transaction RapTransaction      `json:"transaction"`
	Parameters  RapActionParameters `json:"parameters"`
}

// Rap is a persisted sequence of dependent on-chain actions executed in
// list order with resumable per-action state. The callback is runtime
// only and never serialized.
type Rap struct {
	ID      string       `json:"id"`
	Actions []*RapAction `json:"actions"`

	Callback func() `json:"-"`
}

// Terminal reports whether every action reached a confirmed state or
// needed no transaction at all.
func (r *Rap) Terminal() bool {
	for _, a := range r.Actions {
		if !a.Transaction.Confirm {
			return false
		}
		if a.Transaction.Hash != "" && a.Transaction.Confirmed == nil {
			return false
		}
	}
	return true
}

func (r *Rap) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalRap(data []byte) (*Rap, error) {
	r := new(Rap)
	if err := json.Unmarshal(data, r); err != nil {
		return nil, xerrors.Errorf("decode rap: %w", err)
	}
	return r, nil
}
