// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// TxType tags the two governance transaction variants
type TxType uint8

const (
	TxTypePropose TxType = 1
	TxTypeVote    TxType = 2
)

var (
	ErrMalformedTx    = errors.New("malformed transaction")
	ErrUnknownTxType  = errors.New("unknown transaction type")
	ErrTxSignature    = errors.New("invalid transaction signature")
	ErrTxSignerLength = errors.New("invalid transaction signer key length")
)

// SignedTx is the shared contract between the propose and vote
// transaction variants: a signer, a signature over the canonical
// payload, and a content-addressed transaction hash
type SignedTx interface {
	TxType() TxType
	Signer() PubKey
	Signature() []byte
	SignBytes() ([]byte, error)
	TxHash() (Hash, error)
}

// txEnvelope is the wire form of a signed transaction
type txEnvelope struct {
	Type TxType `cbor:"0,keyasint"`
	Body []byte `cbor:"1,keyasint"`
}

// ProposeTx proposes a new configuration. Cfg carries the canonical
// serialization of the proposed Configuration so the content hash can
// be computed without re-encoding.
type ProposeTx struct {
	From PubKey `cbor:"0,keyasint" json:"from"`
	Cfg  []byte `cbor:"1,keyasint" json:"cfg"`
	Sig  []byte `cbor:"2,keyasint" json:"signature"`
}

// proposeTxPayload is the portion of a ProposeTx covered by the signature
type proposeTxPayload struct {
	From PubKey `cbor:"0,keyasint"`
	Cfg  []byte `cbor:"1,keyasint"`
}

// NewProposeTx builds and signs a propose transaction
func NewProposeTx(
	priv ed25519.PrivateKey,
	cfgBytes []byte,
) (*ProposeTx, error) {
	tx := &ProposeTx{
		From: PubKey(priv.Public().(ed25519.PublicKey)),
		Cfg:  cfgBytes,
	}
	signBytes, err := tx.SignBytes()
	if err != nil {
		return nil, err
	}
	tx.Sig = Sign(priv, signBytes)
	return tx, nil
}

func (t *ProposeTx) TxType() TxType {
	return TxTypePropose
}

func (t *ProposeTx) Signer() PubKey {
	return t.From
}

func (t *ProposeTx) Signature() []byte {
	return t.Sig
}

func (t *ProposeTx) SignBytes() ([]byte, error) {
	data, err := cborEncMode.Marshal(
		&proposeTxPayload{From: t.From, Cfg: t.Cfg},
	)
	if err != nil {
		return nil, fmt.Errorf("encode propose payload: %w", err)
	}
	return data, nil
}

func (t *ProposeTx) TxHash() (Hash, error) {
	data, err := EncodeTx(t)
	if err != nil {
		return Hash{}, err
	}
	return NewHash(data), nil
}

// Configuration decodes the embedded canonical configuration bytes
func (t *ProposeTx) Configuration() (*Configuration, error) {
	return DecodeConfiguration(t.Cfg)
}

// ConfigHash returns the content hash of the embedded configuration
func (t *ProposeTx) ConfigHash() Hash {
	return NewHash(t.Cfg)
}

// VoteTx endorses a previously proposed configuration by hash
type VoteTx struct {
	From    PubKey `cbor:"0,keyasint" json:"from"`
	CfgHash Hash   `cbor:"1,keyasint" json:"cfg_hash"`
	Sig     []byte `cbor:"2,keyasint" json:"signature"`
}

// voteTxPayload is the portion of a VoteTx covered by the signature
type voteTxPayload struct {
	From    PubKey `cbor:"0,keyasint"`
	CfgHash Hash   `cbor:"1,keyasint"`
}

// NewVoteTx builds and signs a vote transaction
func NewVoteTx(priv ed25519.PrivateKey, cfgHash Hash) (*VoteTx, error) {
	tx := &VoteTx{
		From:    PubKey(priv.Public().(ed25519.PublicKey)),
		CfgHash: cfgHash,
	}
	signBytes, err := tx.SignBytes()
	if err != nil {
		return nil, err
	}
	tx.Sig = Sign(priv, signBytes)
	return tx, nil
}

func (t *VoteTx) TxType() TxType {
	return TxTypeVote
}

func (t *VoteTx) Signer() PubKey {
	return t.From
}

func (t *VoteTx) Signature() []byte {
	return t.Sig
}

func (t *VoteTx) SignBytes() ([]byte, error) {
	data, err := cborEncMode.Marshal(
		&voteTxPayload{From: t.From, CfgHash: t.CfgHash},
	)
	if err != nil {
		return nil, fmt.Errorf("encode vote payload: %w", err)
	}
	return data, nil
}

func (t *VoteTx) TxHash() (Hash, error) {
	data, err := EncodeTx(t)
	if err != nil {
		return Hash{}, err
	}
	return NewHash(data), nil
}

// EncodeTx wraps a signed transaction in its type-tagged envelope
func EncodeTx(tx SignedTx) ([]byte, error) {
	body, err := cborEncMode.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode tx body: %w", err)
	}
	data, err := cborEncMode.Marshal(
		&txEnvelope{Type: tx.TxType(), Body: body},
	)
	if err != nil {
		return nil, fmt.Errorf("encode tx envelope: %w", err)
	}
	return data, nil
}

// DecodeTx unwraps a type-tagged transaction envelope
func DecodeTx(data []byte) (SignedTx, error) {
	var env txEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTx, err)
	}
	switch env.Type {
	case TxTypePropose:
		var tx ProposeTx
		if err := cbor.Unmarshal(env.Body, &tx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedTx, err)
		}
		return &tx, nil
	case TxTypeVote:
		var tx VoteTx
		if err := cbor.Unmarshal(env.Body, &tx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedTx, err)
		}
		return &tx, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTxType, env.Type)
	}
}

// VerifyTx checks the signer key length and signature of a transaction
func VerifyTx(tx SignedTx) error {
	if len(tx.Signer()) != ed25519.PublicKeySize {
		return ErrTxSignerLength
	}
	signBytes, err := tx.SignBytes()
	if err != nil {
		return err
	}
	if !Verify(tx.Signer(), signBytes, tx.Signature()) {
		return ErrTxSignature
	}
	return nil
}
