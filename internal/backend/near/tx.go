package near

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// actionFunctionCall is the borsh enum tag of Action::FunctionCall.
const actionFunctionCall byte = 2

// functionCall is the single action of a contract change call.
type functionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int // yoctoNEAR, u128
}

// transaction is the unsigned transaction sent for a change call.
type transaction struct {
	SignerID   string
	PublicKey  []byte
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []functionCall
}

// borshWriter encodes the subset of borsh used by transactions:
// little-endian integers, u32 length-prefixed strings and byte vectors.
type borshWriter struct {
	buf bytes.Buffer
}

func (w *borshWriter) u8(v byte) { w.buf.WriteByte(v) }

func (w *borshWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *borshWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// u128 writes v as 16 little-endian bytes. v must fit in 128 bits.
func (w *borshWriter) u128(v *big.Int) {
	var b [16]byte
	if v != nil {
		be := v.Bytes()
		for i := 0; i < len(be) && i < 16; i++ {
			b[i] = be[len(be)-1-i]
		}
	}
	w.buf.Write(b[:])
}

func (w *borshWriter) vec(v []byte) {
	w.u32(uint32(len(v)))
	w.buf.Write(v)
}

func (w *borshWriter) str(v string) { w.vec([]byte(v)) }

func (w *borshWriter) fixed(v []byte) { w.buf.Write(v) }

func (tx *transaction) encode(w *borshWriter) {
	w.str(tx.SignerID)
	w.u8(keyTypeED25519)
	w.fixed(tx.PublicKey)
	w.u64(tx.Nonce)
	w.str(tx.ReceiverID)
	w.fixed(tx.BlockHash[:])
	w.u32(uint32(len(tx.Actions)))
	for _, a := range tx.Actions {
		w.u8(actionFunctionCall)
		w.str(a.MethodName)
		w.vec(a.Args)
		w.u64(a.Gas)
		w.u128(a.Deposit)
	}
}

// serialize returns the borsh encoding of the transaction.
func (tx *transaction) serialize() []byte {
	var w borshWriter
	tx.encode(&w)
	return w.buf.Bytes()
}

// hash returns sha256 of the borsh encoding, which is what gets signed and
// what NEAR reports as the transaction hash.
func (tx *transaction) hash() [32]byte {
	return sha256.Sum256(tx.serialize())
}

// sign returns the borsh encoding of the SignedTransaction.
func (tx *transaction) sign(s *Signer) []byte {
	h := tx.hash()
	sig := s.Sign(h[:])

	var w borshWriter
	tx.encode(&w)
	w.u8(keyTypeED25519)
	w.fixed(sig)
	return w.buf.Bytes()
}
