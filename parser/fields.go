// Copyright 2025 BINARY Members
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

package parser

import (
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/types"
)

// ktudh is the undo-header field of a 5.2 vector. The undo segment number
// comes from the vector class, not from the field payload.
type ktudh struct {
	Xid types.Xid
	Flg uint16
}

func parseKtudh(vr *VectorReader, r *ByteReader) (ktudh, error) {
	if len(r.Data()) != 32 {
		return ktudh{}, oerr.Parse("KTUDH field size %d != 32, dump:%s", len(r.Data()), r.HexDump())
	}

	usn := (vr.Header.Class - 15) / 2
	slot, _ := r.ReadU16()
	r.Skip(2)
	seq, _ := r.ReadU32()
	r.Skip(8)
	flg, _ := r.ReadU16()
	r.Skip(14)

	return ktudh{
		Xid: types.NewXid(usn, slot, seq),
		Flg: flg,
	}, nil
}

// ktucm is the commit/rollback field of a 5.4 vector.
type ktucm struct {
	Xid types.Xid
	Srt uint16
	Sta uint32
	Flg uint8
}

func parseKtucm(vr *VectorReader, r *ByteReader) (ktucm, error) {
	if len(r.Data()) != 20 {
		return ktucm{}, oerr.Parse("KTUCM field size %d != 20, dump:%s", len(r.Data()), r.HexDump())
	}

	usn := (vr.Header.Class - 15) / 2
	slot, _ := r.ReadU16()
	r.Skip(2)
	seq, _ := r.ReadU32()
	srt, _ := r.ReadU16()
	r.Skip(2)
	sta, _ := r.ReadU32()
	flg, _ := r.ReadU8()
	r.Skip(3)

	return ktucm{
		Xid: types.NewXid(usn, slot, seq),
		Srt: srt,
		Sta: sta,
		Flg: flg,
	}, nil
}

// ktucf carries the commit undo block address; only its size is validated.
func parseKtucf(r *ByteReader) error {
	if len(r.Data()) != 16 {
		return oerr.Parse("KTUCF field size %d != 16, dump:%s", len(r.Data()), r.HexDump())
	}
	return nil
}

// ktudb names the transaction an undo block belongs to.
type ktudb struct {
	Xid types.Xid
}

func parseKtudb(r *ByteReader) (ktudb, error) {
	if len(r.Data()) < 20 {
		return ktudb{}, oerr.Parse("KTUDB field size %d < 20, dump:%s", len(r.Data()), r.HexDump())
	}

	r.Skip(8)
	usn, _ := r.ReadU16()
	slt, _ := r.ReadU16()
	seq, _ := r.ReadU32()

	return ktudb{Xid: types.NewXid(usn, slt, seq)}, nil
}

// ktub is the undo-block info field of a 5.1 vector; its opc names the
// mirrored redo opcode and flg carries the multi-block undo state.
type ktub struct {
	Obj     uint32
	DataObj uint32
	OpcMaj  uint8
	OpcMin  uint8
	Slt     uint16
	Flg     uint16
}

func parseKtub(r *ByteReader) (ktub, error) {
	if len(r.Data()) < 24 {
		return ktub{}, oerr.Parse("KTUB field size %d < 24, dump:%s", len(r.Data()), r.HexDump())
	}

	var k ktub
	k.Obj, _ = r.ReadU32()
	k.DataObj, _ = r.ReadU32()
	r.Skip(4)
	r.Skip(4) // undo
	k.OpcMaj, _ = r.ReadU8()
	k.OpcMin, _ = r.ReadU8()
	slt, _ := r.ReadU8()
	k.Slt = uint16(slt)
	r.Skip(1)
	k.Flg, _ = r.ReadU16()
	return k, nil
}

// kteop is the extent-operation field of a 5.2 vector; size-validated only.
func parseKteop(r *ByteReader) error {
	if len(r.Data()) != 36 {
		return oerr.Parse("KTEOP field size %d != 36, dump:%s", len(r.Data()), r.HexDump())
	}
	return nil
}

// pdb is the 4-byte pluggable-database field.
func parsePdb(r *ByteReader) error {
	if len(r.Data()) != 4 {
		return oerr.Parse("PDB field size %d != 4, dump:%s", len(r.Data()), r.HexDump())
	}
	return nil
}

// ktbredo is the block-transaction field: the low 4 bits of the first byte
// select the KTB op, bit 0x10 marks a block-cleanout postlude.
type ktbredo struct {
	Op       uint8
	Xid      types.Xid
	HasXid   bool
	Cleanout bool
}

func parseKtbredo(r *ByteReader) (ktbredo, error) {
	if len(r.Data()) < 8 {
		return ktbredo{}, oerr.Parse("KTBREDO field size %d < 8, dump:%s", len(r.Data()), r.HexDump())
	}

	op, _ := r.ReadU8()
	flg, _ := r.ReadU8()
	r.Skip(2)
	if flg&0x08 != 0 {
		r.Skip(4)
	}

	result := ktbredo{
		Op:       op & 0x0F,
		Cleanout: op&KtbOpBlockCleanout != 0,
	}

	switch op & 0x0F {
	case KtbOpF:
		// first: installs the transaction id and UBA
		if r.Remaining() < 16 {
			return ktbredo{}, oerr.Parse("KTBREDO F block size %d < 16, dump:%s", r.Remaining(), r.HexDump())
		}
		usn, _ := r.ReadU16()
		slt, _ := r.ReadU16()
		seq, _ := r.ReadU32()
		result.Xid = types.NewXid(usn, slt, seq)
		result.HasXid = true
		r.Skip(8) // uba
	case KtbOpC:
		// continue: UBA only
		if r.Remaining() < 8 {
			return ktbredo{}, oerr.Parse("KTBREDO C block size %d < 8, dump:%s", r.Remaining(), r.HexDump())
		}
		r.Skip(8)
	case KtbOpZ:
	case KtbOpL:
		// lock: inner transaction id and UBA
		if r.Remaining() < 24 {
			return ktbredo{}, oerr.Parse("KTBREDO L block size %d < 24, dump:%s", r.Remaining(), r.HexDump())
		}
		r.Skip(24)
	case KtbOpR:
		// re-initialize: ITC entry table, each with XID/UBA/lock/FSC-or-SCN
		r.Skip(2)
		itcRaw, err := r.ReadI16()
		if err != nil {
			return ktbredo{}, err
		}
		itc := max(int(itcRaw), 0)
		r.Skip(8)
		if r.Remaining() < itc*24 {
			return ktbredo{}, oerr.Parse("KTBREDO R block: %d ITC entries do not fit in %d bytes, dump:%s", itc, r.Remaining(), r.HexDump())
		}
		r.Skip(itc * 24)
	case KtbOpN:
	default:
		return ktbredo{}, oerr.Parse("unknown ktb operation: %d, dump:%s", op&0x0F, r.HexDump())
	}

	return result, nil
}

// kdo is the row-operation field. The captured offsets are relative to the
// field start so they survive the copy into transaction-chunk storage.
type kdo struct {
	Bdba  uint32
	Op    uint8
	Flags uint8

	Fb          types.Fb
	Cc          uint8
	Slot        uint16
	SizeDelt    uint16
	NullsOffset int
	SlotsOffset int
	Nrow        uint8
}

func parseKdo(r *ByteReader) (kdo, error) {
	if len(r.Data()) < 16 {
		return kdo{}, oerr.Parse("KDO field size %d < 16, dump:%s", len(r.Data()), r.HexDump())
	}

	var k kdo
	k.Bdba, _ = r.ReadU32()
	r.Skip(6)
	k.Op, _ = r.ReadU8()
	k.Flags, _ = r.ReadU8()
	r.Skip(4)

	switch k.Op & 0x1F {
	case OpIRP:
		return k, parseKdoIrp(&k, r)
	case OpDRP:
		return k, parseKdoDrp(&k, r)
	case OpLKR:
		return k, parseKdoLkr(&k, r)
	case OpURP:
		return k, parseKdoUrp(&k, r)
	case OpORP:
		return k, parseKdoOrp(&k, r)
	case OpCFA:
		return k, parseKdoCfa(&k, r)
	case OpCKI:
		return k, parseKdoCki(&k, r)
	case OpQMI, OpQMD:
		return k, parseKdoQm(&k, r)
	}
	return k, nil
}

func parseKdoIrp(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 48 {
		return oerr.Parse("KDO IRP field size %d < 48, dump:%s", len(r.Data()), r.HexDump())
	}

	fb, _ := r.ReadU8()
	k.Fb = types.Fb(fb)
	r.Skip(1) // lb
	k.Cc, _ = r.ReadU8()
	r.Skip(1) // cki
	r.Skip(20)
	k.SizeDelt, _ = r.ReadU16()
	k.Slot, _ = r.ReadU16()
	r.Skip(1) // tabn
	k.NullsOffset = r.Cursor()

	if len(r.Data()) < 45+(int(k.Cc)+7)/8 {
		return oerr.Parse("KDO IRP field size %d < 45 + (cc+7)/8, dump:%s", len(r.Data()), r.HexDump())
	}
	return nil
}

func parseKdoDrp(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 20 {
		return oerr.Parse("KDO DRP field size %d < 20, dump:%s", len(r.Data()), r.HexDump())
	}
	k.Slot, _ = r.ReadU16()
	r.Skip(1) // tabn
	return nil
}

func parseKdoLkr(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 20 {
		return oerr.Parse("KDO LKR field size %d < 20, dump:%s", len(r.Data()), r.HexDump())
	}
	k.Slot, _ = r.ReadU16()
	r.Skip(2) // tabn, to
	return nil
}

func parseKdoUrp(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 28 {
		return oerr.Parse("KDO URP field size %d < 28, dump:%s", len(r.Data()), r.HexDump())
	}

	fb, _ := r.ReadU8()
	k.Fb = types.Fb(fb)
	r.Skip(3) // lock, ckix, tabn
	k.Slot, _ = r.ReadU16()
	r.Skip(1) // ncol
	k.Cc, _ = r.ReadU8()
	r.Skip(2) // size
	k.NullsOffset = r.Cursor()

	if len(r.Data()) < 26+(int(k.Cc)+7)/8 {
		return oerr.Parse("KDO URP field size %d < 26 + (cc+7)/8, dump:%s", len(r.Data()), r.HexDump())
	}
	return nil
}

func parseKdoOrp(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 48 {
		return oerr.Parse("KDO ORP field size %d < 48, dump:%s", len(r.Data()), r.HexDump())
	}

	fb, _ := r.ReadU8()
	k.Fb = types.Fb(fb)
	r.Skip(1)
	k.Cc, _ = r.ReadU8()
	r.Skip(23)
	k.Slot, _ = r.ReadU16()
	r.Skip(1)
	k.NullsOffset = r.Cursor()

	if len(r.Data()) < 45+(int(k.Cc)+7)/8 {
		return oerr.Parse("KDO ORP field size %d < 45 + (cc+7)/8, dump:%s", len(r.Data()), r.HexDump())
	}
	return nil
}

func parseKdoCfa(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 32 {
		return oerr.Parse("KDO CFA field size %d < 32, dump:%s", len(r.Data()), r.HexDump())
	}
	r.Skip(8) // nrid bdba, nrid slot, pad
	k.Slot, _ = r.ReadU16()
	r.Skip(3) // flag, tabn, lock
	return nil
}

func parseKdoCki(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 20 {
		return oerr.Parse("KDO CKI field size %d < 20, dump:%s", len(r.Data()), r.HexDump())
	}
	r.Skip(11)
	slot, _ := r.ReadU8()
	k.Slot = uint16(slot)
	return nil
}

func parseKdoQm(k *kdo, r *ByteReader) error {
	if len(r.Data()) < 24 {
		return oerr.Parse("KDO QM field size %d < 24, dump:%s", len(r.Data()), r.HexDump())
	}
	r.Skip(2) // tabn, lock
	k.Nrow, _ = r.ReadU8()
	r.Skip(1)
	k.SlotsOffset = r.Cursor()
	return nil
}
