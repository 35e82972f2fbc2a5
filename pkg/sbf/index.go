package sbf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

func parseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, &FormatError{
			Op:    "parse header",
			Index: -1,
			Err:   fmt.Errorf("%w: %d bytes", ErrHeaderTooShort, len(data)),
		}
	}
	var h Header
	copy(h.Magic[:], data[0:4])
	h.I1 = binary.LittleEndian.Uint32(data[4:])
	h.I2 = binary.LittleEndian.Uint32(data[8:])
	h.I3 = binary.LittleEndian.Uint32(data[12:])
	h.IndexOffset = binary.LittleEndian.Uint32(data[16:])
	h.IndexCount = binary.LittleEndian.Uint32(data[20:])
	return h, nil
}

func parseIndex(data []byte, h Header) ([]Chunk, error) {
	end := h.IndexEnd()
	if end > uint64(len(data)) {
		return nil, &FormatError{
			Op:    "parse index",
			Index: -1,
			Err: fmt.Errorf("%w: [%d, %d) exceeds file size %d",
				ErrIndexOutOfBounds, h.IndexOffset, end, len(data)),
		}
	}

	chunks := make([]Chunk, 0, h.IndexCount)
	offset := int(h.IndexOffset)
	for i := 0; i < int(h.IndexCount); i++ {
		chunk, err := parseRecord(data[offset : offset+RecordSize])
		if err != nil {
			return nil, &FormatError{Op: "parse index", Index: i, Err: err}
		}
		chunk.Index = i
		chunks = append(chunks, chunk)
		offset += RecordSize
	}
	return chunks, nil
}

func parseRecord(rec []byte) (Chunk, error) {
	var c Chunk
	copy(c.RawIdent[:], rec[0:IdentSize])
	c.Z1 = binary.LittleEndian.Uint32(rec[8:])
	c.Z2 = binary.LittleEndian.Uint32(rec[12:])
	c.Start = binary.LittleEndian.Uint32(rec[16:])
	c.Size = binary.LittleEndian.Uint32(rec[20:])
	c.BlockSize = binary.LittleEndian.Uint32(rec[24:])
	c.Z3 = binary.LittleEndian.Uint32(rec[28:])

	// z1 はVALIANT0だけ非ゼロなので検査しない
	if c.Z2 != 0 {
		return Chunk{}, fmt.Errorf("%w: z2=%#x", ErrReservedField, c.Z2)
	}
	if c.Z3 != 0 {
		return Chunk{}, fmt.Errorf("%w: z3=%#x", ErrReservedField, c.Z3)
	}
	if c.BlockSize != BlockSize {
		return Chunk{}, fmt.Errorf("%w: got %d, want %d", ErrBlockSize, c.BlockSize, BlockSize)
	}
	if c.Size%BlockSize != 0 {
		return Chunk{}, fmt.Errorf("%w: size=%d", ErrSizeNotBlockMultiple, c.Size)
	}

	c.Ident, c.Suffix = SplitIdent(c.RawIdent)
	return c, nil
}

// SplitIdent は8バイトの識別子をトラック識別子とサフィックスに分割します
//
// 先頭が 'm' の場合は最初の 'a' の直前まで（'a' がなければ8バイトすべて）、
// それ以外は先頭から続くASCII英字を識別子とします。残りの最初のNULまでが
// サフィックスです。'm' の規則ではNULも識別子に含まれます。
func SplitIdent(raw [IdentSize]byte) (ident, suffix string) {
	split := 0
	if raw[0] == 'm' {
		split = bytes.IndexByte(raw[:], 'a')
		if split < 0 {
			split = IdentSize
		}
	} else {
		for split < IdentSize && isASCIIAlpha(raw[split]) {
			split++
		}
	}

	rest := raw[split:]
	if n := bytes.IndexByte(rest, 0); n >= 0 {
		rest = rest[:n]
	}
	return lossyString(raw[:split]), lossyString(rest)
}

func isASCIIAlpha(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// lossyString は不正なUTF-8をU+FFFDに置き換えて文字列にします
func lossyString(b []byte) string {
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(out)
}
