package sbf

import (
	"encoding/binary"
	"fmt"
)

// BlockHeader はブロック先頭8バイトのサブヘッダ
type BlockHeader struct {
	Count  uint32 // 宣言サンプル数
	Scale1 uint8  // デコードに使う減衰係数
	Scale2 uint8  // 通常Scale1と同じ値
	Unused uint8
	Zero   uint8
}

// ParseBlockHeader はブロックのサブヘッダを読み取ります。b は8バイト以上必要です
func ParseBlockHeader(b []byte) BlockHeader {
	return BlockHeader{
		Count:  binary.LittleEndian.Uint32(b[0:]),
		Scale1: b[4],
		Scale2: b[5],
		Unused: b[6],
		Zero:   b[7],
	}
}

// Upscale は8ビットの符号化サンプルを16ビットPCMに変換します
//
// 中央値128を引いて256倍し、2^scale で割った後さらに2で割ります（0方向への切り捨て）。
func Upscale(b, scale uint8) int16 {
	// |v| <= 32768 なので scale >= 16 は常に0
	if scale >= 16 {
		return 0
	}
	v := (int32(b) - 128) * 256
	v = v / (int32(1) << scale) / 2
	return int16(v)
}

// SampleCount はデコードせずにチャンクのサンプル総数を計算します
func SampleCount(payload []byte) (int, error) {
	if len(payload)%BlockSize != 0 {
		return 0, &FormatError{
			Op:    "decode chunk",
			Index: -1,
			Err:   fmt.Errorf("%w: size=%d", ErrSizeNotBlockMultiple, len(payload)),
		}
	}
	total := 0
	for i, off := 0, 0; off < len(payload); i, off = i+1, off+BlockSize {
		count := binary.LittleEndian.Uint32(payload[off:])
		if count > BlockPayloadSize {
			return 0, &FormatError{
				Op:    "decode chunk",
				Index: -1,
				Err:   fmt.Errorf("%w: block %d declares %d samples", ErrSampleCount, i, count),
			}
		}
		total += int(count)
	}
	return total, nil
}

// DecodeChunk はチャンクの圧縮データをインターリーブされたPCMサンプルに変換します
func DecodeChunk(payload []byte) ([]int16, error) {
	total, err := SampleCount(payload)
	if err != nil {
		return nil, err
	}
	return AppendDecoded(make([]int16, 0, total), payload)
}

// AppendDecoded はデコードしたサンプルを dst の末尾に追加します
func AppendDecoded(dst []int16, payload []byte) ([]int16, error) {
	if _, err := SampleCount(payload); err != nil {
		return dst, err
	}
	for off := 0; off < len(payload); off += BlockSize {
		block := payload[off : off+BlockSize]
		hdr := ParseBlockHeader(block)
		data := block[BlockHeaderSize : BlockHeaderSize+int(hdr.Count)]
		for _, b := range data {
			dst = append(dst, Upscale(b, hdr.Scale1))
		}
	}
	return dst, nil
}
