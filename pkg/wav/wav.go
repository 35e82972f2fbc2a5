// Package wav はデコード済みPCMを無圧縮WAVファイルとして書き出します
//
// 出力は44バイト固定のヘッダ（2ch、16bit、22050Hz）とリトルエンディアンの
// インターリーブサンプルです。
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

const (
	// HeaderSize はWAVヘッダのサイズ
	HeaderSize = 44

	fmtChunkSize   = 16
	pcmFormat      = 1
	bytesPerSample = sbf.BitDepth / 8

	// 一度に変換するサンプル数
	writeBatch = 4096
)

// ErrTooLarge はデータがWAVのサイズ上限を超える場合のエラー
var ErrTooLarge = errors.New("pcm data too large for wav")

// Header はWAVファイルヘッダの構造
type Header struct {
	// RIFF header
	RiffID   [4]byte // "RIFF"
	FileSize uint32  // 36 + DataSize
	WaveID   [4]byte // "WAVE"

	// fmt sub-chunk
	FmtID         [4]byte // "fmt "
	FmtSize       uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16 // NumChannels * BitsPerSample/8
	BitsPerSample uint16

	// data sub-chunk
	DataID   [4]byte // "data"
	DataSize uint32  // サンプル数 * 2
}

// NewHeader は numSamples 個のサンプルを格納するヘッダを作成します
func NewHeader(numSamples int) (Header, error) {
	dataSize := uint64(numSamples) * bytesPerSample
	if numSamples < 0 || dataSize > math.MaxUint32-(HeaderSize-8) {
		return Header{}, fmt.Errorf("%w: %d samples", ErrTooLarge, numSamples)
	}
	blockAlign := uint16(sbf.Channels * bytesPerSample)
	return Header{
		RiffID:        [4]byte{'R', 'I', 'F', 'F'},
		FileSize:      uint32(HeaderSize - 8 + dataSize),
		WaveID:        [4]byte{'W', 'A', 'V', 'E'},
		FmtID:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:       fmtChunkSize,
		AudioFormat:   pcmFormat,
		NumChannels:   sbf.Channels,
		SampleRate:    sbf.SampleRate,
		ByteRate:      sbf.SampleRate * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: sbf.BitDepth,
		DataID:        [4]byte{'d', 'a', 't', 'a'},
		DataSize:      uint32(dataSize),
	}, nil
}

// EncodedSize はサンプル数 numSamples のWAVファイル全体のバイト数を返します
func EncodedSize(numSamples int) int64 {
	return HeaderSize + int64(numSamples)*bytesPerSample
}

// WriteHeader はヘッダを w に書き込みます
func WriteHeader(w io.Writer, numSamples int) error {
	header, err := NewHeader(numSamples)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return &sbf.IOError{Op: "write", Err: fmt.Errorf("wav header: %w", err)}
	}
	return nil
}

// WriteSamples はサンプルをリトルエンディアンで w に書き込みます
func WriteSamples(w io.Writer, samples []int16) error {
	buf := make([]byte, min(len(samples), writeBatch)*bytesPerSample)
	for len(samples) > 0 {
		n := min(len(samples), writeBatch)
		b := buf[:n*bytesPerSample]
		for i, s := range samples[:n] {
			binary.LittleEndian.PutUint16(b[i*bytesPerSample:], uint16(s))
		}
		if _, err := w.Write(b); err != nil {
			return &sbf.IOError{Op: "write", Err: fmt.Errorf("wav data: %w", err)}
		}
		samples = samples[n:]
	}
	return nil
}

// Write はヘッダとサンプルを w に書き込みます。サンプルが空でもヘッダは書き込まれます
func Write(w io.Writer, samples []int16) error {
	if err := WriteHeader(w, len(samples)); err != nil {
		return err
	}
	return WriteSamples(w, samples)
}
