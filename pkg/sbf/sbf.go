// Package sbf はゲーム音声コンテナ（.sbfファイル）を読み込むためのパッケージです。
//
// SBFファイルは24バイトのヘッダ、32バイト固定長のインデックスレコード群、
// 4104バイト単位のブロックに分割されたチャンクデータで構成されます。
// 整数はすべてリトルエンディアンです。
//
// 基本的な使い方:
//
//	c, err := sbf.Open("gamemus.sbf")
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	for _, name := range c.TrackNames() {
//	    chunks, _ := c.Track(name)
//	    for _, chunk := range chunks {
//	        pcm, err := c.Decode(chunk)
//	        // pcm を処理...
//	    }
//	}
package sbf

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// HeaderSize はファイルヘッダのサイズ
	HeaderSize = 24
	// RecordSize はインデックスレコード1件のサイズ
	RecordSize = 32
	// IdentSize はレコード内の識別子フィールドのサイズ
	IdentSize = 8
	// BlockSize はチャンクを構成するブロック1つのサイズ (4096 + 8)
	BlockSize = 4104
	// BlockHeaderSize はブロック先頭のサブヘッダのサイズ
	BlockHeaderSize = 8
	// BlockPayloadSize はブロック内の符号化サンプル領域のサイズ
	BlockPayloadSize = BlockSize - BlockHeaderSize

	// SampleRate はデコード後のサンプリングレート（ファイルには記録されていない）
	SampleRate = 22050
	// Channels はデコード後のチャンネル数（インターリーブ）
	Channels = 2
	// BitDepth はデコード後のサンプルのビット深度
	BitDepth = 16
)

// Header はファイルヘッダ
type Header struct {
	Magic       [4]byte
	I1          uint32 // 用途不明
	I2          uint32 // 用途不明
	I3          uint32 // 用途不明
	IndexOffset uint32
	IndexCount  uint32
}

// IndexEnd はインデックス領域の終端オフセットを返します
func (h Header) IndexEnd() uint64 {
	return uint64(h.IndexOffset) + uint64(h.IndexCount)*RecordSize
}

// Chunk はインデックスレコードを解析したチャンク記述子
type Chunk struct {
	Index     int // コンテナ内のレコード番号
	Ident     string
	Suffix    string
	RawIdent  [IdentSize]byte
	Z1        uint32 // VALIANT0 のみ非ゼロ
	Z2        uint32
	Start     uint32 // ファイル先頭からのオフセット
	Size      uint32
	BlockSize uint32
	Z3        uint32
}

// Name は識別子とサフィックスを連結した名前を返します
func (c Chunk) Name() string {
	return c.Ident + c.Suffix
}

// Blocks はチャンクに含まれるブロック数を返します
func (c Chunk) Blocks() int {
	return int(c.Size / BlockSize)
}

// Container は読み込み専用のSBFコンテナ
//
// 内部バッファはCloseまで有効で、複数のgoroutineから同時に読み出せます。
type Container struct {
	name    string
	size    int
	release func() error
	header  Header
	chunks  []Chunk
	tracks  map[string][]Chunk
	names   []string

	// mu は data と closed を保護します。Decode は解放中のマッピングを読みません
	mu       sync.RWMutex
	data     []byte
	closed   bool
	closeErr error
}

// Open はファイルをメモリマップしてコンテナを開きます
func Open(path string) (*Container, error) {
	data, release, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	c, err := newContainer(path, data, release)
	if err != nil {
		_ = release()
		return nil, err
	}
	return c, nil
}

// FromBytes はメモリ上のデータからコンテナを作成します
//
// data は呼び出し側で変更してはいけません。
func FromBytes(name string, data []byte) (*Container, error) {
	return newContainer(name, data, nil)
}

func newContainer(name string, data []byte, release func() error) (*Container, error) {
	header, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	chunks, err := parseIndex(data, header)
	if err != nil {
		return nil, err
	}
	tracks := GroupChunks(chunks)
	return &Container{
		name:    name,
		size:    len(data),
		data:    data,
		release: release,
		header:  header,
		chunks:  chunks,
		tracks:  tracks,
		names:   TrackNames(tracks),
	}, nil
}

// Close はマッピングを解放します。複数回呼び出しても安全です
//
// 実行中の Decode の完了を待ってから解放します。Payload が返したスライスは
// Close 以降は参照してはいけません。
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return c.closeErr
	}
	c.closed = true
	if c.release != nil {
		if err := c.release(); err != nil {
			c.closeErr = &IOError{Op: "unmap", Path: c.name, Err: err}
		}
	}
	c.data = nil
	return c.closeErr
}

// Name はコンテナのパス（またはFromBytesで渡した名前）を返します
func (c *Container) Name() string {
	return c.name
}

// Size はコンテナのバイト数を返します
func (c *Container) Size() int {
	return c.size
}

// NumChunks はインデックスレコードの件数を返します
func (c *Container) NumChunks() int {
	return len(c.chunks)
}

// Header はファイルヘッダを返します
func (c *Container) Header() Header {
	return c.header
}

// Chunks はインデックス順のチャンク記述子を返します
func (c *Container) Chunks() []Chunk {
	return cloneChunks(c.chunks)
}

// TrackNames はトラック名をソートして返します
func (c *Container) TrackNames() []string {
	return append([]string(nil), c.names...)
}

// Track はトラックのチャンクをコンテナ順で返します
func (c *Container) Track(name string) ([]Chunk, bool) {
	chunks, ok := c.tracks[name]
	if !ok {
		return nil, false
	}
	return cloneChunks(chunks), true
}

// Lookup は識別子とサフィックスからチャンクを検索します
func (c *Container) Lookup(ident, suffix string) (Chunk, bool) {
	for _, chunk := range c.tracks[ident] {
		if chunk.Suffix == suffix {
			return chunk, true
		}
	}
	return Chunk{}, false
}

// Payload はチャンクの圧縮データを返します。返されたスライスは変更してはいけません
func (c *Container) Payload(chunk Chunk) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.payloadLocked(chunk)
}

func (c *Container) payloadLocked(chunk Chunk) ([]byte, error) {
	if c.closed {
		return nil, &IOError{Op: "read", Path: c.name, Err: ErrClosed}
	}
	start := uint64(chunk.Start)
	end := start + uint64(chunk.Size)
	if end > uint64(len(c.data)) {
		return nil, &FormatError{
			Op:    "read payload",
			Index: chunk.Index,
			Err:   fmt.Errorf("%w: [%d, %d) exceeds file size %d", ErrPayloadOutOfBounds, start, end, len(c.data)),
		}
	}
	return c.data[start:end:end], nil
}

// Decode はチャンクをデコードしたPCMサンプルを返します
func (c *Container) Decode(chunk Chunk) ([]int16, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, err := c.payloadLocked(chunk)
	if err != nil {
		return nil, err
	}
	pcm, err := DecodeChunk(payload)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Index = chunk.Index
		}
		return nil, err
	}
	return pcm, nil
}

// SampleDuration はインターリーブされたサンプル数を再生時間に変換します
func SampleDuration(samples int) time.Duration {
	frames := int64(samples / Channels)
	return time.Duration(frames * int64(time.Second) / SampleRate)
}

func cloneChunks(chunks []Chunk) []Chunk {
	return append([]Chunk(nil), chunks...)
}
