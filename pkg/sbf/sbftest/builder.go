// Package sbftest はテスト用にSBFコンテナのバイト列を組み立てるヘルパーを提供します
package sbftest

import (
	"encoding/binary"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
)

// Block はチャンクを構成するブロック1つ分の内容
type Block struct {
	Count  uint32 // 宣言サンプル数
	Scale1 uint8
	Scale2 uint8
	Data   []byte // 先頭からブロックの符号化領域にコピーされる
}

// NewBlock は data をそのまま格納するブロックを作成します
func NewBlock(scale uint8, data []byte) Block {
	return Block{Count: uint32(len(data)), Scale1: scale, Scale2: scale, Data: data}
}

// Fill は value を n 個並べたブロックを作成します
func Fill(scale uint8, n int, value byte) Block {
	data := make([]byte, n)
	for i := range data {
		data[i] = value
	}
	return NewBlock(scale, data)
}

// Split は value を n 個並べたサンプル列を容量いっぱいのブロックに分割して作成します
func Split(scale uint8, n int, value byte) []Block {
	var blocks []Block
	for n > 0 {
		size := min(n, sbf.BlockPayloadSize)
		blocks = append(blocks, Fill(scale, size, value))
		n -= size
	}
	return blocks
}

// Record はインデックスレコードの生の値
type Record struct {
	Ident     [sbf.IdentSize]byte
	Z1        uint32
	Z2        uint32
	Start     uint32
	Size      uint32
	BlockSize uint32
	Z3        uint32
}

type entry struct {
	ident  [sbf.IdentSize]byte
	blocks []Block
}

// Builder はSBFコンテナを組み立てます
//
// レイアウトはヘッダ、チャンクデータ、インデックスの順です。
type Builder struct {
	magic   [4]byte
	entries []entry
	mutate  map[int]func(*Record)
}

// New は新しいBuilderを作成します
func New() *Builder {
	return &Builder{
		magic:  [4]byte{'S', 'B', 'F', '0'},
		mutate: make(map[int]func(*Record)),
	}
}

// Add は識別子 name のチャンクを追加します。name は8バイトまでNULで埋められます
func (b *Builder) Add(name string, blocks ...Block) *Builder {
	var ident [sbf.IdentSize]byte
	copy(ident[:], name)
	return b.AddRaw(ident, blocks...)
}

// AddRaw は生の8バイト識別子でチャンクを追加します
func (b *Builder) AddRaw(ident [sbf.IdentSize]byte, blocks ...Block) *Builder {
	b.entries = append(b.entries, entry{ident: ident, blocks: blocks})
	return b
}

// Mutate は i 番目のレコードを書き込む直前に fn で書き換えます
func (b *Builder) Mutate(i int, fn func(*Record)) *Builder {
	b.mutate[i] = fn
	return b
}

// Bytes はコンテナのバイト列を返します
func (b *Builder) Bytes() []byte {
	size := sbf.HeaderSize
	for _, e := range b.entries {
		size += len(e.blocks) * sbf.BlockSize
	}
	indexOffset := size
	size += len(b.entries) * sbf.RecordSize

	out := make([]byte, size)
	copy(out[0:4], b.magic[:])
	binary.LittleEndian.PutUint32(out[16:], uint32(indexOffset))
	binary.LittleEndian.PutUint32(out[20:], uint32(len(b.entries)))

	off := sbf.HeaderSize
	for i, e := range b.entries {
		rec := Record{
			Ident:     e.ident,
			Start:     uint32(off),
			Size:      uint32(len(e.blocks) * sbf.BlockSize),
			BlockSize: sbf.BlockSize,
		}
		for _, blk := range e.blocks {
			putBlock(out[off:off+sbf.BlockSize], blk)
			off += sbf.BlockSize
		}
		if fn, ok := b.mutate[i]; ok {
			fn(&rec)
		}
		putRecord(out[indexOffset+i*sbf.RecordSize:], rec)
	}
	return out
}

// Container はバイト列からコンテナを作成します。失敗した場合はpanicします
func (b *Builder) Container(name string) *sbf.Container {
	c, err := sbf.FromBytes(name, b.Bytes())
	if err != nil {
		panic(err)
	}
	return c
}

func putBlock(dst []byte, blk Block) {
	binary.LittleEndian.PutUint32(dst[0:], blk.Count)
	dst[4] = blk.Scale1
	dst[5] = blk.Scale2
	dst[6] = 250
	dst[7] = 0
	copy(dst[sbf.BlockHeaderSize:], blk.Data)
}

func putRecord(dst []byte, rec Record) {
	copy(dst[0:sbf.IdentSize], rec.Ident[:])
	binary.LittleEndian.PutUint32(dst[8:], rec.Z1)
	binary.LittleEndian.PutUint32(dst[12:], rec.Z2)
	binary.LittleEndian.PutUint32(dst[16:], rec.Start)
	binary.LittleEndian.PutUint32(dst[20:], rec.Size)
	binary.LittleEndian.PutUint32(dst[24:], rec.BlockSize)
	binary.LittleEndian.PutUint32(dst[28:], rec.Z3)
}
