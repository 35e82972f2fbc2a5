package sbf_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/sbf/sbftest"
)

func ident(s string) [sbf.IdentSize]byte {
	var raw [sbf.IdentSize]byte
	copy(raw[:], s)
	return raw
}

func TestSplitIdent(t *testing.T) {
	tests := []struct {
		name       string
		raw        [sbf.IdentSize]byte
		wantIdent  string
		wantSuffix string
	}{
		{
			name:       "m始まりは最初のaで分割",
			raw:        ident("menua3"),
			wantIdent:  "menu",
			wantSuffix: "a3",
		},
		{
			name:       "m以外は英字の連続で分割",
			raw:        ident("track7"),
			wantIdent:  "track",
			wantSuffix: "7",
		},
		{
			name:       "英字サフィックスは識別子に吸収される",
			raw:        ident("gamemus"),
			wantIdent:  "gamemus",
			wantSuffix: "",
		},
		{
			name:       "8バイトすべて英字",
			raw:        ident("VALIANTZ"),
			wantIdent:  "VALIANTZ",
			wantSuffix: "",
		},
		{
			name:       "数字で始まる識別子",
			raw:        ident("12ab"),
			wantIdent:  "",
			wantSuffix: "12ab",
		},
		{
			name:       "m始まりでaがない場合はNULも識別子に含まれる",
			raw:        ident("mus1"),
			wantIdent:  "mus1\x00\x00\x00\x00",
			wantSuffix: "",
		},
		{
			name:       "m始まりで先頭以外のm",
			raw:        ident("mmbaX12"),
			wantIdent:  "mmb",
			wantSuffix: "aX12",
		},
		{
			name:       "サフィックスは最初のNULで終わる",
			raw:        [sbf.IdentSize]byte{'b', 'o', 's', 's', '1', 0, '9', '9'},
			wantIdent:  "boss",
			wantSuffix: "1",
		},
		{
			name:       "不正なUTF-8は置換文字になる",
			raw:        [sbf.IdentSize]byte{'x', 0xff, 0, 0, 0, 0, 0, 0},
			wantIdent:  "x",
			wantSuffix: "\uFFFD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotIdent, gotSuffix := sbf.SplitIdent(tt.raw)
			if gotIdent != tt.wantIdent {
				t.Errorf("ident: got %q, want %q", gotIdent, tt.wantIdent)
			}
			if gotSuffix != tt.wantSuffix {
				t.Errorf("suffix: got %q, want %q", gotSuffix, tt.wantSuffix)
			}
		})
	}
}

func TestFromBytes_Header(t *testing.T) {
	data := sbftest.New().
		Add("menua1", sbftest.Fill(0, 4, 128)).
		Add("track1", sbftest.Fill(0, 4, 128)).
		Bytes()
	binary.LittleEndian.PutUint32(data[4:], 7)
	binary.LittleEndian.PutUint32(data[8:], 8)
	binary.LittleEndian.PutUint32(data[12:], 9)

	c, err := sbf.FromBytes("test.sbf", data)
	require.NoError(t, err)
	defer c.Close()

	h := c.Header()
	if string(h.Magic[:]) != "SBF0" {
		t.Errorf("Expected magic SBF0, got %q", h.Magic[:])
	}
	if h.I1 != 7 || h.I2 != 8 || h.I3 != 9 {
		t.Errorf("Expected opaque fields 7/8/9, got %d/%d/%d", h.I1, h.I2, h.I3)
	}
	if h.IndexCount != 2 {
		t.Errorf("Expected 2 records, got %d", h.IndexCount)
	}
	if h.IndexEnd() != uint64(len(data)) {
		t.Errorf("Expected index to end at %d, got %d", len(data), h.IndexEnd())
	}

	chunks := c.Chunks()
	require.Len(t, chunks, 2)
	require.Equal(t, "menu", chunks[0].Ident)
	require.Equal(t, "a1", chunks[0].Suffix)
	require.Equal(t, "track", chunks[1].Ident)
	require.Equal(t, "1", chunks[1].Suffix)
	require.Equal(t, 1, chunks[1].Index)
	require.Equal(t, uint32(sbf.HeaderSize+sbf.BlockSize), chunks[1].Start)
	require.Equal(t, 1, chunks[1].Blocks())
}

func TestFromBytes_Invalid(t *testing.T) {
	valid := func() *sbftest.Builder {
		return sbftest.New().
			Add("track1", sbftest.Fill(0, 4, 128)).
			Add("track2", sbftest.Fill(0, 4, 128))
	}

	tests := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{
			name:    "空ファイル",
			data:    func() []byte { return nil },
			wantErr: sbf.ErrHeaderTooShort,
		},
		{
			name:    "ヘッダ途中で終わる",
			data:    func() []byte { return make([]byte, sbf.HeaderSize-1) },
			wantErr: sbf.ErrHeaderTooShort,
		},
		{
			name: "インデックス件数がファイルを超える",
			data: func() []byte {
				d := valid().Bytes()
				binary.LittleEndian.PutUint32(d[20:], 3)
				return d
			},
			wantErr: sbf.ErrIndexOutOfBounds,
		},
		{
			name: "インデックスオフセットがファイルを超える",
			data: func() []byte {
				d := valid().Bytes()
				binary.LittleEndian.PutUint32(d[16:], 0xFFFFFFF0)
				return d
			},
			wantErr: sbf.ErrIndexOutOfBounds,
		},
		{
			name: "z2が0でない",
			data: func() []byte {
				return valid().Mutate(1, func(r *sbftest.Record) { r.Z2 = 1 }).Bytes()
			},
			wantErr: sbf.ErrReservedField,
		},
		{
			name: "z3が0でない",
			data: func() []byte {
				return valid().Mutate(0, func(r *sbftest.Record) { r.Z3 = 5 }).Bytes()
			},
			wantErr: sbf.ErrReservedField,
		},
		{
			name: "ブロックサイズが4104でない",
			data: func() []byte {
				return valid().Mutate(1, func(r *sbftest.Record) { r.BlockSize = 4096 }).Bytes()
			},
			wantErr: sbf.ErrBlockSize,
		},
		{
			name: "サイズがブロックサイズの倍数でない",
			data: func() []byte {
				return valid().Mutate(0, func(r *sbftest.Record) { r.Size = sbf.BlockSize + 1 }).Bytes()
			},
			wantErr: sbf.ErrSizeNotBlockMultiple,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := sbf.FromBytes("bad.sbf", tt.data())
			require.Error(t, err)
			require.Nil(t, c, "部分的なコンテナを返してはいけない")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if !sbf.IsFormatError(err) {
				t.Errorf("Expected FormatError, got %T", err)
			}
		})
	}
}

func TestFromBytes_Z1Tolerated(t *testing.T) {
	data := sbftest.New().
		Add("VALIANT0", sbftest.Fill(0, 4, 128)).
		Mutate(0, func(r *sbftest.Record) { r.Z1 = 0xDEADBEEF }).
		Bytes()

	c, err := sbf.FromBytes("z1.sbf", data)
	require.NoError(t, err)
	chunks := c.Chunks()
	require.Len(t, chunks, 1)
	require.Equal(t, uint32(0xDEADBEEF), chunks[0].Z1)
	// 'V' は 'm' ではないので英字の連続が識別子になる
	require.Equal(t, "VALIANT", chunks[0].Ident)
	require.Equal(t, "0", chunks[0].Suffix)
}

func TestFromBytes_RecordIndexInError(t *testing.T) {
	data := sbftest.New().
		Add("track1", sbftest.Fill(0, 4, 128)).
		Add("track2", sbftest.Fill(0, 4, 128)).
		Add("track3", sbftest.Fill(0, 4, 128)).
		Mutate(2, func(r *sbftest.Record) { r.BlockSize = 0 }).
		Bytes()

	_, err := sbf.FromBytes("bad.sbf", data)
	var fe *sbf.FormatError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, 2, fe.Index)
}
