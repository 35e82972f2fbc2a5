package sbf

import (
	"maps"
	"slices"
)

// GroupChunks はチャンクをトラック識別子ごとにまとめます
//
// 各トラック内の順序は入力順を保ちます。識別子が離れた位置に再登場しても
// 同じトラックに追加されます。
func GroupChunks(chunks []Chunk) map[string][]Chunk {
	groups := make(map[string][]Chunk)
	for _, chunk := range chunks {
		groups[chunk.Ident] = append(groups[chunk.Ident], chunk)
	}
	return groups
}

// TrackNames はトラック名をソートして返します
func TrackNames(groups map[string][]Chunk) []string {
	return slices.Sorted(maps.Keys(groups))
}

// Suffixes はチャンク列のサフィックスを順に返します
func Suffixes(chunks []Chunk) []string {
	suffixes := make([]string, len(chunks))
	for i, chunk := range chunks {
		suffixes[i] = chunk.Suffix
	}
	return suffixes
}
