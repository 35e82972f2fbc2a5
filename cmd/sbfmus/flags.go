package main

import (
	"fmt"
	"strconv"
	"strings"
)

// move はチャンクの移動指定 (from:to)
type move struct {
	from, to int
}

// moveList は -m を複数回指定するためのflag.Value
type moveList []move

func (m *moveList) String() string {
	parts := make([]string, len(*m))
	for i, mv := range *m {
		parts[i] = fmt.Sprintf("%d:%d", mv.from, mv.to)
	}
	return strings.Join(parts, ",")
}

func (m *moveList) Set(value string) error {
	mv, err := parseMove(value)
	if err != nil {
		return err
	}
	*m = append(*m, mv)
	return nil
}

func parseMove(value string) (move, error) {
	from, to, ok := strings.Cut(value, ":")
	if !ok {
		return move{}, fmt.Errorf("移動の指定は from:to の形式です: %q", value)
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return move{}, fmt.Errorf("移動元が数値ではありません: %q", from)
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return move{}, fmt.Errorf("移動先が数値ではありません: %q", to)
	}
	return move{from: f, to: t}, nil
}

// parseOrder はカンマ区切りのサフィックス列を分割します
func parseOrder(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
