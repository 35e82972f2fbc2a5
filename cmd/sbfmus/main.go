package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/shiroemons/go-sbfmus/internal/mus/app"
	"github.com/shiroemons/go-sbfmus/internal/mus/config"
	"github.com/shiroemons/go-sbfmus/pkg/sbf"
	"github.com/shiroemons/go-sbfmus/pkg/timeline"
)

var (
	listFlag    = flag.Bool("l", false, "list tracks and chunks")
	trackName   = flag.String("t", "", "track to edit")
	configPath  = flag.String("c", config.DefaultReorderPath, "chunk reordering config")
	orderFlag   = flag.String("order", "", "comma separated suffix order for the track")
	commitFlag  = flag.Bool("commit", false, "save the track order to the reordering config")
	exportPath  = flag.String("x", "", "export the track as a wav file")
	playFlag    = flag.Int("p", -1, "show the playback position for the chunk at this index")
	debugFlag   = flag.Bool("d", false, "debug mode (show more info)")
	workerCount = flag.Int("w", 4, "number of chunks decoded in parallel")
	moves       moveList
)

func main() {
	flag.Var(&moves, "m", "move a chunk, from:to (repeatable)")
	flag.Parse()

	// 引数チェック
	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("使用方法: sbfmus [オプション] <SBFファイル> [<SBFファイル> ...]")
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, inputs []string) error {
	cfg := &config.Config{
		Inputs:      inputs,
		OutputDir:   ".",
		ReorderPath: *configPath,
		Workers:     *workerCount,
		DebugMode:   *debugFlag,
		ListOnly:    *listFlag,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	application := app.New(cfg)
	lib, err := application.Load(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()

	if *listFlag || *trackName == "" {
		return application.List(lib)
	}

	editor, err := application.OpenEditor(ctx, lib, *trackName)
	if err != nil {
		return err
	}

	if order := parseOrder(*orderFlag); order != nil {
		if err := editor.SetOrder(order); err != nil {
			return err
		}
	}
	for _, mv := range moves {
		if err := editor.Move(mv.from, mv.to); err != nil {
			return err
		}
	}

	tl, err := editor.Timeline(ctx)
	if err != nil {
		return err
	}
	printTimeline(editor, tl)

	if *playFlag >= 0 {
		pb, err := editor.Playback(ctx, *playFlag)
		if err != nil {
			return err
		}
		fmt.Printf("再生開始位置: %s (チャンク %d, 開始時点のチャンク %d, %d フレーム)\n",
			pb.Start, pb.Chunk, tl.ChunkAt(pb.Start), pb.Buffer.NumFrames())
	}

	if *commitFlag {
		if err := editor.Commit(lib.Orders); err != nil {
			return err
		}
		fmt.Printf("並び順を %s に保存しました\n", lib.Orders.Path())
	}

	if *exportPath != "" {
		if err := exportTrack(ctx, editor, *exportPath); err != nil {
			return err
		}
		fmt.Printf("%s に書き出しました\n", *exportPath)
	}

	if *debugFlag {
		fmt.Printf("状態: %s (世代 %d)\n", editor.State(), editor.Generation())
	}
	return nil
}

func printTimeline(e *timeline.Editor, tl *timeline.Timeline) {
	fmt.Printf("トラック %q のチャンク (%d 個, %s):\n", e.Track(), tl.Len(), tl.Duration())
	fmt.Println("----------------------------")
	fmt.Printf("%4s %-10s %12s %12s\n", "#", "サフィックス", "開始", "長さ")
	fmt.Println("----------------------------")
	for i, suffix := range tl.Suffixes() {
		fmt.Printf("%4d %-10q %12s %12s\n", i, suffix, tl.Offset(i), tl.ChunkDuration(i))
	}
	fmt.Println("----------------------------")
}

func exportTrack(ctx context.Context, e *timeline.Editor, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &sbf.IOError{Op: "create", Path: path, Err: err}
	}

	// バッファ付きライターを使用
	w := bufio.NewWriter(f)
	err = e.Export(ctx, w)
	if err == nil {
		err = w.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path) // 失敗したらファイルを削除
		return err
	}
	return nil
}
