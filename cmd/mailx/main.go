// Package main 提供 mailx 命令行入口
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dep2p/go-mailx"
	"github.com/dep2p/go-mailx/internal/harvest"
	"github.com/dep2p/go-mailx/pkg/lib/log"
)

var logger = log.Logger("mailx/cmd")

// 退出码
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run 解析参数并执行对应模式，返回退出码
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cli, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		printUsage(stderr)
		return exitUsage
	}

	if cli.version {
		fmt.Fprintln(stdout, mailx.VersionInfo())
		return exitOK
	}

	cfg, err := buildConfig(cli)
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}

	s, err := mailx.New(mailx.WithConfig(cfg), mailx.WithOutput(stdout))
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return exitUsage
	}

	logger.Info("启动 mailx", "version", mailx.Version, "mode", cli.mode)
	if err := execute(ctx, s, cli, stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			return exitOK
		}
		fmt.Fprintf(stderr, "fatal: %v\n", err)
		return exitFatal
	}
	return exitOK
}

// execute 执行模式
func execute(ctx context.Context, s *mailx.Session, cli *cliConfig, stdout io.Writer) error {
	switch cli.mode {
	case modeNode, modeJoin:
		return s.Serve(ctx)
	case modeChat:
		return s.Run(ctx)
	}

	if err := s.Open(ctx); err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	switch cli.mode {
	case modeGet:
		value, found, err := s.Get(ctx)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(stdout, "Get result: <none>")
			return nil
		}
		fmt.Fprintf(stdout, "Get result: %s\n", value)

	case modeSet:
		if err := s.Set(ctx, []byte(cli.value)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Set %s\n", s.Config().Session.Key)

	case modeCrawl:
		res, err := s.Crawl(ctx)
		if err != nil {
			return err
		}
		for _, p := range res.Visited.Peers() {
			fmt.Fprintln(stdout, p.ID.String())
		}

	case modeDump:
		pairs, err := s.Dump(ctx)
		if err != nil {
			return err
		}
		for _, k := range harvest.SortedKeys(pairs) {
			fmt.Fprintf(stdout, "%s = %s\n", k, pairs[k])
		}
	}
	return nil
}
