package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dep2p/go-mailx/config"
)

// ============================================================================
//                              命令行参数
// ============================================================================

// 模式
const (
	modeNode  = "node"
	modeGet   = "get"
	modeSet   = "set"
	modeJoin  = "join"
	modeChat  = "chat"
	modeCrawl = "crawl"
	modeDump  = "dump"
)

var modes = []string{modeNode, modeGet, modeSet, modeJoin, modeChat, modeCrawl, modeDump}

var (
	errUsage = errors.New("usage error")
	errHelp  = errors.New("help requested")
)

// cliConfig 解析后的命令行参数
type cliConfig struct {
	mode string

	bootstrapIP   string
	bootstrapPort int
	listenPort    int
	key           string
	value         string

	configFile  string
	watch       bool
	metricsAddr string
	settle      time.Duration
	remote      bool
	version     bool

	// set 记录显式设置过的参数
	set map[string]bool
}

const usageText = `usage: mailx <mode> [flags]

modes:
  node    run a seed node listening on -p
  join    listen on -l, bootstrap to -i:-p, run until interrupted
  get     print the value stored under -k
  set     store -v under -k
  chat    bootstrap, publish a self-tested message, read it back
  crawl   print node IDs reachable from this node
  dump    print every key/value pair held by known peers

flags:
`

func newFlagSet(cli *cliConfig, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("mailx", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	fs.StringVar(&cli.bootstrapIP, "i", config.DefaultBootstrapHost, "bootstrap node IP")
	fs.IntVar(&cli.bootstrapPort, "p", config.DefaultBootstrapPort, "bootstrap node port (listen port in node mode)")
	fs.IntVar(&cli.listenPort, "l", config.DefaultListenPort, "local UDP port")
	fs.StringVar(&cli.key, "k", config.DefaultKey, "key")
	fs.StringVar(&cli.value, "v", "", "value (required for set)")
	fs.StringVar(&cli.configFile, "config", "", "JSON config file")
	fs.BoolVar(&cli.watch, "watch", false, "run message/peer pollers, crawler and harvester")
	fs.StringVar(&cli.metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
	fs.DurationVar(&cli.settle, "settle", 5*time.Second, "wait after bootstrap before publishing")
	fs.BoolVar(&cli.remote, "remote", false, "crawl by asking each peer (FIND_NODE) instead of the local routing table")
	fs.BoolVar(&cli.version, "version", false, "print version and exit")
	return fs
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
	newFlagSet(&cliConfig{}, w).PrintDefaults()
}

// parseArgs 解析参数；模式可以出现在参数前或后
func parseArgs(args []string, stderr io.Writer) (*cliConfig, error) {
	cli := &cliConfig{set: make(map[string]bool)}
	fs := newFlagSet(cli, stderr)

	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, errHelp
			}
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		rest = fs.Args()[1:]
	}
	fs.Visit(func(f *flag.Flag) { cli.set[f.Name] = true })

	if cli.version {
		return cli, nil
	}
	if len(positional) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one mode, got %d", errUsage, len(positional))
	}
	cli.mode = positional[0]
	if !validMode(cli.mode) {
		return nil, fmt.Errorf("%w: unknown mode %q (want one of %s)", errUsage, cli.mode, strings.Join(modes, ", "))
	}
	if cli.mode == modeSet && !cli.set["v"] {
		return nil, fmt.Errorf("%w: set requires -v", errUsage)
	}
	return cli, nil
}

func validMode(mode string) bool {
	for _, m := range modes {
		if m == mode {
			return true
		}
	}
	return false
}

// ============================================================================
//                              配置构建
// ============================================================================

// buildConfig 合并配置
//
// 优先级（从高到低）：命令行参数 > 环境变量（MAILX_*）> 配置文件 > 默认值。
func buildConfig(cli *cliConfig) (*config.Config, error) {
	cfg := config.NewConfig()
	if cli.configFile != "" {
		var err error
		cfg, err = config.LoadFile(cli.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.ApplyEnv()

	seed := net.JoinHostPort(cli.bootstrapIP, strconv.Itoa(cli.bootstrapPort))
	switch cli.mode {
	case modeNode:
		// 种子节点监听在引导端口上，自身不引导
		cfg.Node.ListenPort = cli.bootstrapPort
		cfg.Node.BootstrapPeers = nil
	default:
		if cli.set["l"] {
			cfg.Node.ListenPort = cli.listenPort
		}
		// 未显式给出种子时使用 -i/-p 的默认值
		if cli.set["i"] || cli.set["p"] || len(cfg.Node.BootstrapPeers) == 0 {
			cfg.Node.BootstrapPeers = []string{seed}
		}
	}

	if cli.set["k"] {
		cfg.Session.Key = cli.key
	}
	if cli.set["settle"] {
		cfg.Session.SettleDelay = config.Duration(cli.settle)
	}
	if cli.set["watch"] {
		cfg.Session.Watch = cli.watch
	}
	if cli.set["metrics"] {
		cfg.Metrics.ListenAddr = cli.metricsAddr
	}
	if cli.set["remote"] {
		cfg.Crawl.Remote = cli.remote
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
