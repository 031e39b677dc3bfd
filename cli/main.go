package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/common/version"
	"github.com/xyproto/env/v2"
	"gopkg.in/alecthomas/kingpin.v2"

	dumper "github.com/zed-0xff/moddump"
	"github.com/zed-0xff/moddump/config"
	"github.com/zed-0xff/moddump/output"
)

var cfg struct {
	verbose     bool
	process     string
	pid         uint32
	config      string
	output      string
	metricsFile string
	access      string

	module  string
	size    string
	pattern string
	address string
	value   string
	first   bool
	text    bool
}

var (
	consoleOutput = os.Stderr
	logger        = log.NewLogfmtLogger(log.NewSyncWriter(consoleOutput))
)

func main() {
	if version.Version == "" {
		version.Version = dumper.VERSION
	}

	app := kingpin.New(filepath.Base(os.Args[0]), "Dumps the loaded modules of a running process as standalone binary images.").UsageWriter(os.Stdout)
	app.Version(version.Print("moddump"))
	app.HelpFlag.Short('h')
	app.Flag("verbose", "Enable debug logging.").Short('v').Default(strconv.FormatBool(env.Bool("MODDUMP_DEBUG"))).BoolVar(&cfg.verbose)
	app.Flag("process", "Executable name of the target process.").Short('p').Default(env.Str("MODDUMP_PROCESS", config.DefaultProcessName)).StringVar(&cfg.process)
	app.Flag("pid", "Target process id. Takes precedence over --process.").Uint32Var(&cfg.pid)
	app.Flag("config", "Path to the module list.").Short('c').Default(env.Str("MODDUMP_CONFIG", config.DefaultPath)).StringVar(&cfg.config)
	app.Flag("output", "Directory dumps are written to.").Short('o').Default(env.Str("MODDUMP_OUTPUT", output.DefaultRoot)).StringVar(&cfg.output)
	app.Flag("metrics-file", "Write run metrics to this file in Prometheus text format.").StringVar(&cfg.metricsFile)
	app.Flag("access", "Access rights requested when opening the process handle (hex, Windows only).").Default(fmt.Sprintf("%X", dumper.PROCESS_ALL_ACCESS)).StringVar(&cfg.access)

	dumpCmd := app.Command("dump", "Dump every configured module.").Default()

	locateCmd := app.Command("locate", "Print base address and size of a module.")
	locateCmd.Arg("module", "Module name.").Required().StringVar(&cfg.module)

	regionsCmd := app.Command("regions", "List the mapped regions a module spans.")
	regionsCmd.Arg("module", "Module name.").Required().StringVar(&cfg.module)

	peekCmd := app.Command("peek", "Hexdump the start of a module.")
	peekCmd.Arg("module", "Module name.").Required().StringVar(&cfg.module)
	peekCmd.Arg("size", "Number of bytes to show (hex).").Default("100").StringVar(&cfg.size)

	findCmd := app.Command("find", "Print the address of every match of a byte pattern inside a module.")
	findCmd.Arg("module", "Module name.").Required().StringVar(&cfg.module)
	findCmd.Arg("pattern", `Hex bytes, "??" matches any byte, e.g. "48 8B 05 ?? ?? ?? ??".`).Required().StringVar(&cfg.pattern)
	findCmd.Flag("first", "Stop at the first match.").BoolVar(&cfg.first)
	findCmd.Flag("text", "Treat the pattern as literal text.").BoolVar(&cfg.text)

	poke32Cmd := app.Command("poke32", "Write a 32-bit little-endian value into the target.")
	poke32Cmd.Arg("address", "Target address (hex).").Required().StringVar(&cfg.address)
	poke32Cmd.Arg("value", "Value (hex).").Required().StringVar(&cfg.value)

	// parse command line arguments
	parsedCmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	if !cfg.verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	process, err := attach()
	if err != nil {
		// a missing or inaccessible target ends the run without failing it
		fmt.Printf("[?] couldn't attach to process %s: %v\n", targetName(), err)
		return
	}
	fmt.Printf("[.] attached to %s (pid %d)\n", targetName(), process.Pid())

	var code int
	switch parsedCmd {
	case dumpCmd.FullCommand():
		code = checkError(dump(process))
	case locateCmd.FullCommand():
		code = checkError(locate(process, cfg.module))
	case regionsCmd.FullCommand():
		code = checkError(regions(process, cfg.module))
	case peekCmd.FullCommand():
		code = checkError(peek(process, cfg.module, cfg.size))
	case findCmd.FullCommand():
		code = checkError(find(process, cfg.module, cfg.pattern, cfg.text, cfg.first))
	case poke32Cmd.FullCommand():
		code = checkError(poke32(process, cfg.address, cfg.value))
	default:
		level.Error(logger).Log("msg", "unknown command", "cmd", parsedCmd)
		code = 1
	}

	if err := process.Detach(); err != nil {
		level.Warn(logger).Log("msg", "detach failed", "err", err)
	}
	os.Exit(code)
}

func targetName() string {
	if cfg.pid != 0 {
		return fmt.Sprintf("#%d", cfg.pid)
	}
	return cfg.process
}

func attach() (*dumper.Process, error) {
	access, err := parseHex(cfg.access, "access")
	if err != nil {
		return nil, err
	}
	opts := []dumper.ProcessOption{
		dumper.WithLogger(logger),
		dumper.WithAccess(uint32(access)),
	}

	var process *dumper.Process
	if cfg.pid != 0 {
		process = dumper.NewProcess(cfg.pid, opts...)
	} else {
		process, err = dumper.FindProcess(cfg.process, opts...)
		if err != nil {
			return nil, err
		}
	}

	if err := process.Attach(); err != nil {
		return nil, err
	}
	return process, nil
}

func checkError(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return 1
}
