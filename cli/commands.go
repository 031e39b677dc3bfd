package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	dumper "github.com/zed-0xff/moddump"
	"github.com/zed-0xff/moddump/config"
	"github.com/zed-0xff/moddump/output"
)

// parseHex accepts an optional 0x prefix and '_' as a visual separator.
func parseHex(s string, title string) (uint64, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	s = strings.ReplaceAll(s, "_", "")
	x, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s: %q", title, s)
	}
	return x, nil
}

func dump(process dumper.Session) error {
	fs := afero.NewOsFs()
	conf := config.LoadOrCreate(fs, cfg.config, logger)

	reg := prometheus.NewRegistry()
	writer := output.NewWriter(fs, cfg.output)
	fmt.Printf("[.] writing dumps to %s\n", writer.Root())
	d := dumper.NewDumper(process, writer,
		dumper.WithDumperLogger(logger),
		dumper.WithMetrics(dumper.NewMetrics(reg)),
	)

	summary := d.Run(conf)
	for _, m := range summary.Dumped {
		fmt.Printf("[=] dumped module: %s at 0x%X (%s) -> %s\n", m.Module, m.Base, humanize.IBytes(uint64(m.Size)), m.Path)
	}
	for _, m := range summary.Skipped {
		fmt.Printf("[.] module already dumped: %s\n", m.Module)
	}
	if summary.Errors != nil {
		for _, err := range summary.Errors.Errors {
			fmt.Printf("[?] %v\n", err)
		}
	}
	level.Info(logger).Log("msg", "run finished", "dumped", len(summary.Dumped), "skipped", len(summary.Skipped), "failed", len(summary.Failed))

	if cfg.metricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.metricsFile, reg); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}

	// per-module failures are reported above and don't fail the run
	return nil
}

func locate(process dumper.Session, name string) error {
	m, err := process.FindModule(name)
	if err != nil {
		return errors.Wrapf(err, "locate %s", name)
	}
	fmt.Printf("%s base:%X size:%X (%s)\n", name, m.Base, m.Size, humanize.IBytes(uint64(m.Size)))
	return nil
}

type regionLister interface {
	Regions() ([]dumper.Region, error)
}

func regions(process dumper.Session, name string) error {
	lister, ok := process.(regionLister)
	if !ok {
		return errors.Wrap(dumper.ErrUnsupported, "no mapping table on this platform")
	}

	m, err := process.FindModule(name)
	if err != nil {
		return errors.Wrapf(err, "locate %s", name)
	}
	all, err := lister.Regions()
	if err != nil {
		return err
	}

	fmt.Printf("[.] %s\n", m)
	for _, r := range moduleRegions(all, m) {
		fmt.Printf("    %s\n", r)
	}
	return nil
}

// moduleRegions returns the regions overlapping the module span, in table order.
func moduleRegions(all []dumper.Region, m dumper.Module) []dumper.Region {
	return lo.Filter(all, func(r dumper.Region, _ int) bool {
		return r.Start < m.End() && r.End > m.Base
	})
}

func peek(process dumper.Session, name string, sizeArg string) error {
	size, err := parseHex(sizeArg, "size")
	if err != nil {
		return err
	}

	m, err := process.FindModule(name)
	if err != nil {
		return errors.Wrapf(err, "locate %s", name)
	}
	if size > uint64(m.Size) {
		size = uint64(m.Size)
	}

	data, err := dumper.ReadMemory(process, m.Base, int(size))
	if err != nil {
		return err
	}
	return dumper.HexDump(os.Stdout, data, m.Base)
}

func find(process dumper.Session, name string, src string, text bool, first bool) error {
	var pattern dumper.Pattern
	if text {
		pattern = dumper.PatternFromString(src)
	} else {
		var err error
		if pattern, err = dumper.ParsePattern(src); err != nil {
			return err
		}
	}
	if pattern.Length() == 0 {
		return errors.New("empty pattern")
	}

	m, err := process.FindModule(name)
	if err != nil {
		return errors.Wrapf(err, "locate %s", name)
	}
	data, err := dumper.Capture(process, m)
	if err != nil {
		return err
	}

	if first {
		if offset := pattern.Find(data); offset >= 0 {
			fmt.Printf("%X\n", m.Base+uintptr(offset))
		}
		return nil
	}
	for _, offset := range pattern.FindAll(data) {
		fmt.Printf("%X\n", m.Base+uintptr(offset))
	}
	return nil
}

func poke32(process dumper.Session, addressArg string, valueArg string) error {
	ea, err := parseHex(addressArg, "address")
	if err != nil {
		return err
	}
	value, err := parseHex(valueArg, "value")
	if err != nil {
		return err
	}
	if value > 0xFFFFFFFF {
		return errors.Errorf("value %X doesn't fit in 32 bits", value)
	}

	if err := dumper.WriteUInt32(process, uintptr(ea), uint32(value)); err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "value written", "address", fmt.Sprintf("0x%X", ea), "value", fmt.Sprintf("0x%X", value))
	return nil
}
