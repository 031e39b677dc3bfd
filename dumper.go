package dumper

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/zed-0xff/moddump/config"
	"github.com/zed-0xff/moddump/image"
	"github.com/zed-0xff/moddump/output"
)

const VERSION = "1.0"

// Dumper runs the locate, capture, repair, timestamp and write pipeline for
// each configured module of one attached process.
type Dumper struct {
	session Session
	writer  *output.Writer
	logger  log.Logger
	metrics *Metrics
	now     func() time.Time
}

type DumperOption func(*Dumper)

func WithDumperLogger(logger log.Logger) DumperOption {
	return func(d *Dumper) {
		d.logger = logger
	}
}

func WithMetrics(m *Metrics) DumperOption {
	return func(d *Dumper) {
		d.metrics = m
	}
}

// WithClock sets the time source used to date images without a build timestamp.
func WithClock(now func() time.Time) DumperOption {
	return func(d *Dumper) {
		d.now = now
	}
}

func NewDumper(session Session, writer *output.Writer, opts ...DumperOption) *Dumper {
	d := &Dumper{
		session: session,
		writer:  writer,
		logger:  log.NewNopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(nil)
	}
	return d
}

// Dump describes one module written (or found already written) to disk.
type Dump struct {
	Module string
	Base   uintptr
	Size   uintptr
	Format image.Format
	Date   time.Time
	Path   string
}

type Summary struct {
	Dumped  []Dump
	Skipped []Dump
	Failed  []string

	// Errors holds one *StageError per failed module.
	Errors *multierror.Error
}

func (s *Summary) Err() error {
	return s.Errors.ErrorOrNil()
}

// Run dumps every module of cfg in order. A failing module is recorded in the
// summary and the run moves on to the next one.
func (d *Dumper) Run(cfg *config.Config) *Summary {
	summary := &Summary{}
	if !cfg.Enabled() {
		level.Info(d.logger).Log("msg", "module dumping disabled")
		return summary
	}

	for _, name := range cfg.Modules {
		dump, err := d.DumpModule(name)
		switch {
		case errors.Is(err, output.ErrAlreadyExists):
			summary.Skipped = append(summary.Skipped, dump)
			d.metrics.Modules.WithLabelValues(resultSkipped).Inc()
			level.Info(d.logger).Log("msg", "module already dumped", "module", name, "path", dump.Path)
		case err != nil:
			summary.Failed = append(summary.Failed, name)
			summary.Errors = multierror.Append(summary.Errors, err)
			d.metrics.Modules.WithLabelValues(resultFailed).Inc()
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				d.metrics.StageFailures.WithLabelValues(string(stageErr.Stage)).Inc()
			}
			level.Error(d.logger).Log("msg", "failed to dump module", "module", name, "err", err)
		default:
			summary.Dumped = append(summary.Dumped, dump)
			d.metrics.Modules.WithLabelValues(resultDumped).Inc()
			level.Info(d.logger).Log(
				"msg", "module dumped",
				"module", name,
				"base", fmt.Sprintf("0x%X", dump.Base),
				"size", humanize.IBytes(uint64(dump.Size)),
				"path", dump.Path,
			)
		}
	}
	return summary
}

// DumpModule runs the whole pipeline for a single module. Errors are
// *StageError values; a dump that already exists on disk is reported as
// output.ErrAlreadyExists together with the filled in Dump.
func (d *Dumper) DumpModule(name string) (Dump, error) {
	dump := Dump{Module: name}
	fail := func(stage Stage, err error) (Dump, error) {
		return dump, &StageError{Module: name, Stage: stage, Err: err}
	}

	m, err := d.session.FindModule(name)
	if err != nil {
		return fail(StageLocate, err)
	}
	dump.Base, dump.Size = m.Base, m.Size

	data, err := Capture(d.session, m)
	if err != nil {
		return fail(StageCapture, err)
	}
	d.metrics.CapturedBytes.Add(float64(len(data)))
	level.Debug(d.logger).Log("msg", "module captured", "module", name, "size", humanize.IBytes(uint64(len(data))))

	dump.Format, err = image.Repair(data, uint64(m.Base))
	if err != nil {
		return fail(StageRepair, err)
	}

	dump.Date, err = image.Timestamp(data, d.now())
	if err != nil {
		return fail(StageTimestamp, err)
	}

	dump.Path, err = d.writer.Write(name, dump.Date, data)
	if errors.Is(err, output.ErrAlreadyExists) {
		return dump, err
	}
	if err != nil {
		return fail(StageWrite, err)
	}
	return dump, nil
}
