// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command vib-scan acquires vibration data from an MCC 172 board.
//
// The scan parameters are read from a tag file. The samples are written to
// a data log, named after the host and the UTC start time of the run, under
// the output directory. Faults are written to an error log next to it.
//
// Usage: vib-scan [OPTIONS]
//
// Example:
//
//	$> vib-scan -cfg ./vib_params -o ./results
//	$> vib-scan -sim -db ./runs.sqlite -metrics ./vib-scan.prom
//
// Options:
//
//	-addr int
//	  	board address, negative to select the first MCC 172 (default -1)
//	-alert
//	  	send a mail alert on failure
//	-cfg string
//	  	path to the scan parameters file (default "./vib_params")
//	-db string
//	  	data source name of the run database (disabled if empty)
//	-db-driver string
//	  	driver of the run database (sqlite or mysql) (default "sqlite")
//	-env string
//	  	path to a .env file with the mail credentials (default ".env")
//	-freq duration
//	  	pmon frequency (default 1s)
//	-lock-dir string
//	  	directory of the board lock files, disabled if empty
//	-metrics string
//	  	path to a file where to write the run metrics
//	-o string
//	  	output directory (default "./results")
//	-pmon
//	  	enable pmon monitoring
//	-poll duration
//	  	delay between two reads of the scan buffer (default 100ms)
//	-sim
//	  	use a simulated board
package main // import "github.com/go-lpc/vibdaq/cmd/vib-scan"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-lpc/vibdaq"
	"github.com/go-lpc/vibdaq/alert"
	"github.com/go-lpc/vibdaq/daq"
	"github.com/go-lpc/vibdaq/datalog"
	"github.com/go-lpc/vibdaq/mcc172"
	"github.com/go-lpc/vibdaq/rundb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

type config struct {
	params  string
	odir    string
	addr    int
	sim     bool
	poll    time.Duration
	lockDir string

	dbDriver string
	dbDSN    string
	metrics  string
	env      string
	alert    bool

	mon  bool
	freq time.Duration
}

func main() {
	var cfg config
	flag.StringVar(&cfg.params, "cfg", "./vib_params", "path to the scan parameters file")
	flag.StringVar(&cfg.odir, "o", "./results", "output directory")
	flag.IntVar(&cfg.addr, "addr", -1, "board address, negative to select the first MCC 172")
	flag.BoolVar(&cfg.sim, "sim", false, "use a simulated board")
	flag.DurationVar(&cfg.poll, "poll", 100*time.Millisecond, "delay between two reads of the scan buffer")
	flag.StringVar(&cfg.lockDir, "lock-dir", "", "directory of the board lock files, disabled if empty")
	flag.StringVar(&cfg.dbDriver, "db-driver", "sqlite", "driver of the run database (sqlite or mysql)")
	flag.StringVar(&cfg.dbDSN, "db", "", "data source name of the run database (disabled if empty)")
	flag.StringVar(&cfg.metrics, "metrics", "", "path to a file where to write the run metrics")
	flag.StringVar(&cfg.env, "env", ".env", "path to a .env file with the mail credentials")
	flag.BoolVar(&cfg.alert, "alert", false, "send a mail alert on failure")
	flag.BoolVar(&cfg.mon, "pmon", false, "enable pmon monitoring")
	flag.DurationVar(&cfg.freq, "freq", 1*time.Second, "pmon frequency")

	flag.Parse()

	log.SetPrefix("vib-scan: ")
	log.SetFlags(0)

	err := run(context.Background(), cfg)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

var newDriver = func(cfg config) (mcc172.Driver, error) {
	if cfg.sim {
		addr := cfg.addr
		if addr < 0 {
			addr = 0
		}
		return mcc172.NewSim(uint8(addr)), nil
	}
	return mcc172.NewHAT()
}

func run(ctx context.Context, cfg config) error {
	err := alert.LoadEnv(cfg.env)
	if err != nil {
		log.Printf("%+v", err)
	}

	stamp, err := datalog.Now()
	if err != nil {
		log.Printf("could not create run stamp: %+v", err)
		stamp = datalog.NewStamp("", time.Now())
	}
	elog := datalog.NewErrorLog(cfg.odir, stamp)

	if v, _ := vibdaq.Version(); v != "" {
		log.Printf("vibdaq %s, run %s", v, stamp)
	}

	drv, err := newDriver(cfg)
	if err != nil {
		return fatal(elog, fmt.Errorf("could not create board driver: %w", err))
	}

	if cfg.mon {
		err = monitor(cfg, stamp)
		if err != nil {
			return fatal(elog, err)
		}
	}

	db := openDB(ctx, cfg)
	if db != nil {
		defer db.Close()
	}

	var (
		reg     = prometheus.NewRegistry()
		metrics = daq.NewMetrics(reg)
		rec     = &rundb.Run{
			Host:  stamp.Host,
			Stamp: stamp.String(),
			Start: stamp.Start,
			Addr:  cfg.addr,
		}
	)

	if db != nil {
		err = db.Begin(ctx, rec)
		if err != nil {
			log.Printf("could not record run: %+v", err)
			_ = db.Close()
			db = nil
		}
	}

	sum, err := acquire(ctx, drv, daq.Config{
		Params: cfg.params,
		Dir:    cfg.odir,
		Addr:   cfg.addr,
		Stamp:  stamp,
	},
		daq.WithPollInterval(cfg.poll),
		daq.WithLockDir(cfg.lockDir),
		daq.WithMetrics(metrics),
	)

	if db != nil {
		rec.Addr = int(sum.Addr)
		rec.Channels = sum.Params.Channels
		rec.SampleRate = sum.Rate
		rec.SamplesPerChannel = sum.Params.SamplesPerChannel
		rec.Samples = sum.Samples
		if e := db.End(ctx, rec, err); e != nil {
			log.Printf("could not record end of run: %+v", e)
		}
	}

	if cfg.metrics != "" {
		if e := prometheus.WriteToTextfile(cfg.metrics, reg); e != nil {
			log.Printf("could not write metrics: %+v", e)
		}
	}

	if err != nil {
		if cfg.alert {
			notify(stamp, err, sum)
		}
		return fmt.Errorf("could not acquire data: %w", err)
	}

	summarize(sum)
	return nil
}

// fatal records err in the error log of the run and returns it.
func fatal(elog *datalog.ErrorLog, err error) error {
	if e := elog.Append(err.Error()); e != nil {
		log.Printf("could not record fault: %+v", e)
	}
	return err
}

// acquire runs the acquisition until completion or until an interrupt or
// termination signal is received.
func acquire(ctx context.Context, drv mcc172.Driver, cfg daq.Config, opts ...daq.Option) (daq.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, unix.SIGTERM)
	defer signal.Stop(sigc)

	var (
		sum daq.Summary
		grp errgroup.Group
	)

	grp.Go(func() error {
		select {
		case sig := <-sigc:
			log.Printf("received %v, stopping acquisition...", sig)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	grp.Go(func() error {
		defer cancel()
		var err error
		sum, err = daq.Run(ctx, drv, cfg, opts...)
		return err
	})

	err := grp.Wait()
	return sum, err
}

// monitor records the CPU and memory usage of the current process until
// it exits.
func monitor(cfg config, stamp datalog.Stamp) error {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return fmt.Errorf("could not start monitoring: %w", err)
	}

	err = os.MkdirAll(cfg.odir, 0755)
	if err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	fname := filepath.Join(cfg.odir, stamp.String()+"_pmon.log")
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = cfg.freq

	go func() {
		defer f.Close()
		err := p.Run()
		if err != nil {
			log.Printf("could not run pmon: %+v", err)
		}
	}()

	return nil
}

func openDB(ctx context.Context, cfg config) *rundb.DB {
	if cfg.dbDSN == "" {
		return nil
	}

	db, err := rundb.Open(cfg.dbDriver, cfg.dbDSN)
	if err != nil {
		log.Printf("could not open run database: %+v", err)
		return nil
	}

	err = db.Migrate(ctx)
	if err != nil {
		log.Printf("could not migrate run database: %+v", err)
		_ = db.Close()
		return nil
	}
	return db
}

func notify(stamp datalog.Stamp, cause error, sum daq.Summary) {
	m, err := alert.FromEnv()
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
		return
	}
	err = m.Failure("vib-scan", stamp.String(), cause, sum.DataLog, sum.ErrorLog)
	if err != nil {
		log.Printf("could not send mail alert: %+v", err)
	}
}

func summarize(sum daq.Summary) {
	size := "n/a"
	if fi, err := os.Stat(sum.DataLog); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	log.Printf(
		"run %s: %s samples/channel at %s Hz in %d reads (%v)",
		sum.Stamp, humanize.Comma(int64(sum.Samples)), humanize.Ftoa(sum.Rate),
		sum.Reads, sum.Elapsed.Round(time.Millisecond),
	)
	log.Printf("data log: %s (%s)", sum.DataLog, size)
}
