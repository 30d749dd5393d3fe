// Command velodyne-decode converts HDL-64E packet captures into calibrated
// point clouds, written as CSV and/or into a SQLite session database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/velodyne-rawdata/internal/config"
	"github.com/banshee-data/velodyne-rawdata/internal/lidar/calibration"
	"github.com/banshee-data/velodyne-rawdata/internal/lidar/lidardb"
	"github.com/banshee-data/velodyne-rawdata/internal/lidar/monitor"
	"github.com/banshee-data/velodyne-rawdata/internal/lidar/network"
	"github.com/banshee-data/velodyne-rawdata/internal/lidar/velodyne"
	"github.com/banshee-data/velodyne-rawdata/internal/version"
)

// Options holds the command line configuration.
type Options struct {
	ConfigFile  string
	Calibration string
	PCAPFile    string
	Listen      string
	UDPPort     int
	DBPath      string
	CSVPath     string
	PlotDir     string
	ChartPath   string
	Verbose     bool
	Trace       bool
	Version     bool
}

func main() {
	opts := parseFlags()

	if opts.Version {
		fmt.Println(version.String("velodyne-decode"))
		return
	}

	if opts.PCAPFile == "" && opts.Listen == "" {
		fmt.Fprintln(os.Stderr, "Error: one of -pcap or -listen is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stderr); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Decode failed: %v", err)
	}
}

func parseFlags() Options {
	opts := Options{}

	flag.StringVar(&opts.ConfigFile, "config", "", "Decoder config JSON (default: built-in defaults)")
	flag.StringVar(&opts.Calibration, "calibration", "", "Calibration file, .yaml or .csv (overrides config)")
	flag.StringVar(&opts.PCAPFile, "pcap", "", "Path to PCAP or pcapng capture")
	flag.StringVar(&opts.Listen, "listen", "", "Decode live packets from this UDP address instead of a capture (e.g. :2368)")
	flag.IntVar(&opts.UDPPort, "port", -1, "UDP destination port to decode from the capture (0 = any, default from config)")
	flag.StringVar(&opts.DBPath, "db", "", "SQLite database path (optional)")
	flag.StringVar(&opts.CSVPath, "csv", "", "Write decoded points to this CSV file (optional)")
	flag.StringVar(&opts.PlotDir, "plot-dir", "", "Write PNG diagnostics under <dir>/<capture>/<timestamp> (optional)")
	flag.StringVar(&opts.ChartPath, "chart", "", "Write an HTML chart page of the decoded cloud (optional)")
	flag.BoolVar(&opts.Verbose, "v", false, "Verbose diagnostics")
	flag.BoolVar(&opts.Trace, "trace", false, "Per-packet trace logging (very noisy)")
	flag.BoolVar(&opts.Version, "version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Decodes Velodyne HDL-64E data packets into calibrated points.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -calibration hdl64e.yaml -pcap drive.pcap -csv points.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config decoder.json -pcap drive.pcapng -db decode.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -calibration hdl64e.yaml -listen :2368 -db live.db\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -calibration hdl64e.yaml -pcap drive.pcap -plot-dir plots -chart cloud.html\n", os.Args[0])
	}

	flag.Parse()
	return opts
}

// setupLogging routes every package's ops stream to w, and diag/trace when
// requested.
func setupLogging(opts Options, w io.Writer) {
	var diag, trace io.Writer
	if opts.Verbose || opts.Trace {
		diag = w
	}
	if opts.Trace {
		trace = w
	}
	velodyne.SetLogWriters(w, diag, trace)
	calibration.SetLogWriters(w, diag, trace)
	network.SetLogWriters(w, diag, trace)
	lidardb.SetLogWriters(w, diag, trace)
}

func loadConfig(opts Options) (*config.DecoderConfig, error) {
	if opts.ConfigFile == "" {
		return config.DefaultDecoderConfig(), nil
	}
	return config.LoadDecoderConfig(opts.ConfigFile)
}

// run wires config, calibration, decoder and sinks, then drains the source.
func run(ctx context.Context, opts Options, logOut io.Writer) error {
	setupLogging(opts, logOut)
	log.New(logOut, "", log.LstdFlags).Print(version.String("velodyne-decode"))

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	calibrationFile := cfg.GetCalibrationFile()
	if opts.Calibration != "" {
		calibrationFile = opts.Calibration
	}
	if calibrationFile == "" {
		return fmt.Errorf("no calibration file given (use -calibration or calibration_file in config)")
	}
	table, err := calibration.LoadFile(calibrationFile)
	if err != nil {
		return fmt.Errorf("failed to load calibration: %w", err)
	}

	decoder, err := velodyne.NewDecoder(table, cfg.Window(), velodyne.WithTwoPointReference(cfg.TwoPointReference()))
	if err != nil {
		return err
	}

	var sinks multiSink

	var csvOut *csvSink
	if opts.CSVPath != "" {
		csvOut, err = newCSVSink(opts.CSVPath)
		if err != nil {
			return err
		}
		defer func() {
			if csvOut != nil {
				csvOut.Close()
			}
		}()
		sinks = append(sinks, csvOut)
	}

	var session *lidardb.Session
	if opts.DBPath != "" {
		db, err := lidardb.Open(opts.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		source := opts.PCAPFile
		if source == "" {
			source = "udp://" + opts.Listen
		}
		session, err = db.StartSession(source, calibrationFile)
		if err != nil {
			return err
		}
		sinks = append(sinks, session)
	}

	var plots *monitor.CloudPlotter
	if opts.PlotDir != "" || opts.ChartPath != "" {
		plots = monitor.NewCloudPlotter(monitor.DEFAULT_MAX_SCATTER)
		sinks = append(sinks, plots)
	}

	stats := network.NewPacketStats()
	handlerConfig := network.DecodeHandlerConfig{Stats: stats}
	if len(sinks) > 0 {
		handlerConfig.Sink = sinks
	}
	handler := network.NewDecodeHandler(decoder, handlerConfig)

	udpPort := cfg.GetUDPPort()
	if opts.UDPPort >= 0 {
		udpPort = opts.UDPPort
	}

	var sourceErr error
	if opts.PCAPFile != "" {
		var replay network.ReplayStats
		replay, sourceErr = network.ReadPCAPFile(ctx, opts.PCAPFile, udpPort, handler)
		log.New(logOut, "", log.LstdFlags).Printf("replay: %d frames, %d sensor packets, %d handler errors in %v",
			replay.Frames, replay.Payloads, replay.HandlerErrors, replay.Elapsed)
	} else {
		listener := network.NewUDPListener(network.UDPListenerConfig{
			Address:     opts.Listen,
			RcvBuf:      4 << 20,
			LogInterval: 10 * time.Second,
			Handler:     handler,
			Stats:       stats,
		})
		sourceErr = listener.Start(ctx)
	}

	stats.LogStats()

	if session != nil {
		summary, err := session.Finish()
		if err != nil {
			return err
		}
		log.New(logOut, "", log.LstdFlags).Printf("session %s: %s points, mean range %.2f m, mean intensity %.1f",
			session.ID, network.FormatWithCommas(int64(summary.Points)), summary.MeanDistance, summary.MeanIntensity)
	}

	if plots != nil {
		if err := writeDiagnostics(plots, opts, logOut); err != nil {
			return err
		}
	}

	if csvOut != nil {
		err := csvOut.Close()
		csvOut = nil
		if err != nil {
			return fmt.Errorf("failed to write CSV output: %w", err)
		}
	}

	return sourceErr
}

// writeDiagnostics renders the optional plot directory and chart page. An
// empty run is logged and skipped.
func writeDiagnostics(plots *monitor.CloudPlotter, opts Options, logOut io.Writer) error {
	logger := log.New(logOut, "", log.LstdFlags)

	if opts.PlotDir != "" {
		dir := monitor.MakePlotOutputDir(opts.PlotDir, opts.PCAPFile, time.Now())
		n, err := plots.GeneratePlots(dir)
		switch {
		case errors.Is(err, monitor.ErrNoSamples):
			logger.Printf("no points decoded, skipping plots")
		case err != nil:
			return fmt.Errorf("failed to write plots: %w", err)
		default:
			logger.Printf("wrote %d plots to %s", n, dir)
		}
	}

	if opts.ChartPath != "" {
		if plots.SampleCount() == 0 {
			logger.Printf("no points decoded, skipping chart")
			return nil
		}
		f, err := os.Create(opts.ChartPath)
		if err != nil {
			return fmt.Errorf("failed to create chart: %w", err)
		}
		if err := plots.RenderChart(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
	}
	return nil
}
