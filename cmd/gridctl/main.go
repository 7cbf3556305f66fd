// Command gridctl reads, edits and writes the configuration of 16n and 8mu
// family MIDI controllers.
//
// Usage:
//
//	gridctl <command> [flags] [args]
//
// Commands:
//
//	devices  List the known controllers and their capabilities
//	ports    List the MIDI ports of the system
//	decode   Decode a config dump (hex or raw SysEx) to JSON
//	encode   Encode a JSON configuration to a SysEx update message
//	diff     Compare two JSON configurations
//	log      View or summarize a protocol log file
//	shell    Connect to a controller and edit it interactively
//
// Commands that talk to the catalog or a device accept -config with a YAML
// file:
//
//	port: 8mu
//	log_level: debug
//	log_format: text
//	protocol_log: /var/tmp/gridctl/session.glog
//	catalog: ./devices.yaml
//	unknown_device_fallback: false
//	request_timeout: 5s
//
// Examples:
//
//	# Decode a dump captured with a MIDI monitor
//	gridctl decode dump.syx > preset.json
//
//	# Produce the USB options update for a preset
//	gridctl encode -part usb preset.json
//
//	# Edit a connected 8mu, logging protocol traffic
//	gridctl shell -port 8mu -protocol-log session.glog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/gridctl/gridctl-go/cmd/gridctl/commands"
	"github.com/gridctl/gridctl-go/cmd/gridctl/interactive"
	"github.com/gridctl/gridctl-go/pkg/session"
	"github.com/gridctl/gridctl-go/pkg/transport"
)

const usage = `gridctl - 16n and 8mu controller configuration tool

Usage:
  gridctl <command> [flags] [args]

Commands:
  devices  List the known controllers and their capabilities
  ports    List the MIDI ports of the system
  decode   Decode a config dump (hex or raw SysEx) to JSON
  encode   Encode a JSON configuration to a SysEx update message
  diff     Compare two JSON configurations
  log      View or summarize a protocol log file
  shell    Connect to a controller and edit it interactively

Use "gridctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "devices":
		runDevices(args)
	case "ports":
		runPorts(args)
	case "decode":
		runDecode(args)
	case "encode":
		runEncode(args)
	case "diff":
		runDiff(args)
	case "log":
		runLog(args)
	case "shell":
		runShell(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func newFlagSet(name, synopsis, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "gridctl %s - %s\n\nUsage:\n  gridctl %s [flags] %s\n\nFlags:\n",
			name, synopsis, name, args)
		fs.PrintDefaults()
	}
	return fs
}

// openInput opens a file argument; "-" reads stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func runDevices(args []string) {
	fs := newFlagSet("devices", "List the known controllers", "")
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := cf.load()
	if err != nil {
		fatal(err)
	}
	tr, err := cfg.NewTranslator(cfg.NewLogger(os.Stderr))
	if err != nil {
		fatal(err)
	}
	if err := commands.RunDevices(tr.Catalog(), os.Stdout); err != nil {
		fatal(err)
	}
}

func runPorts(args []string) {
	fs := newFlagSet("ports", "List MIDI ports", "")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	defer midi.CloseDriver()

	ins, outs := transport.PortNames()
	fmt.Println("Inputs:")
	for _, p := range ins {
		fmt.Printf("  %s\n", p)
	}
	fmt.Println("Outputs:")
	for _, p := range outs {
		fmt.Printf("  %s\n", p)
	}
}

func runDecode(args []string) {
	fs := newFlagSet("decode", "Decode a config dump to JSON", "<dump|->")
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: input file required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := cf.load()
	if err != nil {
		fatal(err)
	}
	tr, err := cfg.NewTranslator(cfg.NewLogger(os.Stderr))
	if err != nil {
		fatal(err)
	}
	in, err := openInput(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer in.Close()

	if err := commands.RunDecode(tr, in, os.Stdout); err != nil {
		fatal(err)
	}
}

func runEncode(args []string) {
	fs := newFlagSet("encode", "Encode a JSON configuration", "<file.json|->")
	cf := addCommonFlags(fs)
	part := fs.String("part", "all", "Message to produce: all, device, usb, trs")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: input file required")
		fs.Usage()
		os.Exit(1)
	}

	p, err := commands.ParsePart(*part)
	if err != nil {
		fatal(err)
	}
	cfg, err := cf.load()
	if err != nil {
		fatal(err)
	}
	tr, err := cfg.NewTranslator(cfg.NewLogger(os.Stderr))
	if err != nil {
		fatal(err)
	}
	in, err := openInput(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer in.Close()

	if err := commands.RunEncode(tr, in, p, os.Stdout); err != nil {
		fatal(err)
	}
}

func runDiff(args []string) {
	fs := newFlagSet("diff", "Compare two JSON configurations", "<a.json> <b.json>")
	cf := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Error: two files required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := cf.load()
	if err != nil {
		fatal(err)
	}
	tr, err := cfg.NewTranslator(cfg.NewLogger(os.Stderr))
	if err != nil {
		fatal(err)
	}
	a, err := os.Open(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer a.Close()
	b, err := os.Open(fs.Arg(1))
	if err != nil {
		fatal(err)
	}
	defer b.Close()

	same, err := commands.RunDiff(tr, a, b, os.Stdout)
	if err != nil {
		fatal(err)
	}
	if !same {
		os.Exit(2)
	}
}

func runLog(args []string) {
	fs := newFlagSet("log", "View a protocol log file", "<file.glog>")
	stats := fs.Bool("stats", false, "Show statistics instead of events")
	var opts commands.LogOptions
	fs.StringVar(&opts.LinkID, "link-id", "", "Filter by link ID")
	fs.StringVar(&opts.Device, "device", "", "Filter by device name")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, sysex, session)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, channel, state, error)")
	fs.StringVar(&opts.Command, "command", "", "Filter by SysEx command (name or 0x byte)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	var err error
	if *stats {
		err = commands.RunStats(fs.Arg(0), os.Stdout)
	} else {
		err = commands.RunLog(fs.Arg(0), opts, os.Stdout)
	}
	if err != nil {
		fatal(err)
	}
}

func runShell(args []string) {
	fs := newFlagSet("shell", "Edit a connected controller", "")
	cf := addCommonFlags(fs)
	port := fs.String("port", "", "MIDI port name to match (overrides config)")
	protoLog := fs.String("protocol-log", "", "Protocol log file (overrides config)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := cf.load()
	if err != nil {
		fatal(err)
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *protoLog != "" {
		cfg.ProtocolLog = *protoLog
	}
	if err := shell(cfg); err != nil {
		fatal(err)
	}
}

func shell(cfg Config) error {
	defer midi.CloseDriver()

	ports, err := transport.OpenPorts(cfg.Port)
	if err != nil {
		return err
	}
	defer ports.Close()

	logger := cfg.NewLogger(os.Stderr)
	tr, err := cfg.NewTranslator(logger)
	if err != nil {
		return err
	}
	link := transport.NewLink(ports, tr, session.NewStore())
	defer link.Close()
	link.SetPortName(ports.Name())

	sh, err := interactive.New(link, tr, cfg.RequestTimeout)
	if err != nil {
		return err
	}

	// Log output goes through readline to avoid interfering with input.
	logger = cfg.NewLogger(sh.Stdout())
	link.SetLogger(logger)
	protoLogger, err := cfg.NewProtocolLogger(logger)
	if err != nil {
		return err
	}
	defer protoLogger.Close()
	link.SetProtocolLogger(protoLogger)

	ports.OnError = func(err error) {
		logger.Warn("MIDI listener error, device likely disconnected", "port", ports.Name(), "err", err)
	}
	stop, err := ports.Listen(link.HandleMessage)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", ports.Name(), err)
	}
	defer stop()
	logger.Info("connected", "port", ports.Name())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sh.Execute(ctx, "get")
	go sh.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
	}

	if link.Store().Dirty() {
		logger.Warn("exiting with unsent edits")
	}
	return nil
}
