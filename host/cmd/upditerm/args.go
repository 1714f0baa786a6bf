package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/google/shlex"

	"upditerm/host/config"
	"upditerm/host/term"
)

// envFlags names the environment variable holding default arguments
const envFlags = "UPDITERM_FLAGS"

// options are the parsed command line
type options struct {
	escape     int
	logFile    string
	noKeyMap   bool
	quiet      bool
	reset      bool
	info       bool
	trace      bool
	version    bool
	variant    string
	backend    string
	configFile string
	sim        bool
	shell      bool
	mqtt       string
	listen     string
	verbosity  int

	port string
	baud int

	fs *flag.FlagSet
}

func newFlagSet(o *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("upditerm", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: upditerm [flags] [port] [baudrate]\n\n")
		fmt.Fprintf(output, "Connect to a virtual UART on an AVR via UPDI\n\n")
		fs.PrintDefaults()
	}

	fs.IntVar(&o.escape, "e", term.DefaultEscape, "escape character (ascii 0..31)")
	fs.StringVar(&o.logFile, "l", "", "append output to a log `file`")
	fs.BoolVar(&o.noKeyMap, "k", false, "disable keyboard mappings CR->LF and DEL->BS")
	fs.BoolVar(&o.quiet, "q", false, "suppress the initial line showing the escape sequences")
	fs.BoolVar(&o.reset, "r", false, "reset the AVR device before connecting")
	fs.BoolVar(&o.info, "i", false, "show the AVR System Information Block (SIB)")
	fs.BoolVar(&o.trace, "t", false, "enable a trace of the serial communication")
	fs.BoolVar(&o.version, "v", false, "show the version number")
	fs.StringVar(&o.variant, "variant", "", "virtual UART register layout: independent, shared or ocd")
	fs.StringVar(&o.backend, "backend", "", "serial driver: bugst or tarm")
	fs.StringVar(&o.configFile, "config", "", "read settings from a JSON `file`")
	fs.BoolVar(&o.sim, "sim", false, "run the demo firmware in-process instead of using a port")
	fs.BoolVar(&o.shell, "shell", false, "start the register shell instead of the terminal")
	fs.StringVar(&o.mqtt, "mqtt", "", "mirror the session to an MQTT broker `url`")
	fs.StringVar(&o.listen, "listen", "", "serve the session over WebSocket on `addr`")
	fs.IntVar(&o.verbosity, "verbosity", 0, "log verbosity")
	return fs
}

// parseArgs parses env (the contents of UPDITERM_FLAGS) followed by args
func parseArgs(args []string, env string, output io.Writer) (*options, error) {
	envArgs, err := shlex.Split(env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", envFlags, err)
	}

	o := &options{}
	o.fs = newFlagSet(o, output)
	if err := o.fs.Parse(append(envArgs, args...)); err != nil {
		return nil, err
	}

	rest := o.fs.Args()
	if len(rest) > 2 {
		return nil, fmt.Errorf("unexpected argument %q", rest[2])
	}
	if len(rest) > 0 {
		o.port = rest[0]
	}
	if len(rest) > 1 {
		if o.baud, err = strconv.Atoi(rest[1]); err != nil {
			return nil, fmt.Errorf("invalid baudrate %q", rest[1])
		}
	}
	// Also accept a baudrate without a port name
	if n, err := strconv.Atoi(o.port); err == nil && len(rest) == 1 {
		o.baud = n
		o.port = ""
	}
	return o, nil
}

// resolve merges the config file with the flags; explicit flags win
func (o *options) resolve() (*config.Config, error) {
	cfg := config.Default()
	if o.configFile != "" {
		var err error
		if cfg, err = config.LoadFile(o.configFile); err != nil {
			return nil, err
		}
	}

	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "e":
			escape := o.escape
			cfg.Escape = &escape
		case "l":
			cfg.LogFile = o.logFile
		case "k":
			cfg.NoKeyMap = o.noKeyMap
		case "q":
			cfg.Quiet = o.quiet
		case "r":
			cfg.Reset = o.reset
		case "t":
			cfg.Trace = o.trace
		case "variant":
			cfg.Variant = o.variant
		case "backend":
			cfg.Backend = o.backend
		case "sim":
			cfg.Sim = o.sim
		case "mqtt":
			cfg.MQTT = o.mqtt
		case "listen":
			cfg.Listen = o.listen
		}
	})
	if o.port != "" {
		cfg.Port = o.port
	}
	if o.baud != 0 {
		cfg.Baud = o.baud
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
