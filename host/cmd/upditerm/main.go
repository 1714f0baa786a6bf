// upditerm connects the console to a virtual UART on an AVR via UPDI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/golang/glog"

	"upditerm/host/config"
	"upditerm/host/remote"
	"upditerm/host/serial"
	"upditerm/host/shell"
	"upditerm/host/sim"
	"upditerm/host/term"
	"upditerm/host/updi"
	"upditerm/protocol"
)

// endpoint is what the terminal and shell drive: real hardware or the simulator
type endpoint interface {
	term.Endpoint
	Close() error
}

func main() {
	// glog owns the standard flag set; log to stderr unless told otherwise
	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse(nil)

	opts, err := parseArgs(os.Args[1:], os.Getenv(envFlags), os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if opts.verbosity > 0 {
		flag.Set("v", strconv.Itoa(opts.verbosity))
	}

	err = run(opts)
	glog.Flush()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	if opts.version {
		fmt.Println(protocol.Version)
		return nil
	}

	cfg, err := opts.resolve()
	if err != nil {
		return err
	}
	variant, err := protocol.ParseVariant(cfg.Variant)
	if err != nil {
		return err
	}
	if cfg.Port == "" && !cfg.Sim {
		// Use the first available serial port as default
		if cfg.Port, err = serial.DefaultDevice(); err != nil {
			return fmt.Errorf("no default port: %w", err)
		}
	}

	switch {
	case opts.info:
		return showSIB(cfg)
	case opts.shell:
		return runShell(cfg, variant)
	}
	return runTerminal(cfg, variant)
}

func openLink(cfg *config.Config) (*updi.Link, error) {
	glog.V(1).Infof("opening %s at %d baud (%s)", cfg.Port, cfg.Baud, cfg.Backend)
	return updi.Open(cfg.Port, cfg.Baud, serial.Backend(cfg.Backend), updi.Options{Trace: cfg.Trace})
}

func showSIB(cfg *config.Config) error {
	if cfg.Sim {
		return errors.New("the simulator has no SIB")
	}
	link, err := openLink(cfg)
	if err != nil {
		return err
	}
	defer link.Close()

	sib, err := link.SIB()
	if err != nil {
		return err
	}
	fmt.Println(sib)
	return nil
}

func runShell(cfg *config.Config, variant protocol.Variant) error {
	var dev shell.Device
	if cfg.Sim {
		target, err := sim.Open(variant)
		if err != nil {
			return err
		}
		defer target.Close()
		dev = target
	} else {
		link, err := openLink(cfg)
		if err != nil {
			return err
		}
		defer link.Close()
		dev = link
	}

	sh, err := shell.New(dev, variant)
	if err != nil {
		return err
	}
	return sh.Run()
}

func openEndpoint(cfg *config.Config, variant protocol.Variant) (endpoint, error) {
	if cfg.Sim {
		target, err := sim.Open(variant)
		if err != nil {
			return nil, err
		}
		if cfg.Reset {
			if err := target.Reset(); err != nil {
				target.Close()
				return nil, err
			}
		}
		return target, nil
	}

	link, err := openLink(cfg)
	if err != nil {
		return nil, err
	}
	port, err := updi.NewVirtualPort(link, variant, cfg.Reset)
	if err != nil {
		link.Close()
		return nil, err
	}
	return port, nil
}

func runTerminal(cfg *config.Config, variant protocol.Variant) error {
	interactive := term.IsTerminal(os.Stdin)
	escape := term.NoEscape
	if interactive {
		escape = cfg.EscapeChar()
	}

	var logFile io.Writer
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		defer f.Close()
		logFile = f
	}

	ep, err := openEndpoint(cfg, variant)
	if err != nil {
		return err
	}
	defer ep.Close()

	console, err := term.NewConsole(os.Stdin, os.Stdout, interactive && !cfg.NoKeyMap)
	if err != nil {
		return err
	}
	defer console.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var mirror term.Mirror
	if cfg.MQTT != "" || cfg.Listen != "" {
		hub := remote.NewHub(remote.DefaultInputSize)
		mirror = hub
		if cfg.MQTT != "" {
			m, err := remote.DialMQTT(cfg.MQTT, hub)
			if err != nil {
				return fmt.Errorf("mqtt: %w", err)
			}
			defer m.Close()
		}
		if cfg.Listen != "" {
			go func() {
				if err := remote.ListenAndServe(ctx, cfg.Listen, hub); err != nil {
					glog.Errorf("websocket: %v", err)
				}
			}()
		}
	}

	if interactive && !cfg.Quiet {
		fmt.Fprintln(os.Stderr, term.HelpLine(escape))
	}

	t := term.NewTerminal(console, console, ep, term.Config{
		Escape: escape,
		Log:    logFile,
		Mirror: mirror,
	})
	return t.Run(ctx)
}
