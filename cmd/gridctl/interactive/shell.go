// Package interactive provides the readline shell of gridctl.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/gridctl/gridctl-go/pkg/configuration"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/persistence"
	"github.com/gridctl/gridctl-go/pkg/session"
	"github.com/gridctl/gridctl-go/pkg/transport"
)

// DefaultRequestTimeout bounds the wait for a config dump.
const DefaultRequestTimeout = 5 * time.Second

// Shell handles interactive mode for one connected controller.
type Shell struct {
	link       *transport.Link
	translator *configuration.Translator
	timeout    time.Duration
	out        io.Writer
	rl         *readline.Instance
}

// New creates a shell reading commands from the terminal.
func New(link *transport.Link, translator *configuration.Translator, timeout time.Duration) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gridctl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(link, translator, timeout, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(link *transport.Link, translator *configuration.Translator, timeout time.Duration, out io.Writer) *Shell {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Shell{
		link:       link,
		translator: translator,
		timeout:    timeout,
		out:        out,
	}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("get"),
		readline.PcItem("show", readline.PcItem("current"), readline.PcItem("editing")),
		readline.PcItem("edit"),
		readline.PcItem("set",
			readline.PcItem("ledOn"), readline.PcItem("ledFlash"), readline.PcItem("ledFlashAccel"),
			readline.PcItem("flip"), readline.PcItem("midiThru"), readline.PcItem("i2cLeader"),
			readline.PcItem("faderMin"), readline.PcItem("faderMax"), readline.PcItem("trsMode"),
			readline.PcItem("usb"), readline.PcItem("trs"),
		),
		readline.PcItem("hires", readline.PcItem("usb"), readline.PcItem("trs")),
		readline.PcItem("button", readline.PcItem("usb"), readline.PcItem("trs")),
		readline.PcItem("send"),
		readline.PcItem("discard"),
		readline.PcItem("status"),
		readline.PcItem("export"),
		readline.PcItem("import"),
		readline.PcItem("reset"),
		readline.PcItem("prog"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.Execute(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the shell should
// exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "get", "g":
		err = s.cmdGet(ctx)
	case "show", "s":
		err = s.cmdShow(args)
	case "edit", "e":
		err = s.cmdEdit()
	case "set":
		err = s.cmdSet(args)
	case "hires":
		err = s.cmdHighRes(args)
	case "button":
		err = s.cmdButton(args)
	case "send":
		err = s.cmdSend()
	case "discard":
		s.link.Store().Discard()
		fmt.Fprintln(s.out, "Edit discarded")
	case "status":
		s.cmdStatus()
	case "export":
		err = s.cmdExport(args)
	case "import":
		err = s.cmdImport(args)
	case "reset":
		err = s.cmdReset(args)
	case "prog":
		err = s.cmdProgram(args)
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}

	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
gridctl Commands:
  Device:
    get                               - Request the configuration from the device
    show [current|editing]            - Show a configuration
    status                            - Show link and edit state
    reset confirm                     - Restore the device's factory configuration
    prog <0-127>                      - Send a program change on channel 1

  Editing:
    edit                              - Start editing a copy of the current configuration
    set <field> <value>               - Set ledOn, ledFlash, ledFlashAccel, flip, midiThru,
                                        i2cLeader, faderMin, faderMax or trsMode
    set <usb|trs> <slot> <ch> <cc>    - Bind a control (slots count from 1)
    set <usb|trs> <slot> off          - Unbind a control
    hires <usb|trs> <slot> <on|off>   - Toggle 14-bit output for a control
    button <usb|trs> <n> <ch> <mode> <a> <b> - Set a button record
    send                              - Write the edit to the device
    discard                           - Drop the edit

  Files:
    export <file>                     - Save the edit (or current) configuration as JSON
    import <file>                     - Merge a JSON file into the edit

    help                              - Show this help
    quit                              - Exit`)
}

func (s *Shell) cmdGet(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cfg, err := s.link.RequestConfig(ctx)
	if err != nil {
		if errors.Is(err, transport.ErrTimeout) && s.link.Store().NeedsFactoryReset(time.Now()) {
			fmt.Fprintln(s.out, "The device is not answering. A factory reset ('reset confirm') may help.")
		}
		return err
	}
	s.printConfiguration(cfg)
	return nil
}

func (s *Shell) cmdShow(args []string) error {
	which := "current"
	if len(args) > 0 {
		which = strings.ToLower(args[0])
	}

	var cfg *model.Configuration
	switch which {
	case "current":
		cfg = s.link.Store().Current()
		if cfg == nil {
			return session.ErrNoConfiguration
		}
	case "editing", "edit":
		cfg, _ = s.link.Store().Editing()
		if cfg == nil {
			return session.ErrNotEditing
		}
	default:
		return fmt.Errorf("usage: show [current|editing]")
	}
	s.printConfiguration(cfg)
	return nil
}

func (s *Shell) cmdEdit() error {
	id, err := s.link.Store().BeginEdit()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Editing (edit %s)\n", id[:8])
	return nil
}

func (s *Shell) cmdSet(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: set <field> <value> | set <usb|trs> <slot> <ch> <cc>")
	}
	if bus, ok := parseBus(args[0]); ok {
		return s.setControl(bus, args[1:])
	}
	field, value := args[0], args[1]

	return s.link.Store().UpdateEditing(func(c *model.Configuration) error {
		caps := c.Capabilities
		switch strings.ToLower(field) {
		case "ledflash":
			return setBool(&c.LEDFlash, value)
		case "flip":
			return setBool(&c.ControllerFlip, value)
		case "midithru":
			return setBool(&c.MIDIThru, value)
		case "ledon":
			if !caps.LED {
				return unsupported(field)
			}
			return setBool(&c.LEDOn, value)
		case "ledflashaccel":
			if !caps.LEDFlashAccel {
				return unsupported(field)
			}
			return setBool(&c.LEDFlashAccel, value)
		case "i2cleader":
			if !caps.I2C {
				return unsupported(field)
			}
			return setBool(&c.I2CLeader, value)
		case "fadermin", "fadermax":
			if !caps.FaderCalibration {
				return unsupported(field)
			}
			n, err := parseInt(value, 0, model.MaxFader)
			if err != nil {
				return err
			}
			if strings.EqualFold(field, "fadermin") {
				c.FaderMin = n
			} else {
				c.FaderMax = n
			}
			return c.Validate()
		case "trsmode":
			if !caps.TRSMode {
				return unsupported(field)
			}
			n, err := parseInt(value, 0, 1)
			if err != nil {
				return err
			}
			c.TRSMode = uint8(n)
			return nil
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
	})
}

func (s *Shell) setControl(bus model.Bus, args []string) error {
	return s.link.Store().UpdateEditing(func(c *model.Configuration) error {
		controls := c.Controls(bus)
		slot, err := parseInt(args[0], 1, len(controls))
		if err != nil {
			return fmt.Errorf("slot: %w", err)
		}
		i := slot - 1

		if len(args) == 2 && strings.EqualFold(args[1], "off") {
			controls[i] = nil
			return nil
		}
		if len(args) != 3 {
			return fmt.Errorf("usage: set %s <slot> <ch> <cc> | set %s <slot> off", bus, bus)
		}
		ch, err := parseInt(args[1], 0, 126)
		if err != nil {
			return fmt.Errorf("channel: %w", err)
		}
		cc, err := parseInt(args[2], 0, 126)
		if err != nil {
			return fmt.Errorf("cc: %w", err)
		}

		ctl := &model.Control{Channel: uint8(ch), CC: uint8(cc)}
		if controls[i] != nil {
			ctl.HighResolution = controls[i].HighResolution
		}
		controls[i] = ctl
		return nil
	})
}

func (s *Shell) cmdHighRes(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: hires <usb|trs> <slot> <on|off>")
	}
	bus, ok := parseBus(args[0])
	if !ok {
		return fmt.Errorf("unknown bus: %s", args[0])
	}
	return s.link.Store().UpdateEditing(func(c *model.Configuration) error {
		if !c.Capabilities.HighResolution {
			return unsupported("highResolution")
		}
		controls := c.Controls(bus)
		slot, err := parseInt(args[1], 1, len(controls))
		if err != nil {
			return fmt.Errorf("slot: %w", err)
		}
		ctl := controls[slot-1]
		if ctl == nil {
			return fmt.Errorf("%s control %d is unbound", bus, slot)
		}
		return setBool(&ctl.HighResolution, args[2])
	})
}

func (s *Shell) cmdButton(args []string) error {
	if len(args) != 6 {
		return fmt.Errorf("usage: button <usb|trs> <n> <ch> <mode> <a> <b>")
	}
	bus, ok := parseBus(args[0])
	if !ok {
		return fmt.Errorf("unknown bus: %s", args[0])
	}
	vals := make([]int, 5)
	limits := []int{model.MaxButtons, 126, 1, 127, 127}
	for i := range vals {
		lo := 0
		if i == 0 {
			lo = 1
		}
		n, err := parseInt(args[i+1], lo, limits[i])
		if err != nil {
			return err
		}
		vals[i] = n
	}

	return s.link.Store().UpdateEditing(func(c *model.Configuration) error {
		if !c.Capabilities.Buttons {
			return unsupported("buttons")
		}
		b := &model.ButtonControl{
			Channel: uint8(vals[1]),
			Mode:    model.ButtonMode(vals[2]),
			ParamA:  uint8(vals[3]),
			ParamB:  uint8(vals[4]),
			Record:  vals[0] - 1,
		}
		buttons := c.Buttons(bus)
		replaced := false
		for i, r := range model.PlaceButtons(buttons) {
			if r == b.Record {
				buttons[i] = b
				replaced = true
			}
		}
		if !replaced {
			buttons = append(buttons, b)
		}
		if bus == model.BusTRS {
			c.TRSButtons = buttons
		} else {
			c.USBButtons = buttons
		}
		return nil
	})
}

func (s *Shell) cmdSend() error {
	if err := s.link.SendEdit(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Configuration sent")
	return nil
}

func (s *Shell) cmdStatus() {
	store := s.link.Store()
	fmt.Fprintf(s.out, "Link: %s\n", s.link.ID())
	cur := store.Current()
	if cur == nil {
		fmt.Fprintln(s.out, "Configuration: none (use 'get')")
		return
	}
	fmt.Fprintf(s.out, "Configuration: %s firmware %s\n", s.deviceName(cur.DeviceID), cur.FirmwareVersion)
	if editing, id := store.Editing(); editing != nil {
		state := "unchanged"
		if store.Dirty() {
			state = "modified"
		}
		fmt.Fprintf(s.out, "Edit: %s (%s)\n", id[:8], state)
	} else {
		fmt.Fprintln(s.out, "Edit: none")
	}
}

func (s *Shell) cmdExport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <file>")
	}
	cfg, _ := s.link.Store().Editing()
	if cfg == nil {
		cfg = s.link.Store().Current()
	}
	if cfg == nil {
		return session.ErrNoConfiguration
	}
	d, err := s.translator.Descriptor(cfg.DeviceID)
	if err != nil {
		return err
	}

	store := persistence.NewFileStore(args[0])
	if err := store.Save(persistence.Export(cfg, d)); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", store.Path())
	return nil
}

func (s *Shell) cmdImport(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: import <file>")
	}
	doc, err := persistence.NewFileStore(args[0]).Load()
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%s does not exist", args[0])
	}

	store := s.link.Store()
	if editing, _ := store.Editing(); editing == nil {
		if _, err := store.BeginEdit(); err != nil {
			return err
		}
	}
	if err := store.UpdateEditing(func(c *model.Configuration) error {
		return persistence.Merge(c, doc)
	}); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Imported %s into the edit; 'send' to write it\n", args[0])
	return nil
}

func (s *Shell) cmdReset(args []string) error {
	if len(args) != 1 || args[0] != "confirm" {
		return fmt.Errorf("factory reset erases the device configuration; run 'reset confirm'")
	}
	if err := s.link.FactoryReset(); err != nil {
		return err
	}
	s.link.Store().Disconnect()
	fmt.Fprintln(s.out, "Factory reset sent; use 'get' to read the new configuration")
	return nil
}

func (s *Shell) cmdProgram(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: prog <0-127>")
	}
	n, err := parseInt(args[0], 0, 127)
	if err != nil {
		return err
	}
	return s.link.SendProgramChange(uint8(n))
}

func (s *Shell) deviceName(id uint8) string {
	d, err := s.translator.Descriptor(id)
	if err != nil {
		return fmt.Sprintf("device %d", id)
	}
	return d.Name
}

func parseBus(s string) (model.Bus, bool) {
	switch strings.ToLower(s) {
	case "usb":
		return model.BusUSB, true
	case "trs":
		return model.BusTRS, true
	}
	return 0, false
}

func parseInt(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%d out of range %d-%d", n, lo, hi)
	}
	return n, nil
}

func setBool(dst *bool, s string) error {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		*dst = true
	case "off", "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid value: %s (use on or off)", s)
	}
	return nil
}

func unsupported(field string) error {
	return fmt.Errorf("%w: %s", persistence.ErrUnsupportedField, field)
}
