package commands

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gridctl/gridctl-go/pkg/configuration"
	"github.com/gridctl/gridctl-go/pkg/model"
	"github.com/gridctl/gridctl-go/pkg/persistence"
	"github.com/gridctl/gridctl-go/pkg/sysex"
)

// Part selects which update message encode produces.
type Part string

// Update parts.
const (
	PartAll    Part = "all"
	PartDevice Part = "device"
	PartUSB    Part = "usb"
	PartTRS    Part = "trs"
)

// ParsePart parses a -part flag value.
func ParsePart(s string) (Part, error) {
	switch p := Part(strings.ToLower(s)); p {
	case PartAll, PartDevice, PartUSB, PartTRS:
		return p, nil
	default:
		return "", fmt.Errorf("invalid part: %s (must be all, device, usb, or trs)", s)
	}
}

// ReadFrame reads a SysEx frame given either as raw bytes or as hex text.
// Hex text may contain whitespace, commas and 0x prefixes.
func ReadFrame(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 && data[0] == sysex.Start {
		return data, nil
	}

	text := strings.NewReplacer("0x", "", "0X", "", ",", " ").Replace(string(data))
	raw, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return raw, nil
}

// FormatHex renders bytes as space-separated uppercase hex pairs.
func FormatHex(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", c)
	}
	return sb.String()
}

// RunDecode decodes a config dump and writes it as a JSON document.
func RunDecode(tr *configuration.Translator, r io.Reader, w io.Writer) error {
	frame, err := ReadFrame(r)
	if err != nil {
		return err
	}
	msg, err := sysex.Parse(frame)
	if err != nil {
		return err
	}
	if msg.Command != sysex.CmdConfigDump && msg.Command != sysex.CmdUpdateConfig {
		return fmt.Errorf("%s does not carry a configuration", msg.Command)
	}

	cfg, err := tr.DecodeBody(msg.Body)
	if err != nil {
		return err
	}
	d, err := tr.Descriptor(cfg.DeviceID)
	if err != nil {
		return err
	}
	out, err := persistence.Marshal(persistence.Export(cfg, d))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}

// LoadDocument reads a JSON document and builds the configuration it
// describes. The document must name its device and firmware.
func LoadDocument(tr *configuration.Translator, r io.Reader) (*model.Configuration, error) {
	doc, err := persistence.Decode(r)
	if err != nil {
		return nil, err
	}
	if doc.DeviceID == nil || doc.FirmwareVersion == nil {
		return nil, fmt.Errorf("%w: deviceId and firmwareVersion are required", persistence.ErrInvalidDocument)
	}

	cfg, err := tr.Blank(*doc.DeviceID, *doc.FirmwareVersion)
	if err != nil {
		return nil, err
	}
	if err := persistence.Merge(cfg, doc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateFrame encodes part of cfg as a framed update message.
func UpdateFrame(tr *configuration.Translator, cfg *model.Configuration, part Part) ([]byte, error) {
	var (
		body []byte
		cmd  sysex.Command
		err  error
	)
	switch part {
	case PartDevice:
		cmd = sysex.CmdUpdateDeviceOptions
		body, err = tr.DeviceOptions(cfg)
	case PartUSB:
		cmd = sysex.CmdUpdateUSBOptions
		body, err = tr.USBOptions(cfg)
	case PartTRS:
		cmd = sysex.CmdUpdateTRSOptions
		body, err = tr.TRSOptions(cfg)
	default:
		cmd = sysex.CmdUpdateConfig
		body, err = tr.Encode(cfg)
	}
	if err != nil {
		return nil, err
	}
	return sysex.Update(cmd, body)
}

// RunEncode reads a JSON document and writes the update message as hex.
func RunEncode(tr *configuration.Translator, r io.Reader, part Part, w io.Writer) error {
	cfg, err := LoadDocument(tr, r)
	if err != nil {
		return err
	}
	frame, err := UpdateFrame(tr, cfg, part)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, FormatHex(frame))
	return err
}

// RunDiff compares two JSON documents. It reports whether they program the
// device the same way and lists the document keys that differ.
func RunDiff(tr *configuration.Translator, a, b io.Reader, w io.Writer) (bool, error) {
	ca, err := LoadDocument(tr, a)
	if err != nil {
		return false, fmt.Errorf("first document: %w", err)
	}
	cb, err := LoadDocument(tr, b)
	if err != nil {
		return false, fmt.Errorf("second document: %w", err)
	}

	if model.Equivalent(ca, cb) {
		fmt.Fprintln(w, "equivalent")
		return true, nil
	}

	keys, err := differingKeys(tr, ca, cb)
	if err != nil {
		return false, err
	}
	fmt.Fprintln(w, "different")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", k)
	}
	return false, nil
}

func differingKeys(tr *configuration.Translator, a, b *model.Configuration) ([]string, error) {
	ma, err := documentFields(tr, a)
	if err != nil {
		return nil, err
	}
	mb, err := documentFields(tr, b)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var keys []string
	for _, m := range []map[string]json.RawMessage{ma, mb} {
		for k := range m {
			if seen[k] {
				continue
			}
			seen[k] = true
			if !bytes.Equal(ma[k], mb[k]) {
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func documentFields(tr *configuration.Translator, cfg *model.Configuration) (map[string]json.RawMessage, error) {
	d, err := tr.Descriptor(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(persistence.Export(cfg, d))
	if err != nil {
		return nil, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
