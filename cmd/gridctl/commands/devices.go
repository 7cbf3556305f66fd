package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/gridctl/gridctl-go/pkg/codec"
	"github.com/gridctl/gridctl-go/pkg/device"
)

// RunDevices prints the device catalog as a table.
func RunDevices(c *device.Catalog, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFAMILY\tCONTROLS\tBUTTONS\tLATEST\tCAPABILITIES")
	for _, d := range c.All() {
		latest := d.LatestFirmware
		if latest == "" {
			latest = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			d.ID, d.Name, codec.For(d).Family(), d.ControlCount, d.ButtonCount, latest, formatCapabilities(d))
	}
	return tw.Flush()
}

// formatCapabilities lists the capabilities a device can have, with their
// firmware requirement where one applies.
func formatCapabilities(d *device.Descriptor) string {
	var parts []string
	for name, req := range d.Capabilities {
		switch {
		case req.MinFirmware != nil:
			parts = append(parts, fmt.Sprintf("%s>=%s", name, req.MinFirmware))
		case req.Enabled:
			parts = append(parts, string(name))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
