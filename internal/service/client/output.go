package client

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/oshokin/panel-sentinel/internal/domain/panel"
)

func printBuildings(w io.Writer, buildings []panel.Building) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tCHECK TIME\n")

	for _, b := range buildings {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", b.ID, b.Name, b.CheckTime)
	}

	return tw.Flush()
}

func printDevices(w io.Writer, devices []panel.DeviceInfo) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "ID\tNAME\tSTATE\tIGNORED\n")

	for _, d := range devices {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\n", d.ID, d.Name, d.State, d.IsIgnored)
	}

	return tw.Flush()
}
