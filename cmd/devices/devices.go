package devices

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/remoteaudio/internal/audiocore"
	"github.com/tphakala/remoteaudio/internal/audiocore/remote"
	"github.com/tphakala/remoteaudio/internal/conf"
)

// Report lists the devices of a backend.
type Report struct {
	Backend string              `json:"backend" yaml:"backend"`
	Outputs []*audiocore.Device `json:"outputs" yaml:"outputs"`
	Inputs  []*audiocore.Device `json:"inputs" yaml:"inputs"`
}

// Command creates the devices command.
func Command(settings *conf.Settings) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the virtual devices and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// listing needs no heartbeat channel
			b := remote.New(remote.Config{})
			defer func() { _ = b.Close() }()

			report, release, err := collect(b)
			if err != nil {
				return err
			}
			defer release()
			return write(cmd.OutOrStdout(), report, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

// collect references every device of b. release drops the references.
func collect(b audiocore.Backend) (report Report, release func(), err error) {
	report.Backend = b.Name()
	var held []*audiocore.Device
	release = func() {
		for _, d := range held {
			d.Unref()
		}
	}

	for i := range b.OutputDeviceCount() {
		d, err := b.OutputDevice(i)
		if err != nil {
			release()
			return Report{}, func() {}, err
		}
		held = append(held, d)
		report.Outputs = append(report.Outputs, d)
	}
	for i := range b.InputDeviceCount() {
		d, err := b.InputDevice(i)
		if err != nil {
			release()
			return Report{}, func() {}, err
		}
		held = append(held, d)
		report.Inputs = append(report.Inputs, d)
	}
	return report, release, nil
}

func write(w io.Writer, report Report, output string) error {
	switch strings.ToLower(output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return writeText(w, report)
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func writeText(w io.Writer, report Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Backend:\t%s\n", report.Backend)
	for _, d := range append(append([]*audiocore.Device{}, report.Outputs...), report.Inputs...) {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "%s (%s)\t%s\n", d.Name, d.Aim, d.ID)
		fmt.Fprintf(tw, "  formats\t%s\n", joinFormats(d.Formats))
		fmt.Fprintf(tw, "  current format\t%s\n", d.CurrentFormat)
		fmt.Fprintf(tw, "  layouts\t%d, current %s\n", len(d.Layouts), d.CurrentLayout.Name)
		for _, r := range d.SampleRates {
			fmt.Fprintf(tw, "  sample rates\t%d - %d Hz, current %d\n", r.Min, r.Max, d.SampleRateCurrent)
		}
		fmt.Fprintf(tw, "  software latency\t%s - %s, current %s\n",
			d.SoftwareLatencyMin, d.SoftwareLatencyMax, d.SoftwareLatencyCurrent)
	}
	return tw.Flush()
}

func joinFormats(formats []audiocore.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return strings.Join(names, " ")
}
