package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"example.com/c3dkit/internal/c3d"
)

func infoCmd(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("info", stderr)
	in := fs.String("in", "", "input .c3d")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errMissingInput
	}
	_, restore, err := loadSettings(*cfgPath, stderr)
	if err != nil {
		return err
	}
	defer restore()

	a, err := c3d.Open(*in)
	if err != nil {
		return err
	}
	defer a.Close()
	h := a.Header()

	storage := "integer"
	if h.IsFloat() {
		storage = "float"
	}
	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "File\t%s\n", *in)
	fmt.Fprintf(tw, "Processor\t%s\n", a.Processor())
	fmt.Fprintf(tw, "Storage\t%s (scale %g)\n", storage, h.Scale)
	fmt.Fprintf(tw, "Frame rate\t%g Hz\n", h.FrameRate)
	fmt.Fprintf(tw, "Frames\t%d from %d\n", a.FrameCount(), a.FirstFrame())
	fmt.Fprintf(tw, "Points\t%d %s\n", h.PointCount, a.PointUnits())
	fmt.Fprintf(tw, "Analog\t%d channels x %d sub-frames\n", h.AnalogChannels(), h.AnalogSamplesPerFrame())
	fmt.Fprintf(tw, "Parameters\t%d in %d groups\n", a.Parameters().Len(), len(a.Parameters().Groups()))
	if labels, ok := a.PointLabels(); ok {
		fmt.Fprintf(tw, "Point labels\t%s\n", strings.Join(labels, ", "))
	}
	if labels, ok := a.AnalogLabels(); ok {
		fmt.Fprintf(tw, "Analog labels\t%s\n", strings.Join(labels, ", "))
	}
	for _, ev := range h.Events {
		fmt.Fprintf(tw, "Event\t%s at %.3fs\n", ev.Label, ev.Time)
	}
	return tw.Flush()
}

type paramJSON struct {
	Key         string `json:"key"`
	Type        string `json:"type"`
	Dims        []int  `json:"dims,omitempty"`
	Value       any    `json:"value"`
	Description string `json:"description,omitempty"`
	Locked      bool   `json:"locked,omitempty"`
}

func paramsCmd(args []string, stdout, stderr io.Writer) error {
	fs, cfgPath := newFlagSet("params", stderr)
	in := fs.String("in", "", "input .c3d")
	group := fs.String("group", "", "only list this group")
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errMissingInput
	}
	_, restore, err := loadSettings(*cfgPath, stderr)
	if err != nil {
		return err
	}
	defer restore()

	a, err := c3d.Open(*in)
	if err != nil {
		return err
	}
	defer a.Close()

	dict := a.Parameters()
	var params []c3d.Parameter
	if *group != "" {
		if _, ok := dict.Group(*group); !ok {
			return fmt.Errorf("group %q not found", *group)
		}
		params = dict.Params(*group)
	} else {
		for _, key := range dict.Keys() {
			p, _ := dict.Get(key)
			params = append(params, p)
		}
	}

	if *asJSON {
		out := make([]paramJSON, 0, len(params))
		for _, p := range params {
			out = append(out, paramJSON{
				Key:         p.Key(),
				Type:        p.Value.Kind.String(),
				Dims:        p.Value.Dims,
				Value:       p.Value.Any(),
				Description: p.Description,
				Locked:      p.Locked,
			})
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tDIMS\tVALUE\tDESCRIPTION")
	for _, p := range params {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%s\t%s\n", p.Key(), p.Value.Kind, p.Value.Dims, formatValue(p.Value), p.Description)
	}
	return tw.Flush()
}

const maxValueWidth = 60

func formatValue(v c3d.Value) string {
	var s string
	switch v.Kind {
	case c3d.KindChar:
		if strs := v.Strings(); len(strs) > 1 {
			s = strings.Join(strs, ", ")
		} else {
			s = v.String()
		}
	default:
		s = strings.Trim(fmt.Sprint(v.Any()), "[]")
	}
	return truncateRunes(s, maxValueWidth)
}

// truncateRunes shortens s to at most width runes, ending in "...".
func truncateRunes(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-3]) + "..."
}
