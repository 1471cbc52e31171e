// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/gifctl/internal/attrs"
	"github.com/staranto/gifctl/internal/config"
	"github.com/staranto/gifctl/internal/filters"
)

// Row is one record of a command's result set, keyed by attribute name.
type Row = map[string]interface{}

// DumpExamples renders a table of example command usages.
func DumpExamples(w io.Writer, examples [][2]string) {
	if len(examples) == 0 {
		return
	}

	var rows [][]string
	for _, ex := range examples {
		rows = append(rows, []string{ex[0], ex[1]})
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		Headers("Command", "Description").
		BorderHeader(false).
		Rows(rows...)

	fmt.Fprintln(w, t)
}

// SliceDiceSpit filters, transforms, sorts and renders rows according to the
// command's --filter, --sort, --output, --titles and --color flags.
func SliceDiceSpit(rows []Row, al attrs.AttrList, cmd *cli.Command, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	// Raw skips everything else and dumps the full rows.
	output := cmd.String("output")
	if output == "raw" {
		_, err = w.Write(append(raw, '\n'))
		return err
	}

	dataset := filters.FilterDataset(gjson.ParseBytes(raw), al, cmd.String("filter"))

	for _, row := range dataset {
		for i := range al {
			if al[i].TransformSpec != "" {
				row[al[i].OutputKey] = al[i].Transform(row[al[i].OutputKey])
			}
		}
	}

	SortDataset(dataset, cmd.String("sort"))

	switch output {
	case "json":
		// Hidden attrs were only needed for filtering and sorting.
		doc, err := json.Marshal(visible(dataset, al))
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = w.Write(append(doc, '\n'))
		return err
	case "yaml":
		doc, err := yaml.Marshal(visible(dataset, al))
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(doc)
		return err
	default:
		TableWriter(dataset, al, cmd.Bool("titles"), useColor(cmd, w), w)
		return nil
	}
}

// visible returns dataset with non-included attrs dropped. A nil dataset
// becomes an empty one so json emits [] rather than null.
func visible(dataset []Row, al attrs.AttrList) []Row {
	result := make([]Row, 0, len(dataset))
	for _, row := range dataset {
		out := make(Row, len(row))
		for _, attr := range al {
			if attr.Include {
				out[attr.OutputKey] = row[attr.OutputKey]
			}
		}
		result = append(result, out)
	}
	return result
}

// useColor is true when --color is set and w is a terminal.
func useColor(cmd *cli.Command, w io.Writer) bool {
	if !cmd.Bool("color") {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(
	resultSet []Row,
	al attrs.AttrList,
	titles bool,
	color bool,
	w io.Writer) {

	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(result))
		for _, attr := range al {
			if !attr.Include {
				continue
			}
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	pad, _ := config.GetInt("padding", 0)
	log.Debugf("padding: %v", pad)

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if titles {
		var headers []string
		for _, attr := range al {
			if attr.Include {
				headers = append(headers, attr.OutputKey)
			}
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided. Booleans always print.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if b, ok := value.(bool); ok {
		return strconv.FormatBool(b)
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		// Row numbers are counts and sizes, never fractions.
		return fmt.Sprintf("%.0f", value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
