package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/df07/go-restir-passes/pkg/graph"
	"github.com/df07/go-restir-passes/pkg/passes"
	"github.com/df07/go-restir-passes/pkg/script"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the registered pass types.
func ListPasses(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	writePassTable(os.Stdout, passes.NewRegistry())
	return nil
}

// Show the compiled execution order and resources of a graph.
func ShowGraph(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	name := ctx.String("graph")
	if ctx.NArg() > 0 {
		name = ctx.Args().First()
	}
	g, s, err := buildGraph(name, ctx.Int("instances"))
	if err != nil {
		logger.Error(err)
		return err
	}
	if err := g.Compile(graph.Dim{Width: ctx.Int("width"), Height: ctx.Int("height")}); err != nil {
		logger.Error(err)
		return err
	}
	writeGraphTable(os.Stdout, g)

	if ctx.Bool("json") {
		return script.FromGraph(g).Encode(os.Stdout)
	}
	if len(s.CaptureFrames) > 0 {
		fmt.Fprintf(os.Stdout, "capture frames: %v\n", s.CaptureFrames)
	}
	return nil
}

func writePassTable(w io.Writer, reg *graph.Registry) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{"Pass", "Description"})
	for _, info := range reg.Infos() {
		table.Append([]string{info.Type, info.Description})
	}
	table.Render()
}

func writeGraphTable(w io.Writer, g *graph.Graph) {
	order := tablewriter.NewWriter(w)
	order.SetAutoFormatHeaders(false)
	order.SetHeader([]string{"#", "Pass", "Type"})
	for i, name := range g.Order() {
		order.Append([]string{fmt.Sprintf("%d", i), name, g.PassType(name)})
	}
	order.Render()

	resources := tablewriter.NewWriter(w)
	resources.SetAutoFormatHeaders(false)
	resources.SetAutoWrapText(false)
	resources.SetAlignment(tablewriter.ALIGN_LEFT)
	resources.SetHeader([]string{"Resource", "Format", "Consumers", "Graph output"})
	for _, r := range g.Resources() {
		output := ""
		if r.IsOutput {
			output = "yes"
		}
		resources.Append([]string{r.Name, r.Format.String(), strings.Join(r.Consumers, ", "), output})
	}
	resources.SetFooter([]string{"", "", "TOTAL", fmt.Sprintf("%d", len(g.Resources()))})
	resources.Render()
}
