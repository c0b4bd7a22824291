package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/models"
)

func layoutCommand() *cli.Command {
	defaults := layout.DefaultOptions()

	return &cli.Command{
		Name:  "layout",
		Usage: "Import a document and print its graph projection with positions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the document JSON file",
				Required: true,
			},
			&cli.FloatFlag{
				Name:  "node-width",
				Usage: "Node footprint width in canvas units",
				Value: defaults.NodeWidth,
			},
			&cli.FloatFlag{
				Name:  "node-height",
				Usage: "Node footprint height in canvas units",
				Value: defaults.NodeHeight,
			},
			&cli.FloatFlag{
				Name:  "h-gap",
				Usage: "Horizontal gap between sibling nodes",
				Value: defaults.HorizontalGap,
			},
			&cli.FloatFlag{
				Name:  "v-gap",
				Usage: "Vertical gap between layers",
				Value: defaults.VerticalGap,
			},
			&cli.IntFlag{
				Name:  "passes",
				Usage: "Crossing-reduction sweep count",
				Value: defaults.OrderingPasses,
			},
		},
		Action: runLayout,
	}
}

func runLayout(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("layout")

	data, err := os.ReadFile(command.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := models.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	opts := layout.DefaultOptions()
	opts.NodeWidth = command.Float("node-width")
	opts.NodeHeight = command.Float("node-height")
	opts.HorizontalGap = command.Float("h-gap")
	opts.VerticalGap = command.Float("v-gap")
	opts.OrderingPasses = int(command.Int("passes"))

	importer, _, err := newImporter(logger, opts)
	if err != nil {
		return err
	}

	graph, err := importer.Import(doc)
	if err != nil {
		return fmt.Errorf("failed to import document: %w", err)
	}

	output, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	fmt.Println(string(output))

	return nil
}
