package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/models"
)

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:  "fmt",
		Usage: "Canonicalize a document: parse, import, export, stable marshal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the document JSON file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Rewrite the file in place instead of printing",
			},
		},
		Action: runFmt,
	}
}

func runFmt(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("fmt")

	filePath := command.String("file")

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := models.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	importer, reg, err := newImporter(logger, layout.DefaultOptions())
	if err != nil {
		return err
	}

	graph, err := importer.Import(doc)
	if err != nil {
		return fmt.Errorf("failed to import document: %w", err)
	}

	exported, err := canvas.NewExporter(logger, reg).Export(graph)
	if err != nil {
		return fmt.Errorf("failed to export document: %w", err)
	}

	compact, err := json.Marshal(exported)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	var formatted bytes.Buffer

	err = json.Indent(&formatted, compact, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to indent document: %w", err)
	}

	formatted.WriteByte('\n')

	if command.Bool("write") {
		return os.WriteFile(filePath, formatted.Bytes(), 0600)
	}

	fmt.Print(formatted.String())

	return nil
}
