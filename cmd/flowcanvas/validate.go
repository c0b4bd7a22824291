package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/models"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check a document against the schema and report lint findings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the document JSON file",
				Required: true,
			},
		},
		Action: runValidate,
	}
}

func runValidate(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("validate")

	data, err := os.ReadFile(command.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	violations, err := models.ValidateDocumentBytes(data)
	if err != nil {
		return err
	}

	for _, violation := range violations {
		fmt.Printf("schema: %s\n", violation)
	}

	if len(violations) > 0 {
		return fmt.Errorf("document failed schema validation with %d violation(s)", len(violations))
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

	diagnostics := canvas.Lint(graph, reg)

	errorCount := 0

	for _, diagnostic := range diagnostics {
		location := ""
		if diagnostic.NodeID != "" {
			location = " node=" + diagnostic.NodeID
		}

		if diagnostic.Field != "" {
			location += " field=" + diagnostic.Field
		}

		fmt.Printf("%s [%s]%s: %s\n", diagnostic.Severity, diagnostic.Code, location, diagnostic.Message)

		if diagnostic.Severity == canvas.SeverityError {
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("document has %d lint error(s)", errorCount)
	}

	logger.InfoContext(ctx, "Document is valid",
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"warnings", len(diagnostics)-errorCount)

	return nil
}
