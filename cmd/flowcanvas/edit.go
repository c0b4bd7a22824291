package main

import (
	"context"
	"fmt"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/cmd"
	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/otelhelper"
	"github.com/ckpd/flowcanvas/pkg/session"
)

func editCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Apply scripted edits to a stored document and save it back",
		Description: "Opens an editing session on a stored record, applies the " +
			"requested edits (renames, then start change, then connections, then " +
			"deletions) and saves the result.",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.StringFlag{Name: "id", Usage: "Record ID", Required: true},
			&cli.StringSliceFlag{
				Name:  "rename",
				Usage: "Rename a node (old=new), repeatable",
			},
			&cli.StringFlag{
				Name:  "set-start",
				Usage: "Move the start flag to a node",
			},
			&cli.StringSliceFlag{
				Name:  "connect",
				Usage: "Connect two nodes with the source's default label (source=target), repeatable",
			},
			&cli.StringSliceFlag{
				Name:  "delete-node",
				Usage: "Delete a node and its edges, repeatable",
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export spans over OTLP",
				Sources: cli.EnvVars("OTEL_TRACING"),
			},
		},
		Action: runEdit,
	}
}

func runEdit(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("edit")
	ctx = log.IntoContext(ctx, logger)

	var tracer trace.Tracer

	if command.Bool("tracing") {
		var err error

		tracer, err = otelhelper.NewTracer(ctx, "flowcanvas")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}
	defer closeStore(ctx, store)

	bus, err := cmd.NewEventBus(logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	importer, reg, err := newImporter(logger, layout.DefaultOptions())
	if err != nil {
		return err
	}

	manager := session.NewManager(logger, store, bus, reg,
		importer, canvas.NewExporter(logger, reg), tracer)

	sess, err := manager.OpenSession(ctx, command.String("id"))
	if err != nil {
		return err
	}

	err = applyEdits(ctx, sess, command)
	if err != nil {
		return err
	}

	err = sess.Save(ctx)
	if err != nil {
		return err
	}

	return manager.CloseSession(sess.ID)
}

func applyEdits(ctx context.Context, sess *session.Session, command *cli.Command) error {
	for _, pair := range command.StringSlice("rename") {
		oldID, newID, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --rename %q, expected old=new", pair)
		}

		if err := sess.RenameNode(ctx, oldID, newID); err != nil {
			return err
		}
	}

	if start := command.String("set-start"); start != "" {
		if err := sess.SetStart(ctx, start); err != nil {
			return err
		}
	}

	for _, pair := range command.StringSlice("connect") {
		source, target, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --connect %q, expected source=target", pair)
		}

		if _, err := sess.Connect(ctx, source, target); err != nil {
			return err
		}
	}

	for _, id := range command.StringSlice("delete-node") {
		if err := sess.DeleteNode(ctx, id); err != nil {
			return err
		}
	}

	return nil
}
