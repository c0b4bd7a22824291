package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/ckpd/flowcanvas/pkg/cmd"
	"github.com/ckpd/flowcanvas/pkg/log"
	"github.com/ckpd/flowcanvas/pkg/models"
	"github.com/ckpd/flowcanvas/pkg/persistence"
)

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "database-url",
		Usage:    "Database connection URL (file://, postgres://, redis://)",
		Required: true,
		Sources:  cli.EnvVars("DATABASE_URL"),
	}
}

func storeCommand() *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Manage stored document records",
		Commands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Save a document file as a record",
				Flags: []cli.Flag{
					databaseURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the document JSON file",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "Record ID (generated when omitted)",
					},
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Record display name",
						Required: true,
					},
				},
				Action: runStoreSave,
			},
			{
				Name:  "get",
				Usage: "Print a stored record as JSON",
				Flags: []cli.Flag{
					databaseURLFlag(),
					&cli.StringFlag{Name: "id", Usage: "Record ID", Required: true},
				},
				Action: runStoreGet,
			},
			{
				Name:   "list",
				Usage:  "List stored records",
				Flags:  []cli.Flag{databaseURLFlag()},
				Action: runStoreList,
			},
			{
				Name:  "delete",
				Usage: "Delete a stored record",
				Flags: []cli.Flag{
					databaseURLFlag(),
					&cli.StringFlag{Name: "id", Usage: "Record ID", Required: true},
				},
				Action: runStoreDelete,
			},
		},
	}
}

func openStore(ctx context.Context, command *cli.Command) (persistence.Persistence, error) {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("store")

	return cmd.NewPersistence(ctx, logger, command.String("database-url"))
}

func closeStore(ctx context.Context, store persistence.Persistence) {
	err := store.Close(ctx)
	if err != nil {
		log.WithModule("store").ErrorContext(ctx, "Failed to close persistence", "error", err)
	}
}

func runStoreSave(ctx context.Context, command *cli.Command) error {
	store, err := openStore(ctx, command)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store)

	data, err := os.ReadFile(command.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := models.ParseDocument(data)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	id := command.String("id")
	if id == "" {
		id = uuid.New().String()
	}

	record := &models.DocumentRecord{
		ID:         id,
		Name:       command.String("name"),
		Definition: doc,
	}

	if existing, err := store.DocumentByID(ctx, id); err == nil && existing != nil {
		record.CreatedAt = existing.CreatedAt
		record.Metadata = existing.Metadata
	}

	err = store.SaveDocument(ctx, record)
	if err != nil {
		return err
	}

	fmt.Println(record.ID)

	return nil
}

func runStoreGet(ctx context.Context, command *cli.Command) error {
	store, err := openStore(ctx, command)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store)

	id := command.String("id")

	record, err := store.DocumentByID(ctx, id)
	if err != nil {
		return err
	}

	if record == nil {
		return persistence.NewStoreError("get", id, persistence.ErrDocumentNotFound)
	}

	output, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	fmt.Println(string(output))

	return nil
}

func runStoreList(ctx context.Context, command *cli.Command) error {
	store, err := openStore(ctx, command)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store)

	records, err := store.Documents(ctx)
	if err != nil {
		return err
	}

	for _, record := range records {
		fmt.Printf("%s\t%s\t%s\n", record.ID, record.UpdatedAt.Format("2006-01-02 15:04:05"), record.Name)
	}

	return nil
}

func runStoreDelete(ctx context.Context, command *cli.Command) error {
	store, err := openStore(ctx, command)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store)

	return store.DeleteDocument(ctx, command.String("id"))
}
