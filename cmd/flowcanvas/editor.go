package main

import (
	"fmt"
	"log/slog"

	"github.com/ckpd/flowcanvas/pkg/canvas"
	"github.com/ckpd/flowcanvas/pkg/layout"
	"github.com/ckpd/flowcanvas/pkg/registry"
)

// newImporter builds the registry + layout + importer stack every read-side
// command shares.
func newImporter(logger *slog.Logger, opts layout.Options) (*canvas.Importer, *registry.Registry, error) {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultVariants()

	engine, err := layout.NewEngine(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid layout options: %w", err)
	}

	return canvas.NewImporter(logger, reg, engine), reg, nil
}
