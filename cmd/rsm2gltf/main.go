// rsm2gltf converts RSM model files to glTF 2.0 (.gltf + .bin pairs).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Battlehub0x/glTFast/internal/config"
	"github.com/Battlehub0x/glTFast/internal/convert"
	"github.com/Battlehub0x/glTFast/internal/logger"
	"github.com/Battlehub0x/glTFast/pkg/export"
	"github.com/Battlehub0x/glTFast/pkg/formats"
	"github.com/Battlehub0x/glTFast/pkg/gltf"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if config.WriteConfigRequested() {
		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", filepath.Join(config.ConfigDir(), "rsm2gltf.yaml"))
		return
	}

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.LogFile)
	defer log.Sync()

	input := flag.Arg(0)
	output := flag.Arg(1)
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".gltf"
	}

	if err := run(cfg, log, input, output); err != nil {
		log.Error("conversion failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, input, output string) error {
	rsm, err := formats.ParseRSMFile(input)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", input, err)
	}
	log.Info("parsed model",
		zap.String("file", input),
		zap.String("version", rsm.Version.String()),
		zap.Int("nodes", len(rsm.Nodes)),
		zap.Int("faces", rsm.TotalFaceCount()),
		zap.Int("textures", len(rsm.Textures)))

	exp := export.New(export.Options{
		Logger:    log,
		Workers:   cfg.Export.Workers,
		Generator: cfg.Export.Generator,
		Copyright: cfg.Export.Copyright,
	})

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if err := convert.Scene(rsm, exp, name); err != nil {
		return err
	}

	doc, bin, err := exp.Finalize()
	if err != nil {
		return err
	}

	if err := gltf.Save(doc, bin, output); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	log.Info("wrote glTF",
		zap.String("file", output),
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("accessors", len(doc.Accessors)),
		zap.Int("binaryBytes", len(bin)),
		zap.Int("warnings", len(exp.Warnings())))
	return nil
}

func printUsage() {
	fmt.Println(`rsm2gltf - RSM to glTF 2.0 converter

Usage:
  rsm2gltf [flags] <input.rsm> [output.gltf]

The binary buffer is written next to the output as <output>.bin.

Flags:`)
	flag.PrintDefaults()

	fmt.Println(`
Examples:
  rsm2gltf tree.rsm
  rsm2gltf -workers 4 tree.rsm out/tree.gltf
  rsm2gltf -v -log-file convert.log tree.rsm`)
}
