// Package main is the niftisplit CLI.
package main

import (
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"niftisplit/pkg/config"
	"niftisplit/pkg/nifti"
	"niftisplit/pkg/splitter"
)

const (
	// Flags.
	flagInput  = "input"
	flagOutput = "output"
	flagLabels = "labels"
	flagConfig = "config"
	flagDebug  = "debug"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "niftisplit",
		Usage: "split a labeled NIfTI atlas into one volume per region of interest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("niftisplit")
			} else {
				logger = golog.NewDevelopmentLogger("niftisplit")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "split",
				Usage: "write one masked volume per atlas label",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Usage:    "labeled NIfTI volume to split",
						Required: true,
					},
					&cli.StringFlag{
						Name:     flagOutput,
						Aliases:  []string{"o"},
						Usage:    "output base name; files are written as <base>_roi_<label><ext>",
						Required: true,
					},
					&cli.Float64SliceFlag{
						Name:  flagLabels,
						Usage: "restrict the split to these label values",
					},
				},
				Action: func(c *cli.Context) error {
					return splitAction(c, &logger)
				},
			},
			{
				Name:      "info",
				Usage:     "print a header summary of a NIfTI volume",
				ArgsUsage: "<file>",
				Action:    infoAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func splitAction(c *cli.Context, logger *golog.Logger) error {
	cfg, err := config.LoadConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	if !cfg.Output.Verbose && !c.Bool(flagDebug) {
		*logger = zap.NewNop().Sugar()
	}

	var labels []float64
	if c.IsSet(flagLabels) {
		labels = c.Float64Slice(flagLabels)
	}

	params := &splitter.Params{
		InputPath:  c.String(flagInput),
		OutputBase: c.String(flagOutput),
		Labels:     labels,
		Background: cfg.Split.Background,
		PadWidth:   cfg.Split.PadWidth,
		GzipLevel:  cfg.Output.GzipLevel,
	}
	s := splitter.New(params, *logger)
	if err := s.Process(); err != nil {
		return err
	}

	results := s.Results()
	for _, path := range results.Files {
		fmt.Println(path)
	}
	return nil
}

func infoAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("missing input file argument", 1)
	}

	img, err := nifti.Load(path)
	if err != nil {
		return err
	}

	hdr := img.Hdr
	fmt.Printf("file:       %s\n", path)
	fmt.Printf("byte order: %v\n", img.ByteOrder)
	fmt.Printf("dim:        %v\n", img.Dim)
	fmt.Printf("datatype:   %d (%d bits/voxel)\n", hdr.Datatype, hdr.Bitpix)
	fmt.Printf("pixdim:     %v\n", hdr.Pixdim[1:4])
	fmt.Printf("vox_offset: %d\n", int(hdr.VoxOffset))
	fmt.Printf("scl_slope:  %g\n", hdr.SclSlope)
	fmt.Printf("scl_inter:  %g\n", hdr.SclInter)
	fmt.Printf("qform/sform codes: %d/%d\n", hdr.QformCode, hdr.SformCode)
	fmt.Printf("affine:\n%v\n", mat.Formatted(img.Affine(), mat.Prefix("")))
	return nil
}
