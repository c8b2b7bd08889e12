package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/open-ortho/ceph2dicom/internal/ceph"
	"github.com/open-ortho/ceph2dicom/internal/cephconf"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:     "ceph2dicom",
		Short:   "Convert cephalograms to DICOM Digital X-Ray records",
		Version: version,
		Long: `ceph2dicom embeds a compressed cephalometric radiograph into a
Digital X-Ray Image For Processing record, taking patient, study and
acquisition metadata from a .properties sidecar file next to the image.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newConvertCmd(&verbose))
	root.AddCommand(newPairCmd(&verbose))
	root.AddCommand(newSampleConfigCmd())
	return root
}

func newConvertCmd(verbose *bool) *cobra.Command {
	var (
		configPath string
		outputDir  string
		outputName string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "convert <image>",
		Short: "Convert one cephalogram image to a DICOM record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)
			imagePath := args[0]

			if configPath == "" {
				configPath = cephconf.SidecarFor(imagePath)
			}
			props, err := cephconf.Load(configPath)
			if err != nil {
				return err
			}

			c, err := ceph.New(imagePath, props, ceph.WithLogger(log))
			if err != nil {
				return err
			}
			if err := c.Prepare(); err != nil {
				return err
			}
			path, result, err := c.WriteDCM(ceph.WriteOptions{
				OutputDir:  outputDir,
				OutputName: outputName,
				Strict:     strict,
			})
			if err != nil {
				return err
			}
			if !result.Valid() {
				log.Warn().Msgf("record written with findings: %s", result)
			}
			fmt.Println(path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "sidecar .properties file (default: image path with .properties extension)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "output directory (default: beside the image)")
	cmd.Flags().StringVarP(&outputName, "output-name", "o", "", "output file name (default: image name with .dcm extension)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of warning when validation findings exist")
	return cmd
}

func newPairCmd(verbose *bool) *cobra.Command {
	var (
		pointPath string
		outputDir string
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "pair <lateral-image> <frontal-image>",
		Short: "Convert a lateral/frontal pair into a linked set with a DICOMDIR",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*verbose)

			set, err := ceph.NewSet(args[0], args[1], pointPath, ceph.WithLogger(log))
			if err != nil {
				return err
			}
			if err := set.Prepare(); err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = "."
			}
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}
			files, err := set.Write(outputDir, ceph.WriteOptions{Strict: strict})
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&pointPath, "points", "p", "", "fiducial point .properties file measured on the lateral image")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "output directory (default: current directory)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of warning when validation findings exist")
	return cmd
}

func newSampleConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample-config",
		Short: "Print a sample sidecar .properties file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(cephconf.Sample)
		},
	}
}
