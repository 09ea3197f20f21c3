package util

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options carries the configuration threaded through the driver: the
// parsed command line plus the load address derived from it.
type Options struct {
	Src     string // Path to the .pbr source file.
	Out     string // Output file base name (".asm"/".bin" appended).
	Threads int    // Per-function concurrency; 1 disables it.
	Verbose bool   // Raise logging to Debug level.
	Region  string // Console region: "ntsc-j", "ntsc-u" or "pal".
	Addr    uint32 // Load address the first function is placed at.
}

// ---------------------
// ----- Constants -----
// ---------------------

const maxThreads = 64
const appVersion = "pbrc 1.0"

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs builds the cobra command tree and parses args into Options,
// replacing the teacher's hand-rolled flag scanner with a cobra/pflag
// command surface while keeping the same Options value threaded through
// the rest of the pipeline.
func ParseArgs(args []string) (Options, error) {
	opt := Options{Region: "ntsc-u"}
	threads := 1
	var addrStr string

	build := &cobra.Command{
		Use:   "build <path.pbr>",
		Short: "Compile a .pbr source file to .asm and .bin output.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			src := cmdArgs[0]
			if !strings.HasSuffix(src, ".pbr") {
				return fmt.Errorf("expected a .pbr source file, got %q", src)
			}
			if threads < 1 || threads > maxThreads {
				return fmt.Errorf("thread count must be in range [1, %d]", maxThreads)
			}
			v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(addrStr, "0x"), "0X"), 16, 32)
			if err != nil {
				return fmt.Errorf("invalid --addr %q: %w", addrStr, err)
			}
			if v < 0x80000000 {
				return fmt.Errorf("--addr %#x is out of range [0x80000000, 0xFFFFFFFF]", v)
			}
			opt.Src = src
			opt.Threads = threads
			opt.Addr = uint32(v)
			return nil
		},
	}
	build.Flags().StringVarP(&opt.Out, "out", "o", "", "Path and base name of the output files.")
	build.Flags().IntVarP(&threads, "threads", "t", 1, "Number of functions to lower/allocate concurrently.")
	build.Flags().StringVar(&opt.Region, "region", "ntsc-u", "Console region: ntsc-j, ntsc-u or pal.")
	build.Flags().BoolVarP(&opt.Verbose, "verbose", "v", false, "Enable structured debug logging.")
	build.Flags().BoolVar(&opt.Verbose, "vb", false, "Alias of --verbose.")
	build.Flags().StringVar(&addrStr, "addr", "", "Load address the first function is placed at (e.g. 0x80000000).")
	_ = build.MarkFlagRequired("addr")

	root := &cobra.Command{
		Use:     "pbrc",
		Short:   "pbrc compiles PBR script into PowerPC32 assembly and raw binary.",
		Version: appVersion,
	}
	root.AddCommand(build)
	root.SilenceUsage = true
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return opt, err
	}
	return opt, nil
}
