package backend

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"pbrc/src/ast"
	"pbrc/src/backend/encode"
	"pbrc/src/backend/lower"
	"pbrc/src/backend/regalloc"
	"pbrc/src/backend/resolve"
	"pbrc/src/frontend"
	"pbrc/src/instr"
	"pbrc/src/region"
	"pbrc/src/util"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// loweredFunc pairs a lowered function with the per-function state its
// register allocator and resolver stages need.
type loweredFunc struct {
	fn   *ast.Function
	body instr.List
	st   *lower.State
}

// ---------------------
// ----- Functions -----
// ---------------------

// GenerateAssembler runs the full pipeline described in §§4-5: parse, then
// lower and register-allocate every function (concurrently when
// opt.Threads > 1), then resolve addresses and link cross-function
// references in source order, then encode and write the .asm/.bin pair.
func GenerateAssembler(opt util.Options) error {
	logrus.SetLevel(logrus.InfoLevel)
	if opt.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	src, err := util.ReadSource(opt)
	if err != nil {
		return fmt.Errorf("could not read source code: %w", err)
	}

	prog, err := frontend.Parse(src)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if opt.Region != "" && opt.Region != prog.Region {
		logrus.WithFields(logrus.Fields{"flag": opt.Region, "tag": prog.Region}).
			Warn("--region differs from the source file's <region=...> tag; the tag wins")
	}
	regionName := prog.Region
	if !region.Valid(regionName) {
		return fmt.Errorf("unknown region %q", regionName)
	}
	logrus.WithFields(logrus.Fields{"functions": len(prog.Functions), "region": regionName}).
		Debug("parsed source")

	lowered, err := lowerAndAllocate(prog, opt.Threads)
	if err != nil {
		return err
	}
	logLoweredShape(lowered)

	funcs, err := resolveAll(lowered, opt.Addr, regionName)
	if err != nil {
		return err
	}
	if err := resolve.Link(funcs, regionName); err != nil {
		return fmt.Errorf("link error: %w", err)
	}

	return writeOutputs(opt, funcs)
}

// lowerAndAllocate runs the lower + register-allocate stages for every
// function. When threads > 1 each function runs on its own goroutine,
// with errors collected by the teacher's parallel error-collector idiom;
// results are returned in source order regardless.
func lowerAndAllocate(prog *ast.Program, threads int) ([]loweredFunc, error) {
	out := make([]loweredFunc, len(prog.Functions))

	lowerOne := func(i int) error {
		f := prog.Functions[i]
		body, st, err := lower.New().Function(f)
		if err != nil {
			return fmt.Errorf("function %s: lower: %w", f.Name, err)
		}
		switches := switchTargets(st)
		allocated, err := regalloc.Allocate(body, switches)
		if err != nil {
			return fmt.Errorf("function %s: register allocation: %w", f.Name, err)
		}
		out[i] = loweredFunc{fn: f, body: allocated, st: st}
		return nil
	}

	if threads <= 1 {
		for i := range prog.Functions {
			if err := lowerOne(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	perr := util.NewPerror(len(prog.Functions))
	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	for i := range prog.Functions {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			perr.Append(lowerOne(i))
		}(i)
	}
	wg.Wait()
	perr.Stop()
	if perr.Len() > 0 {
		var msgs []string
		for e := range perr.Errors() {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("parallel lowering failed:\n%s", strings.Join(msgs, "\n"))
	}
	return out, nil
}

// switchTargets adapts a function's switch descriptor list, gathered
// during lowering, into the regalloc.SwitchTargets shape the liveness
// walk needs to see every arm a dispatch can fan out to.
func switchTargets(st *lower.State) regalloc.SwitchTargets {
	return func(k uint32) []uint32 {
		if int(k) >= len(st.Switches) {
			return nil
		}
		sw := st.Switches[k]
		targets := make([]uint32, 0, len(sw.Cases)+1)
		for _, b := range sw.Cases {
			targets = append(targets, b)
		}
		return append(targets, sw.Default)
	}
}

// logLoweredShape reports each function's switch targets at debug level,
// named with the teacher's label convention, before resolveAddresses
// strips every label and replaces it with a fixed address.
func logLoweredShape(lowered []loweredFunc) {
	for _, lf := range lowered {
		for k := range lf.st.Switches {
			logrus.WithFields(logrus.Fields{
				"function": lf.fn.Name,
				"label":    util.Label(util.LabelSwitch, uint32(k)),
			}).Debug("switch jump table pending resolution")
		}
	}
}

// resolveAll assigns addresses in source order: function i's base address
// is function i-1's next free address, starting at addr.
func resolveAll(lowered []loweredFunc, addr uint32, regionName string) ([]resolve.Func, error) {
	funcs := make([]resolve.Func, 0, len(lowered))
	at := addr
	for _, lf := range lowered {
		f, next, err := resolve.Function(at, lf.fn, lf.st, lf.body, regionName)
		if err != nil {
			return nil, fmt.Errorf("function %s: resolve: %w", lf.fn.Name, err)
		}
		logrus.WithFields(logrus.Fields{"function": lf.fn.Name, "addr": fmt.Sprintf("%#x", at)}).
			Debug("resolved function address")
		funcs = append(funcs, f)
		at = next
	}
	return funcs, nil
}

// writeOutputs encodes every function to PowerPC words and streams the
// resulting assembly text and binary image to <base>.asm/<base>.bin,
// through the teacher's buffered Pump/Writer idiom.
func writeOutputs(opt util.Options, funcs []resolve.Func) error {
	base := opt.Out
	if base == "" {
		base = strings.TrimSuffix(opt.Src, ".pbr")
	}

	asmFile, err := os.OpenFile(base+".asm", os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", base+".asm", err)
	}
	defer asmFile.Close()
	binFile, err := os.OpenFile(base+".bin", os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", base+".bin", err)
	}
	defer binFile.Close()

	asmPump := util.NewPump(1)
	binPump := util.NewPump(1)
	asmPump.Listen(asmFile)
	binPump.Listen(binFile)

	asmW := asmPump.NewWriter()
	binW := binPump.NewWriter()
	for _, f := range funcs {
		asmW.WriteString(fmt.Sprintf("# %s @ %#x\n", f.Name, f.Base))
		asmW.WriteString(f.List.String())

		word, err := encode.Func(f.Base, f.List)
		if err != nil {
			return fmt.Errorf("function %s: encode: %w", f.Name, err)
		}
		binW.WriteBytes(word)
	}
	asmW.Close()
	binW.Close()
	asmPump.Close()
	binPump.Close()

	logrus.WithFields(logrus.Fields{"asm": base + ".asm", "bin": base + ".bin"}).
		Info("wrote output")
	return nil
}
