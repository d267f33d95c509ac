// bfvm CLI - run, debug, compile, and serve Brainfuck programs
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/bfvm/image"
	"github.com/chazu/bfvm/manifest"
	"github.com/chazu/bfvm/server"
	"github.com/chazu/bfvm/store"
	"github.com/chazu/bfvm/vm"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	tapeSize := flag.Int("tape", 0, "Tape size in cells (default from bfvm.toml or 30000)")
	outLimit := flag.Int("out-limit", 0, "Output limit in bytes (default from bfvm.toml or 65536)")
	input := flag.String("input", "", "Program input as a literal string")
	inputFile := flag.String("input-file", "", "Read program input from a file")
	step := flag.Bool("step", false, "Single-step through the program on stdin")
	compileOut := flag.String("compile", "", "Compile the program to a .bfi image at the given path")
	serveMode := flag.Bool("serve", false, "Start the HTTP eval server")
	servePort := flag.Int("port", 4567, "Eval server port (used with -serve)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	storePath := flag.String("store", "", "Program store path (default from bfvm.toml)")
	storePut := flag.Bool("store-put", false, "Store the given program file")
	storeList := flag.Bool("store-list", false, "List stored programs")
	storeRun := flag.String("store-run", "", "Run the stored program with the given id")
	storeRm := flag.String("store-rm", "", "Delete the stored program with the given id")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bfvm [options] [program.bf|program.bfi]\n\n")
		fmt.Fprintf(os.Stderr, "Runs Brainfuck programs on a bounded tape.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bfvm hello.bf                   # Run a program\n")
		fmt.Fprintf(os.Stderr, "  bfvm -input AB echo.bf          # Run with input\n")
		fmt.Fprintf(os.Stderr, "  bfvm -step mandelbrot.bf        # Step instruction by instruction\n")
		fmt.Fprintf(os.Stderr, "  bfvm -compile hello.bfi hello.bf  # Compile to an image\n")
		fmt.Fprintf(os.Stderr, "  bfvm -store-put hello.bf        # Store by content hash\n")
		fmt.Fprintf(os.Stderr, "  bfvm -store-run <id>            # Run a stored program\n")
		fmt.Fprintf(os.Stderr, "  bfvm -serve -port 8080          # HTTP eval server\n")
		fmt.Fprintf(os.Stderr, "  bfvm -lsp                       # Language server on stdio\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fail("lsp: %v", err)
		}
		return
	}

	if *serveMode {
		srv := server.New()
		defer srv.Stop()
		if err := srv.ListenAndServe(*servePort); err != nil {
			fail("serve: %v", err)
		}
		return
	}

	// Project configuration, if any, fills in what the flags leave unset.
	mf, err := manifest.Find(".")
	if err != nil {
		fail("%v", err)
	}
	if mf != nil && *verbose {
		fmt.Fprintf(os.Stderr, "using %s from %s\n", manifest.FileName, mf.Dir)
	}

	opts := runOptions(mf, *tapeSize, *outLimit)

	if *storeList || *storePut || *storeRun != "" || *storeRm != "" {
		runStoreCommand(mf, *storePath, *storePut, *storeList, *storeRun, *storeRm, opts, *step)
		return
	}

	path := flag.Arg(0)
	if path == "" && mf != nil {
		path = mf.EntryPath()
	}
	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	prog, name, err := loadProgram(path)
	if err != nil {
		fail("%v", err)
	}

	if *compileOut != "" {
		img, err := image.New(name, prog.Code)
		if err != nil {
			fail("%v", err)
		}
		if err := image.WriteFile(*compileOut, img); err != nil {
			fail("%v", err)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "wrote %s (%d bytes of code)\n", *compileOut, len(img.Code))
		}
		return
	}

	in, err := readInput(mf, *input, *inputFile)
	if err != nil {
		fail("%v", err)
	}

	execute(prog, in, opts, *step)
}

// runOptions resolves execution limits: flags beat the manifest, the
// manifest beats the defaults.
func runOptions(mf *manifest.Manifest, tapeSize, outLimit int) vm.Options {
	opts := vm.DefaultOptions()
	if mf != nil {
		opts.TapeSize = mf.Run.TapeSize
		opts.OutputLimit = mf.Run.OutputLimit
	}
	if tapeSize > 0 {
		opts.TapeSize = tapeSize
	}
	if outLimit > 0 {
		opts.OutputLimit = outLimit
	}
	return opts
}

// loadProgram reads a .bf source file or a compiled .bfi image.
func loadProgram(path string) (*vm.Program, string, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if filepath.Ext(path) == ".bfi" {
		img, err := image.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return img.Program(), img.Name, nil
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	prog, err := vm.Compile(code)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return prog, name, nil
}

// readInput resolves program input: -input beats -input-file beats the
// manifest's input-file.
func readInput(mf *manifest.Manifest, literal, path string) ([]byte, error) {
	if literal != "" {
		return []byte(literal), nil
	}
	if path == "" && mf != nil && mf.Run.InputFile != "" {
		path = mf.Run.InputFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(mf.Dir, path)
		}
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}
	return data, nil
}

// execute runs a compiled program and prints its output, wiring up the
// interactive step debugger when asked.
func execute(prog *vm.Program, in []byte, opts vm.Options, step bool) {
	if step {
		opts.Hook = stdinStepHook()
		opts.SingleStep = true
	}

	res, err := vm.RunProgram(prog, in, opts)
	if err != nil {
		fail("%v", err)
	}
	os.Stdout.Write(res.Output)
}

// stdinStepHook prints the machine state before each instruction and
// waits for a line: enter steps, "q" halts the run.
func stdinStepHook() vm.DebugHook {
	scanner := bufio.NewScanner(os.Stdin)
	return func(ip, dp int, cell byte) bool {
		fmt.Fprintf(os.Stderr, "ip=%-6d dp=%-6d cell=%3d  ", ip, dp, cell)
		if !scanner.Scan() {
			return true
		}
		return strings.TrimSpace(scanner.Text()) == "q"
	}
}

// runStoreCommand dispatches the -store-* flags.
func runStoreCommand(mf *manifest.Manifest, path string, put, list bool, runID, rmID string, opts vm.Options, step bool) {
	if path == "" && mf != nil {
		path = mf.StorePath()
	}
	if path == "" {
		path = "bfvm.db"
	}

	s, err := store.Open(path)
	if err != nil {
		fail("%v", err)
	}
	defer s.Close()

	switch {
	case list:
		entries, err := s.List()
		if err != nil {
			fail("%v", err)
		}
		for _, e := range entries {
			fmt.Printf("%s  %6d  %s\n", e.ID, e.Size, e.Name)
		}
	case put:
		progPath := flag.Arg(0)
		if progPath == "" {
			fail("store-put: program file required")
		}
		prog, name, err := loadProgram(progPath)
		if err != nil {
			fail("%v", err)
		}
		id, err := s.Put(name, prog.Code)
		if err != nil {
			fail("%v", err)
		}
		fmt.Println(id)
	case runID != "":
		_, code, err := s.Get(runID)
		if err != nil {
			fail("%v", err)
		}
		prog, err := vm.Compile(code)
		if err != nil {
			fail("%v", err)
		}
		execute(prog, nil, opts, step)
	case rmID != "":
		if err := s.Delete(rmID); err != nil {
			fail("%v", err)
		}
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
