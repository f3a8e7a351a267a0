// Command mtcpmd is the host-side driver for the multitasking CP/M-3
// environment: it owns the drive-path flags, console-driver selection
// and logging setup, builds a supervisor.Supervisor, and either runs a
// single session directly against the real terminal or - when both
// console drivers are left at their "session" default - hands the
// keyboard and screen to the termbox-based multiplexer so up to twelve
// sessions can be switched between with function-key hotkeys.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cpmhost/mtcpm/consolein"
	"github.com/cpmhost/mtcpm/consoleout"
	"github.com/cpmhost/mtcpm/datetime"
	"github.com/cpmhost/mtcpm/static"
	"github.com/cpmhost/mtcpm/supervisor"
	"github.com/cpmhost/mtcpm/version"
)

var driveLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N", "O", "P"}

func main() {
	os.Exit(run())
}

func run() int {
	drive := make(map[string]*string)
	for _, l := range driveLetters {
		drive[l] = flag.String("drive-"+strings.ToLower(l), "", fmt.Sprintf("The path to the directory for %s:", l))
	}

	createDirectories := flag.Bool("create", false, "Create host subdirectories for each CP/M drive that has none.")
	embedBin := flag.Bool("embed", true, "Materialize the embedded A: utilities (HELLO.COM, ...) onto drive A.")
	input := flag.String("input", "session", "Console input driver (session/term/stty/file).")
	output := flag.String("output", "session", "Console output driver (session/term/ansi/adm-3a).")
	logAll := flag.Bool("log-all", false, "Enable debug-level logging of every BDOS/BIOS dispatch.")
	logPath := flag.String("log-path", "", "File to write debug logs to (default: stderr, warnings only).")
	showVersion := flag.Bool("version", false, "Report the version and exit.")
	listInput := flag.Bool("list-input-drivers", false, "List console input driver names and exit.")
	listOutput := flag.Bool("list-output-drivers", false, "List console output driver names and exit.")
	timeout := flag.Int("timeout", 0, "Abort every session after this many seconds (0 disables the timeout).")

	flag.Parse()

	if *showVersion {
		fmt.Print(version.GetVersionBanner())
		return 0
	}
	if *listInput {
		printSorted(consolein.GetDrivers())
		return 0
	}
	if *listOutput {
		obj, _ := consoleout.New("null")
		printSorted(obj.GetDrivers())
		return 0
	}

	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logFile := os.Stderr
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mtcpmd: failed to open logfile %s: %s\r\n", *logPath, err)
			return 1
		}
		defer f.Close()
		logFile = f
		lvl.Set(slog.LevelDebug)
	}
	if *logAll {
		lvl.Set(slog.LevelDebug)
	}
	log := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: lvl}))

	if *createDirectories {
		for _, l := range driveLetters {
			if _, err := os.Stat(l); os.IsNotExist(err) {
				_ = os.Mkdir(l, 0755)
			}
		}
	}

	sup := supervisor.New(datetime.SystemClock{}, log)

	anyDrive := false
	for i, l := range driveLetters {
		path := *drive[l]
		if path == "" {
			if _, err := os.Stat(l); err == nil {
				path = l
			}
		}
		if path == "" && i == 0 {
			path = "."
		}
		if path != "" {
			sup.SetDrivePath(i, path)
			anyDrive = true
		}
	}
	if !anyDrive {
		fmt.Fprintf(os.Stderr, "mtcpmd: no drives mounted; pass -drive-a <dir> or run with -create\r\n")
		return 1
	}

	if *embedBin {
		root := *drive["A"]
		if root == "" {
			root = "A"
			if _, err := os.Stat(root); err != nil {
				root = "."
			}
		}
		if err := materializeStatic(static.GetContent(), root); err != nil {
			log.Warn("mtcpmd: failed to materialize embedded utilities", slog.String("error", err.Error()))
		}
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*timeout)*time.Second)
		defer cancel()
	}

	if *input == "session" && *output == "session" {
		m := newMultiplexer(sup)
		if err := m.run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
			fmt.Fprintf(os.Stderr, "mtcpmd: %s\r\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("%s\r\nConsole input:%s Console output:%s\r\n", version.GetVersionString(), *input, *output)
	if err := sup.ActivateSession(ctx, 0, *input, *output); err != nil {
		fmt.Fprintf(os.Stderr, "mtcpmd: %s\r\n", err)
		return 1
	}
	sup.WaitTermination()
	return 0
}

// materializeStatic copies the embedded A: utilities onto root, never
// overwriting a file the host filesystem already has - the host
// directory is the source of truth once a session has written to it.
func materializeStatic(content fs.FS, root string) error {
	entries, err := fs.ReadDir(content, "A")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		dst := filepath.Join(root, e.Name())
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		data, err := fs.ReadFile(content, "A/"+e.Name())
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func printSorted(names []string) {
	slices.Sort(names)
	for _, n := range names {
		fmt.Println(n)
	}
}
