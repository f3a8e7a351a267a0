// Package ccp implements the CP/M-3 Console Command Processor: the
// read-parse-execute loop a session's worker runs once its BDOS/BIOS
// are wired up, and the built-in verbs (DIR, LS, TYPE, CD, COPY, ERA,
// RENAME, PATH, MKDIR, RMDIR, TERM, EMU, KEYB, INFO, REBOOT, FORMAT)
// that don't need a transient program loaded to satisfy. Everything
// else on a command line is handed to BDOS's transient-program loader.
package ccp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cpmhost/mtcpm/bdos"
	"github.com/cpmhost/mtcpm/fcb"
	"github.com/cpmhost/mtcpm/search"
	"github.com/cpmhost/mtcpm/version"
)

// ErrReboot is returned by Run when the guest issued the REBOOT
// built-in: the Supervisor interprets this the same way it would an
// ordinary CCP exit, except it restarts the session rather than tearing
// it down.
var ErrReboot = errors.New("ccp: reboot requested")

// maxLine is the longest input line func 10's editor will accept.
const maxLine = 127

// CCP is one session's command processor: a thin driver over its BDOS.
type CCP struct {
	BDOS *bdos.BDOS

	lastReturnCode uint16
	pageMode       bool

	builtins map[string]func(ctx context.Context, args string) error
}

// New returns a CCP driving the given session's BDOS.
func New(b *bdos.BDOS) *CCP {
	c := &CCP{BDOS: b}
	c.builtins = map[string]func(ctx context.Context, args string) error{
		"DIR":    c.cmdDir,
		"LS":     c.cmdDir,
		"TYPE":   c.cmdType,
		"CD":     c.cmdCD,
		"COPY":   c.cmdCopy,
		"ERA":    c.cmdEra,
		"RENAME": c.cmdRename,
		"PATH":   c.cmdPath,
		"MKDIR":  c.cmdMkdir,
		"RMDIR":  c.cmdRmdir,
		"USER":   c.cmdUser,
		"TERM":   c.cmdTerm,
		"EMU":    c.cmdEmu,
		"KEYB":   c.cmdKeyb,
		"INFO":   c.cmdInfo,
		"REBOOT": c.cmdReboot,
		"FORMAT": c.cmdFormat,
	}
	return c
}

// Run drives the prompt/read/parse/execute loop until the guest issues
// REBOOT, the session is asked to abort, or ctx is cancelled. A chained
// command line (BDOS function 47) is picked up before the next prompt,
// exactly as execProgram's caller is expected to.
func (c *CCP) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if c.BDOS.HAL.Aborting() {
			return nil
		}

		if line, preserveDU, ok := c.BDOS.ChainPending(); ok {
			if !preserveDU {
				c.BDOS.SCB.CurrentDrive = 0
				c.BDOS.SCB.CurrentUser = 0
			}
			if err := c.runLine(ctx, line); err != nil {
				if err == ErrReboot {
					return err
				}
				return err
			}
			continue
		}

		c.prompt()
		line, ctrlC, err := c.BDOS.ReadLine(ctx, maxLine)
		if err != nil {
			return err
		}
		if ctrlC {
			c.BDOS.Print("\r\n")
			continue
		}
		if err := c.runLine(ctx, line); err != nil {
			return err
		}
	}
}

// prompt writes the CP/M-3 drive/user prompt: "A>" for user 0, "A12>"
// otherwise.
func (c *CCP) prompt() {
	drive := byte('A' + c.BDOS.CurrentDrive())
	if user := c.BDOS.CurrentUser(); user != 0 {
		c.BDOS.Print(fmt.Sprintf("\r\n%c%d>", drive, user))
		return
	}
	c.BDOS.Print(fmt.Sprintf("\r\n%c>", drive))
}

// runLine splits line on the `!`/`!!` grammar and runs each resulting
// command in turn, honoring `;` comments and `:` conditional markers.
func (c *CCP) runLine(ctx context.Context, line string) error {
	for _, segment := range splitCommands(line) {
		cmd, ok := parseCommand(segment)
		if !ok {
			continue
		}
		if cmd.Conditional && c.lastReturnCode != 0 {
			continue
		}
		if err := c.runCommand(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

// runCommand dispatches one parsed command to a built-in, or else
// delegates to BDOS's transient-program loader.
func (c *CCP) runCommand(ctx context.Context, cmd command) error {
	if cmd.Verb == "" {
		return nil
	}

	if fn, ok := c.builtins[cmd.Verb]; ok {
		err := fn(ctx, cmd.Args)
		if err == ErrReboot {
			return err
		}
		if err != nil {
			c.BDOS.Print(err.Error() + "\r\n")
			c.lastReturnCode = 0xFFFF
			return nil
		}
		c.lastReturnCode = 0
		return nil
	}

	if len(cmd.Verb) >= 2 && cmd.Verb[1] == ':' && len(cmd.Verb) == 2 {
		// A bare "D:" selects a drive, per CP/M convention.
		drive := int(cmd.Verb[0] - 'A')
		if err := c.BDOS.SelectDrive(ctx, drive); err != nil {
			return err
		}
		return nil
	}

	if err := c.BDOS.ExecProgram(ctx, cmd.Verb, cmd.Args); err != nil {
		return err
	}
	c.lastReturnCode = c.BDOS.SCB.ProgramReturnCode
	return nil
}

// cmdDir implements DIR/LS: lists matching names from the current (or
// named) directory, CP/M-3 style (uppercase 8.3, "No File" when empty).
func (c *CCP) cmdDir(ctx context.Context, args string) error {
	pattern := strings.TrimSpace(args)
	if pattern == "" {
		pattern = "*.*"
	}
	host, _, err := c.BDOS.Mount.Resolve(c.BDOS.CurrentDrive(), pattern)
	if err != nil {
		return fmt.Errorf("Invalid Drive")
	}

	dir := filepath.Dir(host)
	packed, _ := fcb.ExpandFilename(strings.ToUpper(filepath.Base(host)), false)

	names, err := search.MatchingHostNames(dir, packed, true)
	if err != nil || len(names) == 0 {
		c.BDOS.Print("No File\r\n")
		return nil
	}
	sort.Strings(names)

	col := 0
	for _, name := range names {
		c.BDOS.Print(fmt.Sprintf("%-14s", strings.ToUpper(name)))
		col++
		if col == 4 {
			c.BDOS.Print("\r\n")
			col = 0
		}
	}
	if col != 0 {
		c.BDOS.Print("\r\n")
	}
	return nil
}

// cmdType implements TYPE: dumps a host file to the console, expanding
// nothing - CP/M TYPE is a raw byte dump, CTRL-Z (0x1A) truncates it.
func (c *CCP) cmdType(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		return fmt.Errorf("usage: TYPE filename")
	}
	host, _, err := c.BDOS.Mount.Resolve(c.BDOS.CurrentDrive(), args)
	if err != nil {
		return fmt.Errorf("Invalid Drive")
	}
	data, err := os.ReadFile(host)
	if err != nil {
		return fmt.Errorf("No File")
	}
	for _, b := range data {
		if b == 0x1A {
			break
		}
		c.BDOS.Print(string(rune(b)))
	}
	return nil
}

// cmdCD implements CD: change the current drive's current directory
// via the 0xD5 BDOS extension.
func (c *CCP) cmdCD(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		c.BDOS.Print(c.BDOS.CurrentDirName() + "\r\n")
		return nil
	}
	res, err := c.BDOS.ChangeDir(ctx, args)
	if err != nil {
		return err
	}
	if res != 0 {
		return fmt.Errorf("No Directory")
	}
	return nil
}

// cmdCopy implements COPY src dst [/O]: the 0xD4 BDOS extension, with a
// trailing "/O" token enabling overwrite.
func (c *CCP) cmdCopy(ctx context.Context, args string) error {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return fmt.Errorf("usage: COPY source dest")
	}
	overwrite := false
	if len(fields) >= 3 && strings.EqualFold(fields[2], "/O") {
		overwrite = true
	}
	res, err := c.BDOS.CopyFile(ctx, fields[0], fields[1], overwrite, false)
	if err != nil {
		return err
	}
	switch res {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("No File")
	case 2:
		return fmt.Errorf("No Directory")
	case 3:
		return fmt.Errorf("File Exists")
	default:
		return fmt.Errorf("Copy failed (%d)", res)
	}
}

// cmdEra implements ERA: delete matching files via BDOS function 19.
func (c *CCP) cmdEra(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		return fmt.Errorf("usage: ERA filespec")
	}
	res, err := c.BDOS.DeleteFiles(ctx, args)
	if err != nil {
		return err
	}
	if res == 0xFF {
		return fmt.Errorf("No File")
	}
	return nil
}

// cmdRename implements RENAME newname=oldname, the classic CP/M order.
func (c *CCP) cmdRename(ctx context.Context, args string) error {
	newName, oldName, ok := strings.Cut(args, "=")
	if !ok {
		return fmt.Errorf("usage: RENAME newname=oldname")
	}
	res, err := c.BDOS.RenameFile(ctx, strings.TrimSpace(oldName), strings.TrimSpace(newName))
	if err != nil {
		return err
	}
	if res == 0xFF {
		return fmt.Errorf("No File")
	}
	return nil
}

// cmdPath implements PATH: display, or set, the search path BDOS's
// execProgram consults when a typed command has no builtin.
func (c *CCP) cmdPath(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		if c.BDOS.SCB.SearchPath == "" {
			c.BDOS.Print("PATH=(none)\r\n")
		} else {
			c.BDOS.Print("PATH=" + c.BDOS.SCB.SearchPath + "\r\n")
		}
		return nil
	}
	c.BDOS.SCB.SearchPath = strings.ToUpper(strings.TrimSpace(args))
	return nil
}

// cmdMkdir implements MKDIR via BDOS function 22's directory-create bit.
func (c *CCP) cmdMkdir(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		return fmt.Errorf("usage: MKDIR name")
	}
	res, err := c.BDOS.MakeDir(ctx, args)
	if err != nil {
		return err
	}
	if res == 0xFF {
		return fmt.Errorf("Directory Exists")
	}
	return nil
}

// cmdRmdir implements RMDIR via BDOS function 19 against a directory FCB.
func (c *CCP) cmdRmdir(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		return fmt.Errorf("usage: RMDIR name")
	}
	res, err := c.BDOS.RemoveDir(ctx, args)
	if err != nil {
		return err
	}
	if res == 0xFF {
		return fmt.Errorf("No Directory")
	}
	return nil
}

// cmdUser implements USER n: switches the current user area, the way
// a bare numeric argument to the classic CCP's USER verb always has.
func (c *CCP) cmdUser(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		c.BDOS.Print(fmt.Sprintf("%d\r\n", c.BDOS.CurrentUser()))
		return nil
	}
	n, ok := parseUser(args)
	if !ok {
		return fmt.Errorf("usage: USER 0-15")
	}
	return c.BDOS.SetUser(ctx, n)
}

// cmdTerm implements TERM: prints the session's console width and
// height as WxH. An argument is accepted and ignored; no driver is
// changed.
func (c *CCP) cmdTerm(ctx context.Context, args string) error {
	if strings.TrimSpace(args) == "" {
		c.BDOS.Print(fmt.Sprintf("%dx%d\r\n", c.BDOS.SCB.ConsoleWidth, c.BDOS.SCB.ConsoleHeight))
		return nil
	}
	return nil
}

// cmdEmu implements EMU: prints the host emulator/version banner.
func (c *CCP) cmdEmu(ctx context.Context, args string) error {
	c.BDOS.Print(version.GetVersionBanner())
	return nil
}

// cmdKeyb implements KEYB: accepted for compatibility with CCPs that
// issue it at startup; keyboard layout selection lives below the PS/2
// driver, out of this subsystem's scope.
func (c *CCP) cmdKeyb(ctx context.Context, args string) error {
	return nil
}

// cmdInfo implements INFO: a one-screen session/version/drive summary.
func (c *CCP) cmdInfo(ctx context.Context, args string) error {
	c.BDOS.Print(version.GetVersionBanner())
	c.BDOS.Print(fmt.Sprintf("Drive %c:, user %d\r\n",
		byte('A'+c.BDOS.CurrentDrive()), c.BDOS.CurrentUser()))
	return nil
}

// cmdReboot implements REBOOT: ends this CCP's Run loop with ErrReboot,
// which the Supervisor treats as "start this session over".
func (c *CCP) cmdReboot(ctx context.Context, args string) error {
	return ErrReboot
}

// cmdFormat implements FORMAT: host directory mounts have no physical
// geometry to format (Non-goal: physical floppy emulation), so this
// reports the limitation rather than silently doing nothing.
func (c *CCP) cmdFormat(ctx context.Context, args string) error {
	c.BDOS.Print("FORMAT: not supported on host directory mounts\r\n")
	return nil
}

// parseUser parses a bare numeric CCP argument (a user-number change),
// returning ok=false for anything else.
func parseUser(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 15 {
		return 0, false
	}
	return n, true
}
