package flagparse

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-imagecompressor/pkg/buildinfo"
	"github.com/paulschiretz/pgl-imagecompressor/pkg/imagetype"
)

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this command" (nil)
// and "registered but not set by user" (non-nil pointer to zero value).
type cliFlags struct {
	// Global
	LogLevel *string
	DryRun   *bool
	Quiet    *bool
	Metrics  *bool

	// Shared: Compress / Init
	Quality       *int
	MaxDimension  *int
	ArchiveEnable *bool
	ArchiveFormat *string
	ArchiveLevel  *string

	// Compress specific
	OutPath *string

	// Init specific
	Force   *bool
	Default *bool
}

// shortFlags maps every single-letter alias to the long flag name it shares a value with.
var shortFlags = map[string]string{
	"l": "logger-level",
	"o": "out-path",
	"q": "quality",
}

// stringVarWithShort registers name and its short alias on the same variable.
func stringVarWithShort(fs *flag.FlagSet, name, short, value, usage string) *string {
	p := new(string)
	fs.StringVar(p, name, value, usage)
	fs.StringVar(p, short, value, "Shorthand for -"+name+".")
	return p
}

func intVarWithShort(fs *flag.FlagSet, name, short string, value int, usage string) *int {
	p := new(int)
	fs.IntVar(p, name, value, usage)
	fs.IntVar(p, short, value, "Shorthand for -"+name+".")
	return p
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = stringVarWithShort(fs, "logger-level", "l", "warn", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.DryRun = fs.Bool("dry-run", false, "Show what would be done without making any changes.")
	f.Quiet = fs.Bool("quiet", false, "Suppress info and notice output; warnings and errors are still shown.")
	f.Metrics = fs.Bool("metrics", true, "Log file and byte counters at the end of the run.")
}

func registerEncodingFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Quality = intVarWithShort(fs, "quality", "q", 80, "JPEG quality from 1 (smallest) to 100 (best).")
	f.MaxDimension = fs.Int("max-dimension", 0, "Downscale images so the longest edge is at most this many pixels (0 = keep size).")
	f.ArchiveEnable = fs.Bool("archive", false, "Pack the output directory into a single archive after compressing.")
	f.ArchiveFormat = fs.String("archive-format", "zip", "Archive format: 'zip', 'tar.gz', or 'tar.zst'.")
	f.ArchiveLevel = fs.String("archive-level", "default", "Archive compression level: 'default', 'fastest', 'better', 'best'.")
}

func registerCompressFlags(fs *flag.FlagSet, f *cliFlags) {
	f.OutPath = stringVarWithShort(fs, "out-path", "o", "", "Output directory. (Default: ./executions/<random id>)")
	registerEncodingFlags(fs, f)
}

func registerInitFlags(fs *flag.FlagSet, f *cliFlags) {
	// Init supports all persistable flags (to generate config) plus 'force' and 'default'.
	f.Force = fs.Bool("force", false, "Bypass confirmation prompts.")
	f.Default = fs.Bool("default", false, "Overwrite existing configuration with defaults.")
	registerEncodingFlags(fs, f)
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the command and flag map.
// The map only holds flags the user set explicitly, keyed by their long name. For the
// compress command the positional path is stored under "input".
func Parse(args []string) (Command, map[string]interface{}, error) {
	// If no arguments provided, print help and exit.
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	f := &cliFlags{}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, err
	}

	switch command {
	case Compress:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerCompressFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "<path>", "Compress every image in <path> into JPEG files.\n"+
				"Recognized extensions: "+strings.Join(imagetype.Extensions(), ", "), fs)
		}

		positionals, err := parseInterspersed(fs, args[1:])
		if err != nil {
			return command, nil, err
		}
		if len(positionals) != 1 {
			fs.Usage()
			return command, nil, fmt.Errorf("compress expects exactly one input path, got %d", len(positionals))
		}

		flagMap, err := flagsToMap(fs, f)
		if err != nil {
			return command, nil, err
		}
		flagMap["input"] = positionals[0]
		return command, flagMap, nil

	case Init:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerInitFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "", "Write a configuration file to the current directory.", fs)
		}

		positionals, err := parseInterspersed(fs, args[1:])
		if err != nil {
			return command, nil, err
		}
		if len(positionals) != 0 {
			return command, nil, fmt.Errorf("init takes no arguments, got %q", positionals)
		}

		flagMap, err := flagsToMap(fs, f)
		return command, flagMap, err

	case Version:
		return command, nil, nil

	default:
		return None, nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

// parseInterspersed parses args allowing flags before and after positional
// arguments, e.g. "compress ./images -o out". Everything after "--" is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positionals []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		consumed := args[:len(args)-len(rest)]
		if len(consumed) > 0 && consumed[len(consumed)-1] == "--" {
			return append(positionals, rest...), nil
		}
		if len(rest) == 0 {
			return positionals, nil
		}
		positionals = append(positionals, rest[0])
		args = rest[1:]
	}
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) (map[string]interface{}, error) {
	// Create a map of the flags that were explicitly set by the user, along with their values.
	// This map is used to selectively override the base configuration.
	usedFlags := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		name := fl.Name
		if long, ok := shortFlags[name]; ok {
			name = long
		}
		usedFlags[name] = true
	})

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "logger-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "dry-run", f.DryRun)
	addIfUsed(flagMap, usedFlags, "quiet", f.Quiet)
	addIfUsed(flagMap, usedFlags, "metrics", f.Metrics)

	addIfUsed(flagMap, usedFlags, "out-path", f.OutPath)
	addIfUsed(flagMap, usedFlags, "quality", f.Quality)
	addIfUsed(flagMap, usedFlags, "max-dimension", f.MaxDimension)
	addIfUsed(flagMap, usedFlags, "archive", f.ArchiveEnable)
	addIfUsed(flagMap, usedFlags, "archive-format", f.ArchiveFormat)
	addIfUsed(flagMap, usedFlags, "archive-level", f.ArchiveLevel)

	addIfUsed(flagMap, usedFlags, "force", f.Force)
	addIfUsed(flagMap, usedFlags, "default", f.Default)

	if v, ok := flagMap["out-path"]; ok && v.(string) == "" {
		return nil, fmt.Errorf("-out-path cannot be empty")
	}
	return flagMap, nil
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "Re-encode a directory of images as compressed JPEG files.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  compress    Compress the images of a directory\n")
	fmt.Fprintf(fs.Output(), "  init        Write a configuration file to the current directory\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, argsHint, desc string, fs *flag.FlagSet) {
	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "Re-encode a directory of images as compressed JPEG files.\n\n")
	usage := fmt.Sprintf("%s %s", execName, command)
	if argsHint != "" {
		usage += " " + argsHint
	}
	fmt.Fprintf(fs.Output(), "Usage of the %s command: %s [flags]\n\n", command, usage)
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}
