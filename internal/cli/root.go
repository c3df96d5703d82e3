// Package cli wires the matching engine to process arguments, files, and
// exit codes. Nothing here is exercised by the matching engine's own
// tests; it is the thin driver collaborator spec'd as "out of scope" for
// the core, consuming match, pattern, and ipaddr through their public API.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"gopkg.in/yaml.v3"

	"github.com/zlobste/grepcidr/match"
	"github.com/zlobste/grepcidr/pattern"
)

type statsFormat string

const (
	statsNone statsFormat = "none"
	statsJSON statsFormat = "json"
	statsYAML statsFormat = "yaml"
)

// Set implements pflag.Value for validation.
func (s *statsFormat) Set(v string) error {
	switch statsFormat(v) {
	case statsNone, statsJSON, statsYAML:
		*s = statsFormat(v)
		return nil
	default:
		return fmt.Errorf("invalid stats format: %s", v)
	}
}
func (s *statsFormat) String() string { return string(*s) }
func (s *statsFormat) Type() string   { return "statsFormat" }

// Version is overridden via -ldflags at build time (e.g.
// -X github.com/zlobste/grepcidr/internal/cli.Version=v1.2.3).
var Version = "dev"

// Commit and BuildDate can also be injected at build time.
var (
	Commit    = ""
	BuildDate = ""
)

// Sentinel errors distinguishing the exit-code classes from §6/§7: every
// compile, usage, or I/O failure maps to exit 2; errNoMatches is not a
// failure, it is the signal for exit 1.
var (
	ErrUsage     = errors.New("grepcidr: usage error")
	ErrIO        = errors.New("grepcidr: io error")
	errNoMatches = errors.New("grepcidr: no lines matched")
	errVersion   = errors.New("grepcidr: version requested")
)

const (
	exitMatched = 0
	exitNoMatch = 1
	exitUsage   = 2
)

var logger = logrus.New()

func init() {
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
}

// NewRootCmd constructs a new *cobra.Command tree with isolated state, so
// tests can build independent instances instead of sharing process-global
// flag values.
func NewRootCmd(out io.Writer) *cobra.Command {
	var (
		flagCount, flagIncludeNonIP, flagStrict bool
		flagInvert, flagExact, flagVersion      bool
		flagDebug                               bool
		flagPatterns, flagPatternFiles          []string
		flagStats                               = statsNone
	)

	rootCmd := &cobra.Command{
		Use:   "grepcidr [PATTERN] [FILE...]",
		Short: "Print lines whose embedded IP addresses match a set of CIDR/range patterns",
		Long:  "grepcidr filters line-oriented text, emitting the lines whose embedded IPv4/IPv6 literals match a user-supplied set of network patterns.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagDebug {
				logger.SetLevel(logrus.DebugLevel)
			}

			if flagVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "grepcidr version %s\n", versionString())
				return errVersion
			}

			tokens, files, err := resolvePatternsAndFiles(flagPatterns, flagPatternFiles, args)
			if err != nil {
				return err
			}
			logger.WithField("tokens", len(tokens)).Debug("resolved pattern tokens")

			idx, err := pattern.Build(tokens, flagStrict)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrUsage, err)
			}
			stats := idx.Stats()
			logger.WithFields(logrus.Fields{
				"v4_ranges": stats.V4Ranges,
				"v6_ranges": stats.V6Ranges,
			}).Debug("pattern set compiled")

			eng := match.New(idx, match.Options{
				Invert:       flagInvert,
				Exact:        flagExact,
				IncludeNonIP: flagIncludeNonIP,
				Count:        flagCount,
			})

			w := cmd.OutOrStdout()
			if err := runFiles(files, eng, w, flagCount); err != nil {
				return err
			}
			if flagCount {
				fmt.Fprintf(w, "%d\n", eng.MatchCount())
			}

			if err := writeStats(cmd.ErrOrStderr(), flagStats, stats); err != nil {
				return err
			}

			if eng.MatchCount() == 0 {
				return errNoMatches
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.Flags().BoolVarP(&flagCount, "count", "c", false, "count matching lines; suppress normal output")
	rootCmd.Flags().BoolVarP(&flagIncludeNonIP, "include-non-ip", "i", false, "treat lines containing no address as matching")
	rootCmd.Flags().BoolVarP(&flagStrict, "strict", "s", false, "require strict CIDR alignment (low bits must be zero)")
	rootCmd.Flags().BoolVarP(&flagInvert, "invert", "v", false, "invert the match")
	rootCmd.Flags().BoolVarP(&flagExact, "exact", "x", false, "whole-line exact address match")
	rootCmd.Flags().BoolVarP(&flagVersion, "version", "V", false, "print version and exit")
	rootCmd.Flags().StringArrayVarP(&flagPatterns, "pattern", "e", nil, "specify a pattern (repeatable)")
	rootCmd.Flags().StringArrayVarP(&flagPatternFiles, "file", "f", nil, "load patterns from file, one per line, '#' starts a comment (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().Var(&flagStats, "stats-format", "print compiled pattern-set diagnostics: none|json|yaml")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "grepcidr version %s\n", versionString())
			return err
		},
	}

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := rootCmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(w)
			case "zsh":
				return rootCmd.GenZshCompletion(w)
			case "fish":
				return rootCmd.GenFishCompletion(w, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(w)
			default:
				return fmt.Errorf("%w: unsupported shell: %s", ErrUsage, args[0])
			}
		},
	}

	docsCmd := &cobra.Command{
		Use:   "docs <directory>",
		Short: "Generate Markdown documentation for commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
			root := cmd.Root()
			root.DisableAutoGenTag = true
			return doc.GenMarkdownTree(root, dir)
		},
	}

	manCmd := &cobra.Command{
		Use:   "man <directory>",
		Short: "Generate man pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("%w: %v", ErrIO, err)
			}
			root := cmd.Root()
			root.DisableAutoGenTag = true
			header := &doc.GenManHeader{Title: "GREPCIDR", Section: "1"}
			return doc.GenManTree(root, header, dir)
		},
	}

	rootCmd.AddCommand(versionCmd, completionCmd, docsCmd, manCmd)
	return rootCmd
}

func versionString() string {
	if Commit == "" && BuildDate == "" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
}

// resolvePatternsAndFiles implements §6: if -e or -f was given, every
// positional argument is an input file; otherwise the first positional
// argument is the pattern and the rest are input files.
func resolvePatternsAndFiles(patternArgs, patternFiles, args []string) (tokens, files []string, err error) {
	if len(patternArgs) > 0 || len(patternFiles) > 0 {
		for _, p := range patternArgs {
			tokens = append(tokens, pattern.Tokenize(p)...)
		}
		for _, f := range patternFiles {
			content, rerr := os.ReadFile(f)
			if rerr != nil {
				return nil, nil, fmt.Errorf("%w: reading pattern file %s: %v", ErrUsage, f, rerr)
			}
			tokens = append(tokens, pattern.ParsePatternFile(string(content))...)
		}
		return tokens, args, nil
	}
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("%w: missing pattern argument", ErrUsage)
	}
	return pattern.Tokenize(args[0]), args[1:], nil
}

// runFiles feeds every named file (stdin for "-" or an empty list) through
// the engine in order, writing matching lines verbatim with their
// original terminator.
func runFiles(files []string, eng *match.Engine, w io.Writer, countMode bool) error {
	if len(files) == 0 {
		return processReader(os.Stdin, eng, w, countMode)
	}
	for _, f := range files {
		if f == "-" {
			if err := processReader(os.Stdin, eng, w, countMode); err != nil {
				return err
			}
			continue
		}
		fh, err := os.Open(f)
		if err != nil {
			return fmt.Errorf("%w: opening %s: %v", ErrIO, f, err)
		}
		procErr := processReader(fh, eng, w, countMode)
		closeErr := fh.Close()
		if procErr != nil {
			return procErr
		}
		if closeErr != nil {
			return fmt.Errorf("%w: closing %s: %v", ErrIO, f, closeErr)
		}
	}
	return nil
}

// processReader reads r line by line, preserving each line's original
// terminator for output while handing the engine the terminator-stripped
// content to evaluate.
func processReader(r io.Reader, eng *match.Engine, w io.Writer, countMode bool) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			content := strings.TrimRight(line, "\r\n")
			d := eng.Evaluate([]byte(content))
			if !countMode && d.Emit {
				if _, werr := io.WriteString(w, line); werr != nil {
					return fmt.Errorf("%w: writing output: %v", ErrIO, werr)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("%w: reading input: %v", ErrIO, err)
		}
	}
}

func writeStats(w io.Writer, format statsFormat, stats pattern.Stats) error {
	switch format {
	case statsNone, "":
		return nil
	case statsJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case statsYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(stats); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown stats format %s", ErrUsage, format)
	}
}

// Execute builds and runs the CLI using os.Stdout, translating the
// resulting error (if any) into the exit codes from §6.
func Execute() {
	cmd := NewRootCmd(os.Stdout)
	err := cmd.Execute()
	switch {
	case err == nil:
		os.Exit(exitMatched)
	case errors.Is(err, errVersion):
		os.Exit(exitUsage)
	case errors.Is(err, errNoMatches):
		os.Exit(exitNoMatch)
	default:
		fmt.Fprintf(os.Stderr, "grepcidr: %v\n", err)
		os.Exit(exitUsage)
	}
}
