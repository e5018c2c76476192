// propdiff compares, edits and re-exports Java .properties translations.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/minios-linux/propdiff/align"
	"github.com/minios-linux/propdiff/charset"
	"github.com/minios-linux/propdiff/config"
	"github.com/minios-linux/propdiff/export"
	"github.com/minios-linux/propdiff/i18n"
	"github.com/minios-linux/propdiff/lockfile"
	"github.com/minios-linux/propdiff/session"
	"github.com/minios-linux/propdiff/source"
	"github.com/minios-linux/propdiff/store"
	"github.com/minios-linux/propdiff/textnorm"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors, cleared by initColors when stderr is not a terminal.
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func initColors() bool {
	if os.Getenv("NO_COLOR") == "" && term.IsTerminal(int(os.Stderr.Fd())) {
		return true
	}
	colorReset, colorRed, colorGreen, colorYellow, colorBlue = "", "", "", "", ""
	return false
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir   string
	verbose   bool
	storeKind string
	storePath string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "propdiff",
		Short: i18n.T("Compare and complete Java .properties translations"),
		Long: `propdiff compares an English .properties bundle with its translation.

Reports keys missing from the translation, extra keys, duplicate keys and
translations whose English text changed since they were saved. Edited
translations are kept in a local store and merged into an exported bundle
that keeps the baseline's comments, blank lines and key order.

Commands:
  compare     Show the alignment report and a table of keys
  export      Write the updated bundle (all keys or missing only)
  preview     Print the updated bundle
  set / get   Save or read an edited translation
  check       List characters that cannot be written as ISO-8859-1
  normalize   Replace typographic punctuation with plain characters
  store       Show where translations are stored`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory (holds .propdiff.yaml and propdiff.lock)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&storeKind, "store", "", "Translation store backend: file, sqlite or memory")
	root.PersistentFlags().StringVar(&storePath, "store-path", "", "Translation store location")

	_ = root.RegisterFlagCompletionFunc("store", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return store.Kinds(), cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		newCompareCmd(),
		newExportCmd(),
		newPreviewCmd(),
		newSetCmd(),
		newGetCmd(),
		newCheckCmd(),
		newNormalizeCmd(),
		newStoreCmd(),
		newVersionCmd(),
	)

	return root
}

func setupLogging(debug bool) {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: colorReset == ""})
}

func main() {
	initColors()
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Workspace: config + store + lock + session
// ---------------------------------------------------------------------------

type workspace struct {
	cfg  *config.Config
	st   *store.Store
	lock *lockfile.LockFile
	sess *session.Session
}

func openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if storeKind != "" {
		cfg.Store.Backend = storeKind
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}

	backend, err := store.NewBackend(ctx, cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	w := &workspace{cfg: cfg, st: st}
	opts := []session.Option{session.WithLocales(cfg.BaselineLang, cfg.TargetLang)}
	if cfg.LockEnabled() {
		lf, err := lockfile.Load(cfg.Root())
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		w.lock = lf
		opts = append(opts, session.WithLock(lf))
	}
	w.sess = session.New(st, opts...)
	return w, nil
}

func (w *workspace) Close() {
	if err := w.st.Close(); err != nil {
		log.Warn().Err(err).Msg("closing translation store")
	}
}

// bundleArgs picks the baseline and target from positional args, falling
// back to the config file.
func (w *workspace) bundleArgs(args []string) (baseline, target string) {
	baseline, target = w.cfg.Baseline, w.cfg.Target
	if len(args) > 0 {
		baseline = args[0]
	}
	if len(args) > 1 {
		target = args[1]
	}
	return baseline, target
}

func (w *workspace) load(ctx context.Context, args []string) error {
	baseline, target := w.bundleArgs(args)
	return w.sess.Load(ctx, source.Resolve(baseline), source.Resolve(target))
}

func runWithWorkspace(cmd *cobra.Command, fn func(ctx context.Context, w *workspace) error) error {
	ctx := cmd.Context()
	w, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	defer w.Close()
	return fn(ctx, w)
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("propdiff version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// compare
// ---------------------------------------------------------------------------

func newCompareCmd() *cobra.Command {
	var (
		missingOnly bool
		search      string
		noTable     bool
	)

	cmd := &cobra.Command{
		Use:   "compare [baseline] [target]",
		Short: i18n.T("Show missing, extra, duplicate and stale keys"),
		Long: `Load both bundles and print the alignment report followed by a table
of baseline keys with their current translation. Saved edits override the
target file's values. Arguments default to baseline/target in .propdiff.yaml.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithWorkspace(cmd, func(ctx context.Context, w *workspace) error {
				if err := w.load(ctx, args); err != nil {
					return err
				}
				return runCompare(w, session.RowFilter{MissingOnly: missingOnly, Search: search}, !noTable)
			})
		},
	}

	cmd.Flags().BoolVarP(&missingOnly, "missing", "m", false, "Only list keys without a translation")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only list keys whose key or text contains this string")
	cmd.Flags().BoolVar(&noTable, "no-table", false, "Print the report only")

	return cmd
}

func runCompare(w *workspace, filter session.RowFilter, withTable bool) error {
	report, err := w.sess.Report()
	if err != nil {
		return err
	}
	baseEnc, targetEnc := w.sess.Encodings()
	baseLang, targetLang := w.sess.Locales()

	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Bundles"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  %-10s %-20s %s\n", baseLang, langName(baseLang), baseEnc)
	fmt.Fprintf(os.Stderr, "  %-10s %-20s %s\n", targetLang, langName(targetLang), targetEnc)

	total, translated, err := w.sess.Progress()
	if err != nil {
		return err
	}
	percent := 0
	if total > 0 {
		percent = translated * 100 / total
	}
	fmt.Fprintf(os.Stderr, "  %s %s\n\n", progressBar(percent, 30), fmt.Sprintf(i18n.N("%d key", "%d keys", total), total))

	printReport(report)

	if !withTable {
		return nil
	}
	rows, err := w.sess.Rows(filter)
	if err != nil {
		return err
	}
	printRows(rows, baseLang, targetLang)
	return nil
}

func printReport(r align.Report) {
	if r.Clean() {
		logSuccess("%s", i18n.T("Baseline and target are aligned"))
		return
	}
	section := func(title string, keys []string) {
		if len(keys) == 0 {
			return
		}
		fmt.Fprintf(os.Stderr, "%s%s%s (%d)\n", colorYellow, title, colorReset, len(keys))
		for _, k := range keys {
			fmt.Fprintf(os.Stderr, "  %s\n", k)
		}
	}
	section(i18n.T("Missing in target"), r.MissingInTarget)
	section(i18n.T("Extra in target"), r.ExtraInTarget)
	section(i18n.T("Duplicate keys in baseline"), r.DuplicateBaseline)
	section(i18n.T("Duplicate keys in target"), r.DuplicateTarget)
	section(i18n.T("Stale translations"), r.Stale)
	fmt.Fprintln(os.Stderr)
}

func printRows(rows []session.Row, baseLang, targetLang string) {
	if len(rows) == 0 {
		logInfo("%s", i18n.T("No keys match"))
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{i18n.T("Key"), langName(baseLang), langName(targetLang), ""})
	table.SetAutoWrapText(false)
	for _, r := range rows {
		var flags []string
		if r.Missing {
			flags = append(flags, i18n.T("missing"))
		}
		if r.Saved {
			flags = append(flags, i18n.T("edited"))
		}
		if r.Stale {
			flags = append(flags, i18n.T("stale"))
		}
		if len(r.Unsupported) > 0 {
			flags = append(flags, "!latin1")
		}
		table.Append([]string{r.Key, r.Baseline, r.Value, strings.Join(flags, ",")})
	}
	table.Render()
}

// langName returns a language's own name ("français"), or the tag itself
// when it does not parse.
func langName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.Self.Name(t); name != "" {
		return name
	}
	return tag
}

// progressBar renders a colored bar of width cells followed by the percent.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100

	color := colorRed
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 50:
		color = colorYellow
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s%s%s%4d%%", color, bar, colorReset, percent)
}

// ---------------------------------------------------------------------------
// export / preview
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	var (
		modeName    string
		output      string
		charsetName string
	)

	cmd := &cobra.Command{
		Use:   "export [baseline] [target]",
		Short: i18n.T("Write the updated translation bundle"),
		Long: `Rebuild the translation from the baseline's lines: comments, blank lines
and unparseable lines are copied as-is, every key gets its saved edit, else
the target file's value, else an empty value.

Modes:
  all            every key (Bundle_fr_updated.properties)
  missing-only   only keys that still have no value (Bundle_fr_missing_only.properties)`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := export.ParseMode(modeName)
			if err != nil {
				return err
			}
			return runWithWorkspace(cmd, func(ctx context.Context, w *workspace) error {
				if err := w.load(ctx, args); err != nil {
					return err
				}
				cs := w.cfg.OutputCharset()
				if charsetName != "" {
					if cs, err = charset.ParseCharset(charsetName); err != nil {
						return err
					}
				}
				path := output
				if path == "" {
					path = filepath.Join(w.cfg.OutputDir, w.sess.FileName(mode))
				}
				return runExport(w.sess, mode, cs, path)
			})
		},
	}

	cmd.Flags().StringVar(&modeName, "mode", "all", "Export mode: all or missing-only")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: <output_dir>/Bundle_<lang>_<mode>.properties)")
	cmd.Flags().StringVar(&charsetName, "charset", "", "Output charset: latin1 or utf-8 (default from config)")

	_ = cmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"all", "missing-only"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// errExportFailed is shown to the user; the cause goes to the log.
var errExportFailed = errors.New("export failed, run with --verbose for details")

func runExport(sess *session.Session, mode export.Mode, cs charset.Charset, path string) error {
	text, err := sess.Export(mode)
	if err != nil {
		return err
	}

	if cs == charset.CharsetLatin1 {
		if bad := charset.Unsupported(text); len(bad) > 0 {
			logWarning(i18n.T("Characters outside ISO-8859-1 will be replaced: %s"), charset.FormatRunes(bad))
		}
	}

	data, err := charset.Encode(text, cs)
	if err == nil {
		err = writeOutput(path, data)
	}
	if err != nil {
		log.Error().Err(err).Str("path", path).Str("mode", mode.String()).Msg("export failed")
		return errExportFailed
	}

	logSuccess("%s", i18n.Tf("Wrote %s (%s)", path, charset.MediaType(cs)))
	return nil
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func newPreviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview [baseline] [target]",
		Short: i18n.T("Print the updated bundle without writing it"),
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithWorkspace(cmd, func(ctx context.Context, w *workspace) error {
				if err := w.load(ctx, args); err != nil {
					return err
				}
				text, err := w.sess.Preview()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

// ---------------------------------------------------------------------------
// set / get
// ---------------------------------------------------------------------------

func newSetCmd() *cobra.Command {
	var baseline, target string

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: i18n.T("Save a translation for a key"),
		Long: `Save an edited translation. The value is trimmed and typographic
punctuation is replaced with plain characters (’ → ', … → ..., — → -).
An empty value is saved too and overrides the target file's value.

When the bundles are known (flags or .propdiff.yaml), the English text is
recorded in propdiff.lock so that later changes to it are reported as stale.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithWorkspace(cmd, func(ctx context.Context, w *workspace) error {
				b, t := w.bundleArgs(nil)
				if baseline != "" {
					b = baseline
				}
				if target != "" {
					t = target
				}
				if b != "" && t != "" {
					if err := w.sess.Load(ctx, source.Resolve(b), source.Resolve(t)); err != nil {
						return err
					}
				}

				res, err := w.sess.Edit(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if len(res.Unsupported) > 0 {
					logWarning(i18n.T("Characters outside ISO-8859-1: %s"), charset.FormatRunes(res.Unsupported))
				}
				if w.sess.Loaded() && !w.sess.Baseline().Has(res.Key) {
					logWarning(i18n.T("%s is not a baseline key and will not be exported"), res.Key)
				}
				logSuccess("%s=%s", res.Key, res.Value)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&baseline, "baseline", "", "Baseline bundle (for stale tracking)")
	cmd.Flags().StringVar(&target, "target", "", "Target bundle (for stale tracking)")

	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: i18n.T("Print the saved translation for a key"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithWorkspace(cmd, func(ctx context.Context, w *workspace) error {
				v, ok := w.st.Get(args[0])
				if !ok {
					logInfo(i18n.T("%s has no saved translation"), args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

// ---------------------------------------------------------------------------
// check / normalize
// ---------------------------------------------------------------------------

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <text>",
		Short: i18n.T("List characters that cannot be written as ISO-8859-1"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bad := charset.Unsupported(args[0])
			if len(bad) == 0 {
				logSuccess("%s", i18n.T("All characters fit in ISO-8859-1"))
				return nil
			}
			for _, r := range bad {
				fmt.Fprintf(cmd.OutOrStdout(), "U+%04X\t%c\n", r, r)
			}
			if textnorm.NeedsNormalization(args[0]) {
				logInfo("%s", i18n.T("Some of them are fixed by `propdiff normalize`"))
			}
			return nil
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	cursor := -1

	cmd := &cobra.Command{
		Use:   "normalize <text>",
		Short: i18n.T("Replace typographic punctuation with plain characters"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cursor < 0 {
				fmt.Fprintln(cmd.OutOrStdout(), textnorm.String(args[0]))
				return nil
			}
			out, sel := textnorm.Normalize(args[0], textnorm.Selection{Start: cursor, End: cursor})
			fmt.Fprintln(cmd.OutOrStdout(), out)
			fmt.Fprintln(cmd.OutOrStdout(), strconv.Itoa(sel.Start))
			return nil
		},
	}

	cmd.Flags().IntVar(&cursor, "cursor", -1, "Also print where a caret at this code point offset ends up")

	return cmd
}

// ---------------------------------------------------------------------------
// store
// ---------------------------------------------------------------------------

func newStoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "store",
		Short: i18n.T("Show where translations are stored"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithWorkspace(cmd, func(ctx context.Context, w *workspace) error {
				path := w.cfg.Store.Path
				if path == "" {
					p, err := store.DefaultPath(w.cfg.Store.Backend)
					if err != nil {
						return err
					}
					path = p
				}
				fmt.Fprintf(os.Stderr, "  Backend:  %s\n", w.cfg.Store.Backend)
				if path != "" {
					fmt.Fprintf(os.Stderr, "  Path:     %s\n", path)
				}
				fmt.Fprintf(os.Stderr, "  Entries:  %s\n", fmt.Sprintf(i18n.N("%d key", "%d keys", w.st.Len()), w.st.Len()))
				if w.lock != nil {
					fmt.Fprintf(os.Stderr, "  Lock:     %s (%s)\n", w.lock.Path(), w.lock.Summary())
				}
				return nil
			})
		},
	}
}
