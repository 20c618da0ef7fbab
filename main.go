// bundlekit — maintains i18next JSON translation bundles: merges sections
// from source documents and applies whole-word substitutions.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tatoclean/bundlekit/bundle"
	"github.com/tatoclean/bundlekit/config"
	"github.com/tatoclean/bundlekit/i18n"
	"github.com/tatoclean/bundlekit/langmeta"
	"github.com/tatoclean/bundlekit/lockfile"
	"github.com/tatoclean/bundlekit/merge"
	"github.com/tatoclean/bundlekit/wordsub"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors, cleared by disableColors.
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow, colorBlue = "", "", "", "", ""
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

// logSuccess prints the one-line result of a command on stdout.
func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stdout, colorGreen+"[OK]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+i18n.T(format)+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir string
	uiLang  string
	noColor bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bundlekit",
		Short: "Merge and maintain i18next JSON translation bundles",
		Long: `bundlekit — maintains i18next JSON translation bundles.

Merges sections from source documents into locale bundles (for example a
"legal" section with cookie, privacy, terms and disclaimers), applies
whole-word substitutions to bundle text, and validates bundle files.
Bundles may start with a byte-order mark; they are always written back
as UTF-8 without one, 4-space indented, with key order preserved.

Commands:
  merge       Merge keys from source documents into one bundle
  replace     Replace standalone words in a bundle's values
  apply       Run the jobs declared in .bundlekit.yaml
  validate    Check that bundle files are valid JSON objects
  status      Show locales, key counts and stale merges`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init(uiLang)
			if noColor || os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr) || !isTerminal(os.Stdout) {
				disableColors()
			}
		},
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory (location of .bundlekit.yaml)")
	root.PersistentFlags().StringVar(&uiLang, "lang", "", "Language of bundlekit's own messages (default: from environment)")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newMergeCmd(),
		newReplaceCmd(),
		newApplyCmd(),
		newValidateCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bundlekit version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// merge (assign keys from source documents into one bundle)
// ---------------------------------------------------------------------------

type mergeArgs struct {
	target    string
	from      []string
	inline    string
	hasInline bool
	keys      []string
	dryRun    bool
}

func newMergeCmd() *cobra.Command {
	var a mergeArgs

	cmd := &cobra.Command{
		Use:   "merge TARGET",
		Short: "Merge keys from source documents into a bundle",
		Long: `Assign values from source documents into the TARGET bundle.

Each --from takes FILE:KEY or FILE:KEY=TARGET_KEY, where keys are dotted
paths. A nested TARGET_KEY requires its parent section to exist already;
the command fails rather than create it. Every source is loaded before the
target is written, so a failing source leaves the target untouched.

Examples:
  # Whole section
  bundlekit merge src/locales/en/translation.json \
      --from legal-translations-en-clean.json:legal

  # Sub-keys under an existing section
  bundlekit merge src/locales/en/translation.json \
      --from legal-additions-en.json:privacy=legal.privacy \
      --from legal-additions-en.json:terms=legal.terms

  # Inline source document
  bundlekit merge src/locales/es/translation.json \
      --inline '{"legal": {"menu_title": "Legal"}}' --key legal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.target = args[0]
			a.hasInline = cmd.Flags().Changed("inline")
			return runMerge(a)
		},
	}

	cmd.Flags().StringArrayVar(&a.from, "from", nil, "Source as FILE:KEY[=TARGET_KEY] (repeatable)")
	cmd.Flags().StringVar(&a.inline, "inline", "", "Inline JSON source document")
	cmd.Flags().StringArrayVarP(&a.keys, "key", "k", nil, "KEY[=TARGET_KEY] to take from --inline (repeatable)")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would change without writing")
	cmd.MarkFlagsOneRequired("from", "inline")
	cmd.MarkFlagsRequiredTogether("inline", "key")

	return cmd
}

func runMerge(a mergeArgs) error {
	groups, err := groupFromSpecs(a.from)
	if err != nil {
		return err
	}

	// Load every source before touching the target.
	var sources []merge.Source
	for _, g := range groups {
		src, err := merge.LoadSource(g.file, g.assignments)
		if err != nil {
			return err
		}
		sources = append(sources, src)
	}

	if a.hasInline {
		doc, err := bundle.Parse([]byte(a.inline))
		if err != nil {
			return fmt.Errorf("--inline: %w", err)
		}
		var assignments []merge.Assignment
		for _, k := range a.keys {
			asg, err := merge.ParseAssignment(k)
			if err != nil {
				return err
			}
			assignments = append(assignments, asg)
		}
		sources = append(sources, merge.Source{Name: "inline", Doc: doc, Assignments: assignments})
	}

	res, err := merge.File(a.target, sources, a.dryRun)
	if err != nil {
		return err
	}
	reportMerge(res, "")
	return nil
}

type sourceGroup struct {
	file        string
	assignments []merge.Assignment
}

// parseFromSpec splits FILE:KEY[=TARGET_KEY] at the last colon; i18next
// reserves ':' as its namespace separator, so keys never contain one.
func parseFromSpec(s string) (string, merge.Assignment, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return "", merge.Assignment{}, fmt.Errorf("--from %q: want FILE:KEY[=TARGET_KEY]", s)
	}
	asg, err := merge.ParseAssignment(s[i+1:])
	if err != nil {
		return "", merge.Assignment{}, fmt.Errorf("--from %q: %w", s, err)
	}
	return s[:i], asg, nil
}

// groupFromSpecs groups --from values by file, in order of first use.
func groupFromSpecs(specs []string) ([]sourceGroup, error) {
	var groups []sourceGroup
	index := make(map[string]int)
	for _, s := range specs {
		file, asg, err := parseFromSpec(s)
		if err != nil {
			return nil, err
		}
		i, ok := index[file]
		if !ok {
			i = len(groups)
			index[file] = i
			groups = append(groups, sourceGroup{file: file})
		}
		groups[i].assignments = append(groups[i].assignments, asg)
	}
	return groups, nil
}

func reportMerge(res *merge.Result, label string) {
	keys := make([]string, 0, len(res.Assigned))
	for _, a := range res.Assigned {
		keys = append(keys, a.Path.String())
	}
	if label != "" {
		label = "[" + label + "] "
	}

	switch {
	case !res.Written && res.Changed:
		logInfo("%sDry run: %s would be updated (%s)", label, res.Target, strings.Join(keys, ", "))
	case !res.Written:
		logInfo("%sDry run: %s is already up to date", label, res.Target)
	case res.Changed:
		logSuccess("%s%s updated (%s)", label, res.Target, strings.Join(keys, ", "))
	default:
		logSuccess("%s%s already up to date (%s)", label, res.Target, strings.Join(keys, ", "))
	}
}

// ---------------------------------------------------------------------------
// replace (whole-word substitution in bundle values)
// ---------------------------------------------------------------------------

type replaceArgs struct {
	file   string
	pairs  []string
	dryRun bool
}

func newReplaceCmd() *cobra.Command {
	var a replaceArgs

	cmd := &cobra.Command{
		Use:   "replace FILE",
		Short: "Replace standalone words in a bundle's values",
		Long: `Replace every standalone occurrence of each word in the string values
of the FILE bundle. A word is standalone when it is not part of a longer
word: "para" matches in "para mi" but not in "reparar" or "paraíso".
Matching is case-sensitive, so give each case variant its own pair.
Keys are never rewritten.

Occurrences are counted and reported first; the file is not written when
none are found.

Example:
  bundlekit replace src/locales/es/translation.json \
      --pair "para=pa'" --pair "Para=Pa'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.file = args[0]
			return runReplace(a)
		},
	}

	cmd.Flags().StringArrayVarP(&a.pairs, "pair", "p", nil, "FROM=TO word pair (repeatable)")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Only count occurrences")
	_ = cmd.MarkFlagRequired("pair")

	return cmd
}

func runReplace(a replaceArgs) error {
	var pairs []wordsub.Pair
	for _, s := range a.pairs {
		p, err := wordsub.ParsePair(s)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
	}
	sub, err := wordsub.New(pairs)
	if err != nil {
		return err
	}

	_, err = substituteFile(a.file, sub, a.dryRun, "")
	return err
}

// substituteFile counts and replaces the words of sub in the bundle at
// path. The file is written only when something was found.
func substituteFile(path string, sub *wordsub.Substituter, dryRun bool, label string) (wordsub.Report, error) {
	b, err := bundle.ParseFile(path)
	if err != nil {
		return wordsub.Report{}, err
	}
	if label != "" {
		label = "[" + label + "] "
	}

	report := sub.CountBundle(b)
	for i, p := range report.Pairs {
		logInfo("%sFound %d instances of '%s' in %s", label, report.Counts[i], p.From, path)
	}

	if report.Total() == 0 {
		logWarning("%sNo instances found in %s; it might already be updated", label, path)
		return report, nil
	}
	if dryRun {
		logInfo("%sDry run: %s not written", label, path)
		return report, nil
	}

	sub.ApplyBundle(b)
	if err := b.WriteFile(path); err != nil {
		return report, err
	}
	logSuccess("%sReplacement complete: %s in %s", label, occurrences(report.Total()), path)
	return report, nil
}

func occurrences(n int) string {
	return fmt.Sprintf(i18n.N("%d occurrence", "%d occurrences", n), n)
}

// ---------------------------------------------------------------------------
// apply (run recipe jobs)
// ---------------------------------------------------------------------------

func newApplyCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "apply [JOB...]",
		Short: "Run the jobs declared in .bundlekit.yaml",
		Long: `Run the merge and substitution jobs declared in .bundlekit.yaml.

Merge jobs run first, then substitution jobs, each in declaration order
and for each of its locales. Name jobs to run only those. After a
successful run the checksums of merged values are recorded in
bundlekit.lock so that 'status' can report sources that changed since.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")

	return cmd
}

func loadRecipe() (*config.File, error) {
	f, err := config.Load(rootDir)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("no %s found in %s", config.FileName, rootDir)
	}
	return f, nil
}

func runApply(names []string, dryRun bool) error {
	f, err := loadRecipe()
	if err != nil {
		return err
	}
	merges, subs, err := f.Select(names)
	if err != nil {
		return err
	}
	if len(merges)+len(subs) == 0 {
		logWarning("No jobs declared in %s", f.Path())
		return nil
	}

	lf, err := lockfile.Load(f.Dir())
	if err != nil {
		return err
	}

	for _, j := range merges {
		for _, lang := range j.Locales {
			src, err := f.LoadSource(j, lang)
			if err != nil {
				return fmt.Errorf("merge %q (%s): %w", j.Name, lang, err)
			}
			res, err := merge.File(f.BundlePath(lang), []merge.Source{src}, dryRun)
			if err != nil {
				return fmt.Errorf("merge %q (%s): %w", j.Name, lang, err)
			}
			reportMerge(res, j.Name+"/"+lang)

			for _, a := range res.Assigned {
				content, err := lockfile.ValueContent(a.Value)
				if err != nil {
					return err
				}
				lf.Update(f.BundleKey(lang), a.Path.String(), content)
			}
		}
	}

	for _, j := range subs {
		for _, lang := range j.Locales {
			if _, err := substituteFile(f.BundlePath(lang), j.Substituter(), dryRun, j.Name+"/"+lang); err != nil {
				return fmt.Errorf("substitution %q (%s): %w", j.Name, lang, err)
			}
		}
	}

	if dryRun || len(merges) == 0 {
		return nil
	}
	if len(names) == 0 {
		pruneLock(f, lf)
	}
	if err := lf.Save(); err != nil {
		return err
	}
	logInfo("Lock file updated: %s", lf.Path())
	return nil
}

// pruneLock drops lock entries that no merge job of f produces any more.
func pruneLock(f *config.File, lf *lockfile.LockFile) {
	current := make(map[string][]string)
	for _, j := range f.Merges {
		for _, lang := range j.Locales {
			target := f.BundleKey(lang)
			for _, a := range j.Assignments() {
				current[target] = append(current[target], a.To.String())
			}
		}
	}
	for _, target := range lf.Targets() {
		lf.Clean(target, current[target])
	}
}

// ---------------------------------------------------------------------------
// validate (read-only JSON check)
// ---------------------------------------------------------------------------

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [FILE...]",
		Short: "Check that bundle files are valid JSON objects",
		Long: `Parse each FILE as a bundle and report whether it is a valid JSON
object. Without arguments, every locale bundle declared in .bundlekit.yaml
is checked. Exits with an error if any file is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args)
		},
	}

	return cmd
}

func runValidate(files []string) error {
	if len(files) == 0 {
		f, err := loadRecipe()
		if err != nil {
			return err
		}
		for _, lang := range f.LocaleTags() {
			files = append(files, f.BundlePath(lang))
		}
	}

	invalid := 0
	for _, path := range files {
		if _, err := bundle.ParseFile(path); err != nil {
			logError("%s is INVALID: %v", path, err)
			invalid++
			continue
		}
		logSuccess("%s is valid JSON", path)
	}

	if invalid > 0 {
		return fmt.Errorf(i18n.T("%d of %d files invalid"), invalid, len(files))
	}
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only: locales, counts, stale merges)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show locales, key counts and stale merges",
		Long: `Show the locales declared in .bundlekit.yaml with their key counts and
the number of strings missing compared to the source language, then list
merge jobs whose source content changed since the last 'apply'.
Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}

	return cmd
}

func runStatus() error {
	f, err := config.Load(rootDir)
	if err != nil {
		return err
	}
	if f == nil {
		logWarning("No %s found in %s", config.FileName, rootDir)
		printSuggestedCommands()
		return nil
	}

	lf, err := lockfile.Load(f.Dir())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Project"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", i18n.T("Recipe:"), f.Path())
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", i18n.T("Source lang:"), f.SourceLang)
	fmt.Fprintf(os.Stderr, "  %-14s %d merge, %d substitution\n", i18n.T("Jobs:"), len(f.Merges), len(f.Substitutions))
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", i18n.T("Lock:"), lf.Summary())
	fmt.Fprintln(os.Stderr)

	showBundleStats(f)
	showStaleMerges(f, lf)
	return nil
}

func showBundleStats(f *config.File) {
	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorBlue, i18n.T("Bundles"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "%-10s %-8s %-8s %-8s %s\n", "Lang", "Keys", "Strings", "Missing", "Name")

	var sourceLeaves []bundle.Leaf
	if src, err := bundle.ParseFile(f.BundlePath(f.SourceLang)); err == nil {
		sourceLeaves = src.Leaves()
	}

	for _, lang := range f.LocaleTags() {
		meta := langmeta.Resolve(lang)
		name := strings.TrimSpace(meta.Flag + " " + meta.Name)

		b, err := bundle.ParseFile(f.BundlePath(lang))
		if err != nil {
			state := "error"
			if errors.Is(err, bundle.ErrFileNotFound) {
				state = "missing"
			}
			fmt.Fprintf(os.Stderr, "%-10s %-8s %-8s %-8s %s\n", lang, state, "-", "-", name)
			continue
		}

		missing := "-"
		if lang != f.SourceLang && sourceLeaves != nil {
			missing = fmt.Sprint(len(missingLeaves(sourceLeaves, b.Leaves())))
		}
		fmt.Fprintf(os.Stderr, "%-10s %-8d %-8d %-8s %s\n", lang, b.Len(), len(b.Leaves()), missing, name)
	}
	fmt.Fprintln(os.Stderr)
}

// missingLeaves returns the paths of source strings that have no string
// at the same path in other.
func missingLeaves(source, other []bundle.Leaf) []string {
	have := make(map[string]bool, len(other))
	for _, l := range other {
		have[l.Path.String()] = true
	}
	var out []string
	for _, l := range source {
		if p := l.Path.String(); !have[p] {
			out = append(out, p)
		}
	}
	return out
}

// staleMerge is a merge assignment whose source differs from the lock.
type staleMerge struct {
	job, lang, key string
	reason         string
}

func findStaleMerges(f *config.File, lf *lockfile.LockFile) []staleMerge {
	var out []staleMerge
	for i := range f.Merges {
		j := &f.Merges[i]
		for _, lang := range j.Locales {
			src, err := f.LoadSource(j, lang)
			if err != nil {
				out = append(out, staleMerge{job: j.Name, lang: lang, reason: err.Error()})
				continue
			}
			for _, a := range src.Assignments {
				key := a.To.String()
				v, ok := src.Doc.Lookup(a.From)
				if !ok {
					out = append(out, staleMerge{job: j.Name, lang: lang, key: key, reason: "source key missing"})
					continue
				}
				content, err := lockfile.ValueContent(v)
				if err != nil {
					out = append(out, staleMerge{job: j.Name, lang: lang, key: key, reason: err.Error()})
					continue
				}
				target := f.BundleKey(lang)
				switch {
				case lf.Checksums[target][key] == "":
					out = append(out, staleMerge{job: j.Name, lang: lang, key: key, reason: "never applied"})
				case lf.IsChanged(target, key, content):
					out = append(out, staleMerge{job: j.Name, lang: lang, key: key, reason: "source changed since last apply"})
				}
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].job < out[b].job })
	return out
}

func showStaleMerges(f *config.File, lf *lockfile.LockFile) {
	stale := findStaleMerges(f, lf)
	if len(stale) == 0 {
		logSuccess("All merges are up to date")
		return
	}

	fmt.Fprintf(os.Stderr, "%s%s%s\n", colorYellow, i18n.T("Pending merges"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, s := range stale {
		where := s.job + "/" + s.lang
		if s.key != "" {
			where += " " + s.key
		}
		fmt.Fprintf(os.Stderr, "  %-40s %s\n", where, i18n.T(s.reason))
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "  %s\n\n", "bundlekit apply")
}

func printSuggestedCommands() {
	fmt.Fprintf(os.Stderr, "\n%s\n", i18n.T("Suggested commands:"))
	fmt.Fprintf(os.Stderr, "  bundlekit merge TARGET --from FILE:KEY[=TARGET_KEY]\n")
	fmt.Fprintf(os.Stderr, "  bundlekit replace FILE --pair FROM=TO\n")
	fmt.Fprintf(os.Stderr, "  bundlekit validate FILE...\n")
	fmt.Fprintf(os.Stderr, "\n%s %s\n\n", i18n.T("Declare locales and jobs in"), filepath.Join(rootDir, config.FileName))
}
