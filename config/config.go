// Package config reads the CLI flags and heat-source configuration file
// that parametrize a run, and refines the requested domain shape to the
// block-divisibility invariant the rest of the module assumes.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/heatsim/heatsim/block"
	"github.com/heatsim/heatsim/source"
)

// Error kinds, matching the four fatal categories of the error design:
// config, resource, I/O and peer. Every returned error wraps exactly one
// of these so callers can classify it with errors.Is.
var (
	ErrConfig   = errors.New("config")
	ErrResource = errors.New("resource")
	ErrIO       = errors.New("i/o")
	ErrPeer     = errors.New("peer")
)

// ErrHelp is returned by ParseFlags when -h/--help was given; it is not a
// failure, and callers should print the usage text, report no error and
// exit 0.
var ErrHelp = errors.New("help requested")

// Config is the immutable set of parameters threaded through a run. It is
// assembled in two steps: ParseFlags reads the command line, then
// ReadSourcesFile reads the sources file named by SourcesFile, whose
// process layout fills Layout. Load performs both steps plus Refine.
type Config struct {
	Rows, Cols, Timesteps int
	SourcesFile           string
	GenerateImage         bool
	ImageFile             string
	Layout                block.ProcessLayout
}

const (
	defaultSourcesFile = "heat.conf"
	defaultImageFile   = "heat.ppm"
)

// ParseFlags parses args (excluding the program name, as in os.Args[1:])
// into a Config. --size=N sets both rows and cols unless -r/-c was given
// explicitly; --output takes an optional value, defaulting to "heat.ppm"
// and otherwise leaving image generation disabled.
func ParseFlags(prog string, args []string) (*Config, error) {
	fs := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	rows := fs.IntP("rows", "r", 0, "use ROWS as the number of rows of the surface")
	cols := fs.IntP("cols", "c", 0, "use COLS as the number of columns of the surface")
	size := fs.IntP("size", "s", 0, "use SIZExSIZE matrix as the surface")
	timesteps := fs.IntP("timesteps", "t", 0, "use TIMESTEPS as the number of timesteps")
	sourcesFile := fs.StringP("sources-file", "f", defaultSourcesFile, "get the heat sources from the NAME configuration file")
	output := fs.StringP("output", "o", "", "save the computed matrix to a PPM file")
	fs.Lookup("output").NoOptDefVal = defaultImageFile
	help := fs.BoolP("help", "h", false, "display this help and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if *help {
		return nil, ErrHelp
	}

	if fs.Changed("size") {
		if !fs.Changed("rows") {
			*rows = *size
		}
		if !fs.Changed("cols") {
			*cols = *size
		}
	}

	if *rows <= 0 || *cols <= 0 || *timesteps <= 0 {
		return nil, fmt.Errorf("%w: --rows, --cols (or --size) and --timesteps are mandatory and must be positive", ErrConfig)
	}

	cfg := &Config{
		Rows:          *rows,
		Cols:          *cols,
		Timesteps:     *timesteps,
		SourcesFile:   *sourcesFile,
		GenerateImage: fs.Changed("output"),
		ImageFile:     defaultImageFile,
	}
	if cfg.GenerateImage && *output != "" {
		cfg.ImageFile = *output
	}
	return cfg, nil
}

// Usage returns the help text printed for -h/--help, reproducing the
// parameter list of the program this module's CLI surface is modeled on.
func Usage(prog string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage: %s <-s size> | <-r rows -c cols> <-t timesteps> [OPTION]...\n", prog)
	b.WriteString("Parameters:\n")
	b.WriteString("  -s, --size=SIZE\t\tuse SIZExSIZE matrix as the surface\n")
	b.WriteString("  -r, --rows=ROWS\t\tuse ROWS as the number of rows of the surface\n")
	b.WriteString("  -c, --cols=COLS\t\tuse COLS as the number of columns of the surface\n")
	b.WriteString("  -t, --timesteps=TIMESTEPS\tuse TIMESTEPS as the number of timesteps\n\n")
	b.WriteString("Optional parameters:\n")
	fmt.Fprintf(&b, "  -f, --sources-file=NAME\tget the heat sources from the NAME configuration file (default: %s)\n", defaultSourcesFile)
	fmt.Fprintf(&b, "  -o, --output[=NAME]\t\tsave the computed matrix to a PPM file, being '%s' the default name (disabled by default)\n", defaultImageFile)
	b.WriteString("  -h, --help\t\t\tdisplay this help and exit\n\n")
	return b.String()
}

// ReadSourcesFile parses a heat-source configuration file: line 1 is
// "Px Py", line 2 is the source count K, and the next K lines are each
// "row col range temperature".
func ReadSourcesFile(path string) (block.ProcessLayout, []source.HeatSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return block.ProcessLayout{}, nil, fmt.Errorf("%w: configuration file %s not found: %v", ErrIO, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	pl, err := readProcessLayout(scanner, path)
	if err != nil {
		return block.ProcessLayout{}, nil, err
	}

	count, err := readSourceCount(scanner, path)
	if err != nil {
		return block.ProcessLayout{}, nil, err
	}

	sources := make([]source.HeatSource, 0, count)
	for i := 0; i < count; i++ {
		src, err := readSourceLine(scanner, path, i)
		if err != nil {
			return block.ProcessLayout{}, nil, err
		}
		sources = append(sources, src)
	}

	return pl, sources, nil
}

func readProcessLayout(scanner *bufio.Scanner, path string) (block.ProcessLayout, error) {
	if !scanner.Scan() {
		return block.ProcessLayout{}, fmt.Errorf("%w: configuration file %s is empty", ErrConfig, path)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != 2 {
		return block.ProcessLayout{}, fmt.Errorf("%w: configuration file %s: line 1 must be \"Px Py\"", ErrConfig, path)
	}
	px, errPx := strconv.Atoi(fields[0])
	py, errPy := strconv.Atoi(fields[1])
	if errPx != nil || errPy != nil || px <= 0 || py <= 0 {
		return block.ProcessLayout{}, fmt.Errorf("%w: configuration file %s: invalid process layout %q", ErrConfig, path, scanner.Text())
	}
	return block.ProcessLayout{Px: px, Py: py}, nil
}

func readSourceCount(scanner *bufio.Scanner, path string) (int, error) {
	if !scanner.Scan() {
		return 0, fmt.Errorf("%w: configuration file %s: missing heat source count", ErrConfig, path)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != 1 {
		return 0, fmt.Errorf("%w: configuration file %s: line 2 must be a single integer K", ErrConfig, path)
	}
	k, err := strconv.Atoi(fields[0])
	if err != nil || k < 0 {
		return 0, fmt.Errorf("%w: configuration file %s: invalid heat source count %q", ErrConfig, path, scanner.Text())
	}
	return k, nil
}

func readSourceLine(scanner *bufio.Scanner, path string, index int) (source.HeatSource, error) {
	if !scanner.Scan() {
		return source.HeatSource{}, fmt.Errorf("%w: configuration file %s: missing heat source line %d", ErrConfig, path, index+1)
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) != 4 {
		return source.HeatSource{}, fmt.Errorf("%w: configuration file %s: heat source line %d must have 4 fields", ErrConfig, path, index+1)
	}
	values := make([]float64, 4)
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return source.HeatSource{}, fmt.Errorf("%w: configuration file %s: heat source line %d: %v", ErrConfig, path, index+1, err)
		}
		values[i] = v
	}
	return source.HeatSource{Row: values[0], Col: values[1], Range: values[2], Temperature: values[3]}, nil
}

// Refine rounds rows and cols up so that rows % (pl.Px*block.BSX) == 0 and
// cols % (pl.Py*block.BSY) == 0, writing a diagnostic to stderr whenever
// rounding actually changes a value.
func Refine(rows, cols int, pl block.ProcessLayout) (int, int) {
	rowValue := pl.Px * block.BSX
	colValue := pl.Py * block.BSY

	if rows%rowValue != 0 {
		refined := block.Round(rows, rowValue)
		fmt.Fprintf(os.Stderr, "Warning: The number of rows (%d) is not divisible by %d. Rounding it to %d...\n", rows, rowValue, refined)
		rows = refined
	}
	if cols%colValue != 0 {
		refined := block.Round(cols, colValue)
		fmt.Fprintf(os.Stderr, "Warning: The number of cols (%d) is not divisible by %d. Rounding it to %d...\n", cols, colValue, refined)
		cols = refined
	}
	return rows, cols
}

// Load combines ParseFlags, ReadSourcesFile and Refine into the full
// configuration-loading sequence the original program's readConfiguration
// performs in one call.
func Load(prog string, args []string) (*Config, []source.HeatSource, error) {
	cfg, err := ParseFlags(prog, args)
	if err != nil {
		return nil, nil, err
	}

	pl, sources, err := ReadSourcesFile(cfg.SourcesFile)
	if err != nil {
		return nil, nil, err
	}

	cfg.Layout = pl
	cfg.Rows, cfg.Cols = Refine(cfg.Rows, cfg.Cols, pl)
	return cfg, sources, nil
}

// RanksEnvVar names the environment variable a job supervisor sets to the
// number of workers it actually launched. It plays the role MPI_Comm_size
// plays in the original: a value supplied by the runtime, independent of
// anything the configuration file declares.
const RanksEnvVar = "HEATSIM_RANKS"

// CheckRankCount compares pl.Size() against RanksEnvVar, when set. An
// unset variable means the caller is running a single, self-contained
// process and there is nothing to cross-check.
func CheckRankCount(pl block.ProcessLayout) error {
	v := os.Getenv(RanksEnvVar)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", ErrConfig, RanksEnvVar, v)
	}
	if n != pl.Size() {
		return fmt.Errorf("%w: %s=%d does not match configured process layout %dx%d (%d workers)", ErrConfig, RanksEnvVar, n, pl.Px, pl.Py, pl.Size())
	}
	return nil
}

// Echo writes the human-readable configuration summary the original
// program prints on rank 0 before solving.
func Echo(w io.Writer, cfg *Config, sources []source.HeatSource) {
	fmt.Fprintf(w, "Rows x Cols       : %d x %d\n", cfg.Rows, cfg.Cols)
	fmt.Fprintf(w, "Timesteps         : %d\n", cfg.Timesteps)
	fmt.Fprintf(w, "Num. heat sources : %d\n", len(sources))
	fmt.Fprintf(w, "Process layout    : %d x %d\n", cfg.Layout.Px, cfg.Layout.Py)
	for i, src := range sources {
		fmt.Fprintf(w, "  %2d: (%2.2f, %2.2f) %2.2f %2.2f\n", i+1, src.Row, src.Col, src.Range, src.Temperature)
	}
}
