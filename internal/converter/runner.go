package converter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
)

// tailLines is how much converter output is kept for error messages.
const tailLines = 20

// Commander produces the converter command line.
type Commander interface {
	Args() ([]string, error)
}

// Runner executes converter command lines.
type Runner struct {
	// Output receives the combined converter output as it is produced.
	Output io.Writer
	Logger grip.Journaler
}

func NewRunner(out io.Writer, logger grip.Journaler) *Runner {
	if logger == nil {
		logger = logging.MakeGrip(grip.GetSender())
	}
	return &Runner{Output: out, Logger: logger}
}

// Run runs the converter and returns the output file path from opts.
func (r *Runner) Run(ctx context.Context, name string, cmdr Commander, outputFile string) (string, error) {
	args, err := cmdr.Args()
	if err != nil {
		return "", err
	}

	r.Logger.Info(message.Fields{
		"message":   "starting converter",
		"converter": name,
		"args":      strings.Join(args, " "),
	})

	tail := &tailWriter{max: tailLines}
	var w io.Writer = tail
	if r.Output != nil {
		w = io.MultiWriter(r.Output, tail)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s cancelled: %w", name, ctx.Err())
		}
		return "", fmt.Errorf("running %s: %w\n%s", name, err, tail.String())
	}

	if outputFile != "" {
		info, err := os.Stat(outputFile)
		if err != nil {
			return "", fmt.Errorf("%s finished but produced no output file %s: %w", name, outputFile, err)
		}
		r.Logger.Info(message.Fields{
			"message":   "converter finished",
			"converter": name,
			"output":    outputFile,
			"bytes":     info.Size(),
		})
	}
	return outputFile, nil
}

// RunOSM runs OSM2Graphium.
func (r *Runner) RunOSM(ctx context.Context, opts OSMOptions) (string, error) {
	return r.Run(ctx, "osm2graphium", opts, opts.OutputFile())
}

// RunGIP runs IDF2Graphium.
func (r *Runner) RunGIP(ctx context.Context, opts GIPOptions) (string, error) {
	return r.Run(ctx, "idf2graphium", opts, opts.OutputFile())
}

// tailWriter keeps the last max lines written to it.
type tailWriter struct {
	mu    sync.Mutex
	max   int
	lines []string
	part  bytes.Buffer
}

func (t *tailWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.part.Write(p)
	for {
		line, err := t.part.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			t.part.Reset()
			t.part.WriteString(line)
			break
		}
		t.push(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (t *tailWriter) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailWriter) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]string(nil), t.lines...)
	if t.part.Len() > 0 {
		out = append(out, t.part.String())
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
