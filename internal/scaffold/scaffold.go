// Package scaffold writes a starter .nova directory: a config file and an
// editable copy of the built-in tour script.
package scaffold

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/npratt/nova/internal/tour"
)

// Dir is the project directory nova reads its config from.
const Dir = ".nova"

// ErrChanged is returned when an existing file differs and Force is unset.
var ErrChanged = errors.New("files have changes (use --force to overwrite)")

// Options configures Run.
type Options struct {
	Root   string // Project root; the files go in Root/.nova
	DryRun bool
	Force  bool
	Writer io.Writer
}

// File is one file to install, relative to the .nova directory.
type File struct {
	Path    string
	Content string
}

// Result lists what Run did, by relative path.
type Result struct {
	Dir         string
	Created     []string
	Overwritten []string
	Unchanged   []string
	Skipped     []string
}

type fileStatus struct {
	File
	exists    bool
	unchanged bool
	diff      string
}

// Files returns the starter files.
func Files() ([]File, error) {
	script, err := tour.DefaultScript().Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal default tour: %w", err)
	}
	return []File{
		{Path: "config.yaml", Content: starterConfig},
		{Path: "tour.yaml", Content: string(script)},
	}, nil
}

// Run installs the starter files. Existing files that differ are only
// replaced with Force; without it their diffs are printed and ErrChanged
// is returned.
func Run(opts Options) (*Result, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	files, err := Files()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(opts.Root, Dir)
	statuses, err := check(dir, files)
	if err != nil {
		return nil, err
	}
	result := &Result{Dir: dir}
	w := opts.Writer

	if opts.DryRun {
		fmt.Fprintln(w, "DRY RUN - No changes will be made")
		fmt.Fprintln(w)
		for _, s := range statuses {
			path := filepath.Join(dir, s.Path)
			switch {
			case s.unchanged:
				fmt.Fprintf(w, "Already up to date: %s\n", path)
				result.Unchanged = append(result.Unchanged, s.Path)
			case s.exists:
				fmt.Fprintf(w, "Would overwrite (has changes): %s\n%s\n", path, s.diff)
				result.Skipped = append(result.Skipped, s.Path)
			default:
				fmt.Fprintf(w, "Would create: %s\n", path)
				result.Created = append(result.Created, s.Path)
			}
		}
		fmt.Fprintln(w, "Run without --dry-run to apply changes.")
		return result, nil
	}

	if !opts.Force {
		changed := false
		for _, s := range statuses {
			if s.exists && !s.unchanged {
				fmt.Fprintf(w, "%s:\n%s\n", filepath.Join(dir, s.Path), s.diff)
				result.Skipped = append(result.Skipped, s.Path)
				changed = true
			}
		}
		if changed {
			return result, ErrChanged
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return result, fmt.Errorf("create %s: %w", dir, err)
	}
	for _, s := range statuses {
		path := filepath.Join(dir, s.Path)
		if s.unchanged {
			fmt.Fprintf(w, "Already up to date: %s\n", path)
			result.Unchanged = append(result.Unchanged, s.Path)
			continue
		}
		if err := os.WriteFile(path, []byte(s.Content), 0o644); err != nil {
			return result, fmt.Errorf("write %s: %w", path, err)
		}
		if s.exists {
			fmt.Fprintf(w, "Overwrote: %s\n", path)
			result.Overwritten = append(result.Overwritten, s.Path)
		} else {
			fmt.Fprintf(w, "Created: %s\n", path)
			result.Created = append(result.Created, s.Path)
		}
	}
	return result, nil
}

func check(dir string, files []File) ([]fileStatus, error) {
	statuses := make([]fileStatus, 0, len(files))
	for _, f := range files {
		s := fileStatus{File: f}
		data, err := os.ReadFile(filepath.Join(dir, f.Path))
		switch {
		case err == nil:
			s.exists = true
			s.unchanged = string(data) == f.Content
			if !s.unchanged {
				s.diff = UnifiedDiff("existing", "new", string(data), f.Content)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read %s: %w", f.Path, err)
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

const starterConfig = `# nova project config. Values here override ~/.config/nova/config.yaml.
# A relative tour.script is read from this directory.

tour:
  script: tour.yaml
  auto_start: true
  auto_start_delay: 1s

speech:
  engine: auto

chat:
  endpoint: http://127.0.0.1:8787
  token:
    env: NOVA_CHAT_TOKEN

relay:
  addr: 127.0.0.1:8787
  provider: openrouter
  model: openai/gpt-4o-mini
  api_key:
    env: OPENROUTER_API_KEY
  assistant: NOVA
  product: Endorsed AI
`
