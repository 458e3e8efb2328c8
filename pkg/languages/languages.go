// Package languages holds the per-language execution recipes: file
// extension, default image, compile/run command templates, and the library
// installation command. Built-ins cover the supported set; deployments can
// extend or override them from a YAML file.
package languages

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnsupported = errors.New("unsupported language")

// FilePlaceholder in command templates is replaced with the code file path.
const FilePlaceholder = "{file}"

// LibPlaceholder in install templates is replaced with the library name.
// Templates without it get the library appended as a final argument.
const LibPlaceholder = "{lib}"

type Language struct {
	Name      string   `yaml:"name"`
	Extension string   `yaml:"extension"`
	Image     string   `yaml:"image"`
	Workdir   string   `yaml:"workdir,omitempty"`
	Compile   []string `yaml:"compile,omitempty"`
	Run       []string `yaml:"run"`
	Install   []string `yaml:"install,omitempty"`
	// Setup commands run once when a session opens, before any code runs.
	Setup [][]string `yaml:"setup,omitempty"`
}

// CodeFileName is the in-sandbox name the code is written to.
func (l Language) CodeFileName() string {
	return "code." + l.Extension
}

// Commands expands the compile (if any) and run templates against the given
// code file path. The run command is always last.
func (l Language) Commands(file string) [][]string {
	var cmds [][]string
	if len(l.Compile) > 0 {
		cmds = append(cmds, expand(l.Compile, file))
	}
	cmds = append(cmds, expand(l.Run, file))
	return cmds
}

// InstallCommand returns the command installing one library, or
// ErrUnsupported when the language has no package manager recipe.
func (l Language) InstallCommand(library string) ([]string, error) {
	if len(l.Install) == 0 {
		return nil, fmt.Errorf("%w: %s has no library installation", ErrUnsupported, l.Name)
	}
	cmd := make([]string, len(l.Install), len(l.Install)+1)
	substituted := false
	for i, a := range l.Install {
		cmd[i] = strings.ReplaceAll(a, LibPlaceholder, library)
		if cmd[i] != a {
			substituted = true
		}
	}
	if !substituted {
		cmd = append(cmd, library)
	}
	return cmd, nil
}

func expand(tmpl []string, file string) []string {
	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = strings.ReplaceAll(a, FilePlaceholder, file)
	}
	return out
}

// Registry maps language names to recipes.
type Registry struct {
	langs map[string]Language
}

// NewRegistry returns a registry preloaded with the built-in languages.
func NewRegistry() *Registry {
	r := &Registry{langs: make(map[string]Language)}
	for _, l := range builtins {
		r.langs[l.Name] = l
	}
	return r
}

func (r *Registry) Get(name string) (Language, error) {
	l, ok := r.langs[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Language{}, fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
	return l, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.langs))
	for name := range r.langs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile merges language definitions from a YAML file. Entries with a name
// matching a built-in override it wholesale.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read languages file: %w", err)
	}
	var defs []Language
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("failed to parse languages file: %w", err)
	}
	for _, l := range defs {
		if l.Name == "" || l.Extension == "" || len(l.Run) == 0 {
			return fmt.Errorf("language entry %q missing name, extension or run command", l.Name)
		}
		if l.Workdir == "" {
			l.Workdir = "/tmp"
		}
		r.langs[strings.ToLower(l.Name)] = l
	}
	return nil
}

var builtins = []Language{
	{
		Name:      "python",
		Extension: "py",
		Image:     "python:3.11-bullseye",
		Workdir:   "/tmp",
		Run:       []string{"python", FilePlaceholder},
		Install:   []string{"pip", "install"},
	},
	{
		Name:      "java",
		Extension: "java",
		Image:     "openjdk:17-bullseye",
		Workdir:   "/tmp",
		Run:       []string{"java", FilePlaceholder},
		Install:   []string{"mvn", "install:install-file", "-Dfile=" + LibPlaceholder},
	},
	{
		Name:      "javascript",
		Extension: "js",
		Image:     "node:22-bullseye",
		Workdir:   "/tmp",
		Run:       []string{"node", FilePlaceholder},
		Install:   []string{"yarn", "add"},
	},
	{
		Name:      "cpp",
		Extension: "cpp",
		Image:     "gcc:12-bullseye",
		Workdir:   "/tmp",
		Compile:   []string{"g++", "-o", "a.out", FilePlaceholder},
		Run:       []string{"./a.out"},
		Install:   []string{"apt-get", "install", "-y"},
	},
	{
		Name:      "go",
		Extension: "go",
		Image:     "golang:1.23",
		Workdir:   "/go_space",
		Run:       []string{"go", "run", FilePlaceholder},
		Install:   []string{"go", "get", "-u"},
		// Runs in the workdir when the session opens.
		Setup: [][]string{
			{"go", "mod", "init", "go_space"},
			{"go", "mod", "tidy"},
		},
	},
	{
		Name:      "ruby",
		Extension: "rb",
		Image:     "ruby:3.2-bullseye",
		Workdir:   "/tmp",
		Run:       []string{"ruby", FilePlaceholder},
		Install:   []string{"gem", "install"},
	},
}
