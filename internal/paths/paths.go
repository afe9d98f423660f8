package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"broadcast/internal/config"
)

// ProjectPaths captures canonical locations for a broadcast workspace.
type ProjectPaths struct {
	Root       string
	ConfigFile string
	MetaDir    string
	CacheDir   string
	WorkDir    string
	OutputDir  string
	LogsDir    string
}

// RunPaths holds the scratch locations owned by a single pipeline run.
type RunPaths struct {
	ID          string
	Root        string
	AudioDir    string
	OverlayDir  string
	SegmentsDir string
	LogsDir     string
	ConcatList  string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	metaDir := filepath.Join(root, ".broadcast")
	configFile := filepath.Join(root, "broadcast.yaml")
	if ok, _ := FileExists(filepath.Join(root, "broadcast.toml")); ok {
		if yamlOK, _ := FileExists(configFile); !yamlOK {
			configFile = filepath.Join(root, "broadcast.toml")
		}
	}
	return ProjectPaths{
		Root:       root,
		ConfigFile: configFile,
		MetaDir:    metaDir,
		CacheDir:   filepath.Join(root, "cache"),
		WorkDir:    filepath.Join(metaDir, "work"),
		OutputDir:  filepath.Join(root, "videos"),
		LogsDir:    filepath.Join(root, "logs"),
	}
}

// ApplyConfig resolves configured directories against the project root.
func ApplyConfig(pp ProjectPaths, cfg config.Config) ProjectPaths {
	if dir := strings.TrimSpace(cfg.Cache.Dir); dir != "" {
		pp.CacheDir = resolveProjectPath(pp.Root, dir)
	}
	if dir := strings.TrimSpace(cfg.Pipeline.OutputDir); dir != "" {
		pp.OutputDir = resolveProjectPath(pp.Root, dir)
	}
	return pp
}

// Run returns the scratch layout for the run identified by id.
func (p ProjectPaths) Run(id string) RunPaths {
	root := filepath.Join(p.WorkDir, id)
	return RunPaths{
		ID:          id,
		Root:        root,
		AudioDir:    filepath.Join(root, "audio"),
		OverlayDir:  filepath.Join(root, "overlays"),
		SegmentsDir: filepath.Join(root, "segments"),
		LogsDir:     filepath.Join(root, "logs"),
		ConcatList:  filepath.Join(root, "concat.txt"),
	}
}

// Ensure creates every scratch directory for the run.
func (r RunPaths) Ensure() error {
	for _, dir := range []string{r.AudioDir, r.OverlayDir, r.SegmentsDir, r.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Remove deletes the run's scratch tree.
func (r RunPaths) Remove() error {
	if strings.TrimSpace(r.Root) == "" {
		return nil
	}
	return os.RemoveAll(r.Root)
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the project root exists on disk.
func (p ProjectPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	return nil
}

// EnsureMetaDirs creates the standard cache/logs/output hierarchy alongside
// the hidden .broadcast metadata directory.
func (p ProjectPaths) EnsureMetaDirs() error {
	dirs := []string{p.MetaDir, p.CacheDir, p.WorkDir, p.OutputDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// OutputFile resolves a requested output name. Bare names land in OutputDir,
// and a missing extension becomes .mp4.
func (p ProjectPaths) OutputFile(name string) string {
	name = strings.TrimSpace(name)
	if filepath.Ext(name) == "" {
		name += ".mp4"
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	if strings.ContainsRune(name, filepath.Separator) {
		return filepath.Join(p.Root, name)
	}
	return filepath.Join(p.OutputDir, name)
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
