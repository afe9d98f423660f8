package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ToolInfo captures availability and version details for an external tool.
type ToolInfo struct {
	Name      string `json:"name"`
	Purpose   string `json:"purpose"`
	Required  bool   `json:"required"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

// Probe discovers tool availability and version information for every known
// tool, in definition order.
func Probe(ctx context.Context) []ToolInfo {
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}

	defs := Definitions()
	result := make([]ToolInfo, 0, len(defs))
	for _, def := range defs {
		info := probeOne(ctx, def)
		result = append(result, info)
	}
	return result
}

// Lookup resolves the executable path for a known tool.
func Lookup(name string) (string, error) {
	def, ok := Definition(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	path, err := exec.LookPath(def.Executable)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", def.Executable, err)
	}
	return path, nil
}

// LookupOr resolves name, falling back to the bare executable name so that
// exec reports a clear error at run time.
func LookupOr(name string) string {
	if path, err := Lookup(name); err == nil {
		return path
	}
	if def, ok := Definition(name); ok {
		return def.Executable
	}
	return name
}

// MissingRequired returns the names of required tools that are unavailable.
func MissingRequired(infos []ToolInfo) []string {
	var missing []string
	for _, info := range infos {
		if info.Required && !info.Available {
			missing = append(missing, info.Name)
		}
	}
	return missing
}

func probeOne(ctx context.Context, def ToolDefinition) ToolInfo {
	info := ToolInfo{Name: def.Name, Purpose: def.Purpose, Required: def.Required}
	path, err := exec.LookPath(def.Executable)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			info.Error = "not found"
			return info
		}
		info.Error = err.Error()
		return info
	}
	info.Path = path
	info.Available = true

	version, err := readVersion(ctx, path, def)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Version = version
	return info
}

func readVersion(ctx context.Context, path string, def ToolDefinition) (string, error) {
	if def.VersionSwitch == "" {
		return "", nil
	}
	cmd := exec.CommandContext(ctx, path, def.VersionSwitch)
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}

	line := firstLine(strings.TrimSpace(string(output)))
	return normalizeVersionLine(def.Name, line), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

func normalizeVersionLine(name, line string) string {
	switch name {
	case "ffmpeg", "ffprobe":
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			return fields[2]
		}
	case "edge-tts":
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[len(fields)-1]
		}
	}
	return line
}
