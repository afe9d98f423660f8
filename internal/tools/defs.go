package tools

import "runtime"

// ToolDefinition contains metadata required to locate a tool.
type ToolDefinition struct {
	Name          string
	Executable    string
	VersionSwitch string
	Purpose       string
	Required      bool
}

var toolDefinitions = []ToolDefinition{
	{
		Name:          "ffmpeg",
		Executable:    executableName("ffmpeg"),
		VersionSwitch: "-version",
		Purpose:       "segment encode and concat",
		Required:      true,
	},
	{
		Name:          "ffprobe",
		Executable:    executableName("ffprobe"),
		VersionSwitch: "-version",
		Purpose:       "duration measurement",
		Required:      false,
	},
	{
		Name:          "edge-tts",
		Executable:    executableName("edge-tts"),
		VersionSwitch: "--version",
		Purpose:       "narration synthesis",
		Required:      true,
	},
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// Definitions returns the known tools in display order.
func Definitions() []ToolDefinition {
	out := make([]ToolDefinition, len(toolDefinitions))
	copy(out, toolDefinitions)
	return out
}

// Definition returns the tool definition for the provided name.
func Definition(name string) (ToolDefinition, bool) {
	for _, def := range toolDefinitions {
		if def.Name == name {
			return def, true
		}
	}
	return ToolDefinition{}, false
}
