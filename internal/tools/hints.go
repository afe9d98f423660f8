package tools

import "runtime"

// InstallHints returns platform-specific install suggestions for a tool.
func InstallHints(tool string) []string {
	switch tool {
	case "ffmpeg", "ffprobe":
		return ffmpegHints()
	case "edge-tts":
		return []string{"Install edge-tts with pip: pip install edge-tts"}
	default:
		return nil
	}
}

func ffmpegHints() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"Install ffmpeg via Homebrew: brew install ffmpeg",
		}
	case "linux":
		return []string{
			"Install ffmpeg with your distro package manager, e.g. sudo apt install ffmpeg",
		}
	case "windows":
		return []string{
			"Install ffmpeg via winget: winget install Gyan.FFmpeg",
			"or via Chocolatey: choco install ffmpeg",
		}
	default:
		return []string{"Install ffmpeg using your platform's package manager"}
	}
}
