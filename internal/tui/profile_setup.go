package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"broadcast/internal/config"
)

type option struct{ name, desc string }

var modeInfo = []option{
	{config.ModeBroadcast, "Highlight footage loops under a transparent\nlower-third overlay. Needs clips from the stats API."},
	{config.ModeClassic, "Full-frame slides with a slow zoom, highlight\nclips spliced in after every second slide."},
	{config.ModeAuto, "Broadcast when any clip is found,\notherwise classic."},
}

var voiceInfo = []option{
	{"en-US-AndrewNeural", "Warm, confident US male"},
	{"en-US-GuyNeural", "Energetic US male, sports-radio feel"},
	{"en-US-AriaNeural", "Clear US female"},
	{"en-GB-RyanNeural", "British male"},
}

var resolutionInfo = []option{
	{"1280×720", "HD: smaller files, faster encodes"},
	{"1920×1080", "Full HD: recommended for uploads"},
}

var fpsInfo = []option{
	{"24", "Cinematic"},
	{"30", "Standard broadcast / web video"},
	{"60", "Smooth, doubles encode work"},
}

const fpsNote = "Highlight clips are resampled to this rate.\n" +
	"Segment lengths are verified to within one frame."

var crfInfo = []option{
	{"18", "Near-lossless, large files"},
	{"20", "High quality, recommended"},
	{"23", "libx264 default"},
	{"28", "Small files, visible artifacts in motion"},
}

var presetInfo = []option{
	{"ultrafast", "Fastest encode, largest files"},
	{"veryfast", "Good default for batch runs"},
	{"medium", "Balanced speed and compression"},
	{"slow", "Better compression, noticeably slower"},
}

var audioBitrateInfo = []option{
	{"128", "Clear speech"},
	{"192", "Recommended for narration over crowd audio"},
	{"256", "High"},
}

var concurrencyInfo = []option{
	{"1", "One slide at a time"},
	{"2", "Two workers per stage"},
	{"4", "Four workers per stage; needs a fast CPU"},
}

const concurrencyNote = "Workers run inside each stage. Stages always run\n" +
	"in order, so memory use scales with this value."

// ProfileSetupResult holds the values picked in the setup carousel.
type ProfileSetupResult struct {
	Cancelled   bool
	Mode        string
	Voice       string
	Width       int
	Height      int
	FPS         int
	CRF         int
	Preset      string
	AudioKbps   int
	Concurrency int
}

// Apply copies the selection onto cfg.
func (r ProfileSetupResult) Apply(cfg *config.Config) {
	if r.Cancelled {
		return
	}
	cfg.Pipeline.Mode = r.Mode
	cfg.Narration.Voice = r.Voice
	cfg.Video.Width, cfg.Video.Height = r.Width, r.Height
	cfg.Video.FPS = r.FPS
	cfg.Video.CRF = r.CRF
	cfg.Video.Preset = r.Preset
	cfg.Audio.BitrateKbps = r.AudioKbps
	cfg.Pipeline.Concurrency = r.Concurrency
}

type carouselRow struct {
	label   string
	items   []option
	note    string
	current int
}

func (r carouselRow) value() string { return r.items[r.current].name }

type profileSetupModel struct {
	rows      []carouselRow
	focused   int
	done      bool
	cancelled bool
}

func newProfileSetupModel(cfg config.Config) profileSetupModel {
	res := fmt.Sprintf("%d×%d", cfg.Video.Width, cfg.Video.Height)
	rows := []carouselRow{
		{label: "Mode", items: modeInfo},
		{label: "Voice", items: voiceInfo},
		{label: "Resolution", items: resolutionInfo},
		{label: "FPS", items: fpsInfo, note: fpsNote},
		{label: "CRF", items: crfInfo},
		{label: "Preset", items: presetInfo},
		{label: "Audio kbps", items: audioBitrateInfo},
		{label: "Concurrency", items: concurrencyInfo, note: concurrencyNote},
	}
	current := []string{
		cfg.Pipeline.Mode,
		cfg.Narration.Voice,
		res,
		strconv.Itoa(cfg.Video.FPS),
		strconv.Itoa(cfg.Video.CRF),
		cfg.Video.Preset,
		strconv.Itoa(cfg.Audio.BitrateKbps),
		strconv.Itoa(cfg.Pipeline.Concurrency),
	}
	for i := range rows {
		rows[i].current = findIdx(rows[i].items, current[i])
	}
	return profileSetupModel{rows: rows}
}

// findIdx returns the position of value, or 0 when it is not offered.
func findIdx(items []option, value string) int {
	for i, o := range items {
		if o.name == value {
			return i
		}
	}
	return 0
}

func (m profileSetupModel) Init() tea.Cmd { return nil }

func (m profileSetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.focused > 0 {
			m.focused--
		}
	case "down", "j":
		if m.focused < len(m.rows)-1 {
			m.focused++
		}
	case "left", "h":
		row := m.rows[m.focused]
		row.current = (row.current - 1 + len(row.items)) % len(row.items)
		m.rows[m.focused] = row
	case "right", "l":
		row := m.rows[m.focused]
		row.current = (row.current + 1) % len(row.items)
		m.rows[m.focused] = row
	case "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m profileSetupModel) View() string {
	faint := lipgloss.NewStyle().Faint(true)
	if m.cancelled {
		return faint.Render("  cancelled") + "\n"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	if m.done {
		for _, row := range m.rows {
			fmt.Fprintf(&sb, "%s %s\n", faint.Render(fmt.Sprintf("  %-12s", row.label)), row.value())
		}
		sb.WriteString("\n")
		return sb.String()
	}

	focused := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	for i, row := range m.rows {
		prefix, label := "  ", faint.Render(fmt.Sprintf("%-12s", row.label))
		if i == m.focused {
			prefix, label = "▸ ", focused.Render(fmt.Sprintf("%-12s", row.label))
		}
		fmt.Fprintf(&sb, "%s%s ←  %-20s→\n", prefix, label, row.value())
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("8"))
	row := m.rows[m.focused]
	sb.WriteString("\n")
	sb.WriteString(panel.Render(optionPanel(row.value(), row.items, row.note)))
	sb.WriteString("\n")
	sb.WriteString(faint.Render("  [↑↓] Navigate  [←→] Change  [Enter] Save  [Esc] Cancel"))
	sb.WriteString("\n")
	return sb.String()
}

func optionPanel(current string, items []option, note string) string {
	faint := lipgloss.NewStyle().Faint(true)
	bold := lipgloss.NewStyle().Bold(true)
	width := 0
	for _, o := range items {
		width = max(width, len(o.name))
	}

	var sb strings.Builder
	for _, o := range items {
		prefix, name := "  ", faint.Render(fmt.Sprintf("%-*s", width, o.name))
		if o.name == current {
			prefix, name = "▸ ", bold.Render(fmt.Sprintf("%-*s", width, o.name))
		}
		for j, line := range strings.Split(o.desc, "\n") {
			if j == 0 {
				fmt.Fprintf(&sb, "%s%s  %s\n", prefix, name, line)
			} else {
				fmt.Fprintf(&sb, "%s  %s\n", strings.Repeat(" ", width+2), line)
			}
		}
	}
	if note != "" {
		sb.WriteString("\n")
		for _, line := range strings.Split(note, "\n") {
			sb.WriteString(faint.Render("  "+line) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m profileSetupModel) result() ProfileSetupResult {
	if m.cancelled || !m.done {
		return ProfileSetupResult{Cancelled: true}
	}
	w, h := parseResolution(m.rows[2].value())
	atoi := func(i int) int {
		n, _ := strconv.Atoi(m.rows[i].value())
		return n
	}
	return ProfileSetupResult{
		Mode:        m.rows[0].value(),
		Voice:       m.rows[1].value(),
		Width:       w,
		Height:      h,
		FPS:         atoi(3),
		CRF:         atoi(4),
		Preset:      m.rows[5].value(),
		AudioKbps:   atoi(6),
		Concurrency: atoi(7),
	}
}

func parseResolution(s string) (int, int) {
	parts := strings.SplitN(s, "×", 2)
	if len(parts) != 2 {
		return 1920, 1080
	}
	w, _ := strconv.Atoi(parts[0])
	h, _ := strconv.Atoi(parts[1])
	if w <= 0 || h <= 0 {
		return 1920, 1080
	}
	return w, h
}

// RunProfileSetup shows the interactive carousel seeded from cfg.
func RunProfileSetup(w io.Writer, cfg config.Config) (ProfileSetupResult, error) {
	p := tea.NewProgram(newProfileSetupModel(cfg), tea.WithOutput(w))
	final, err := p.Run()
	if err != nil {
		return ProfileSetupResult{}, err
	}
	return final.(profileSetupModel).result(), nil
}
