package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"broadcast/internal/config"
	"broadcast/internal/logx"
	"broadcast/internal/paths"
	"broadcast/internal/script"
	"broadcast/internal/sources"
)

// Job templates.
const (
	TemplateScript  = "script"
	TemplateSample  = "sample"
	TemplateTeam    = "team"
	TemplateMatchup = "matchup"
	// TemplatePool expands into one matchup job per pairing in a pool.
	TemplatePool = "pool"
)

// Job is one video in a batch.
type Job struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	// Script is a script file path for the script template.
	Script string   `yaml:"script"`
	Teams  []string `yaml:"teams"`
	Pool   string   `yaml:"pool"`
	// Context overrides the clip context. Accepts "curated", "team" or
	// "matchup"; empty derives it from Teams.
	Context string `yaml:"context"`
	// Game pins clips to one game's highlights before any team lookup.
	Game   int    `yaml:"game"`
	Mode   string `yaml:"mode"`
	Output string `yaml:"output"`
}

// BatchFile is the on-disk batch definition.
type BatchFile struct {
	TeamsFile string `yaml:"teams_file"`
	Jobs      []Job  `yaml:"jobs"`
}

// Batch is a loaded batch with its job paths resolved.
type Batch struct {
	Teams []script.TeamProfile
	Jobs  []Job
	// Dir is the batch file's directory; relative script paths resolve here.
	Dir string
}

// JobResult summarizes one job.
type JobResult struct {
	Name     string        `json:"name"`
	Output   string        `json:"output,omitempty"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Video    float64       `json:"video_duration_s,omitempty"`
}

// Job statuses.
const (
	JobOK      = "ok"
	JobFailed  = "failed"
	JobSkipped = "skipped"
)

// LoadBatch reads a YAML batch file, loads its teams file and expands pool
// jobs.
func LoadBatch(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("read batch: %w", err)
	}
	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Batch{}, fmt.Errorf("parse batch: %w", err)
	}
	if len(file.Jobs) == 0 {
		return Batch{}, errors.New("batch has no jobs")
	}

	b := Batch{Dir: filepath.Dir(path)}
	if strings.TrimSpace(file.TeamsFile) != "" {
		teams, err := script.LoadTeams(config.ResolvePath(b.Dir, file.TeamsFile))
		if err != nil {
			return Batch{}, err
		}
		b.Teams = teams
	}

	for i, job := range file.Jobs {
		job.Template = strings.ToLower(strings.TrimSpace(job.Template))
		if job.Template == "" && job.Script != "" {
			job.Template = TemplateScript
		}
		if job.Template != TemplatePool {
			b.Jobs = append(b.Jobs, job)
			continue
		}
		expanded, err := expandPool(job, b.Teams)
		if err != nil {
			return Batch{}, fmt.Errorf("job %d: %w", i+1, err)
		}
		b.Jobs = append(b.Jobs, expanded...)
	}
	return b, nil
}

func expandPool(job Job, teams []script.TeamProfile) ([]Job, error) {
	pool := strings.TrimSpace(job.Pool)
	if pool == "" {
		return nil, errors.New("pool template requires pool")
	}
	var members []script.TeamProfile
	for _, t := range teams {
		if strings.EqualFold(t.Pool, pool) {
			members = append(members, t)
		}
	}
	if len(members) < 2 {
		return nil, fmt.Errorf("pool %s has fewer than two teams", pool)
	}
	var jobs []Job
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i].Country, members[j].Country
			jobs = append(jobs, Job{
				Name:     paths.Slug(fmt.Sprintf("%s-vs-%s-pool-%s", a, b, pool)),
				Template: TemplateMatchup,
				Teams:    []string{a, b},
				Pool:     pool,
				Mode:     job.Mode,
			})
		}
	}
	return jobs, nil
}

// Build produces the script and clip context for job.
func (b Batch) Build(job Job, brand script.Branding) (script.Script, sources.ClipContext, error) {
	var (
		s  script.Script
		cc sources.ClipContext
	)
	switch job.Template {
	case TemplateScript:
		if strings.TrimSpace(job.Script) == "" {
			return s, cc, errors.New("script template requires script")
		}
		loaded, err := script.Load(config.ResolvePath(b.Dir, job.Script))
		if err != nil {
			return s, cc, err
		}
		s = loaded
		cc = contextFromTeams(job.Teams)
	case TemplateSample:
		s = script.Sample(brand)
		cc = sources.Curated()
	case TemplateTeam:
		if len(job.Teams) != 1 {
			return s, cc, errors.New("team template requires exactly one team")
		}
		team, ok := script.FindTeam(b.Teams, job.Teams[0])
		if !ok {
			return s, cc, fmt.Errorf("unknown team %q", job.Teams[0])
		}
		s = script.TeamPreview(team, brand)
		cc = sources.ForTeam(team.Country)
	case TemplateMatchup:
		if len(job.Teams) != 2 {
			return s, cc, errors.New("matchup template requires exactly two teams")
		}
		a, ok := script.FindTeam(b.Teams, job.Teams[0])
		if !ok {
			return s, cc, fmt.Errorf("unknown team %q", job.Teams[0])
		}
		c, ok := script.FindTeam(b.Teams, job.Teams[1])
		if !ok {
			return s, cc, fmt.Errorf("unknown team %q", job.Teams[1])
		}
		pool := job.Pool
		if pool == "" {
			pool = a.Pool
		}
		s = script.MatchupPreview(a, c, pool, brand)
		cc = sources.HeadToHead(a.Country, c.Country)
	default:
		return s, cc, fmt.Errorf("unknown template %q", job.Template)
	}

	switch strings.ToLower(strings.TrimSpace(job.Context)) {
	case "":
	case "curated":
		cc = sources.Curated()
	case "team":
		if len(job.Teams) == 0 {
			return s, cc, errors.New("team context requires teams")
		}
		cc = sources.ForTeam(job.Teams[0])
	case "matchup":
		if len(job.Teams) < 2 {
			return s, cc, errors.New("matchup context requires two teams")
		}
		cc = sources.HeadToHead(job.Teams[0], job.Teams[1])
	default:
		return s, cc, fmt.Errorf("unknown clip context %q", job.Context)
	}
	if job.Game > 0 {
		cc = cc.ForGame(job.Game)
	}
	return s, cc, nil
}

func contextFromTeams(teams []string) sources.ClipContext {
	switch len(teams) {
	case 0:
		return sources.Curated()
	case 1:
		return sources.ForTeam(teams[0])
	default:
		return sources.HeadToHead(teams[0], teams[1])
	}
}

// JobName is the job's display name, derived from its teams or script when
// unset.
func JobName(job Job) string {
	if name := strings.TrimSpace(job.Name); name != "" {
		return name
	}
	switch {
	case len(job.Teams) > 0:
		return paths.Slug(job.Template + "-" + strings.Join(job.Teams, "-vs-"))
	case job.Script != "":
		return paths.Slug(strings.TrimSuffix(filepath.Base(job.Script), filepath.Ext(job.Script)))
	default:
		return job.Template
	}
}

// RunBatch runs jobs one after another. A failed job is recorded and the next
// one starts; only cancellation stops the batch early, marking the remaining
// jobs skipped. onDone, when set, sees each result as it is recorded.
func (p *Pipeline) RunBatch(ctx context.Context, b Batch, opts Options, onDone func(index int, res JobResult)) []JobResult {
	logger := logx.OrDiscard(p.Logger)
	brand := script.Branding{Brand: p.Config.Overlay.Brand, Event: p.Config.Overlay.Tagline}
	results := make([]JobResult, 0, len(b.Jobs))
	for i, job := range b.Jobs {
		name := JobName(job)
		if ctx.Err() != nil {
			res := JobResult{Name: name, Status: JobSkipped, Error: ctx.Err().Error()}
			results = append(results, res)
			if onDone != nil {
				onDone(i, res)
			}
			continue
		}
		logger.Printf("batch [%d/%d] %s", i+1, len(b.Jobs), name)
		start := time.Now()
		res := JobResult{Name: name}

		s, cc, err := b.Build(job, brand)
		if err == nil {
			jobOpts := opts
			jobOpts.Clips = cc
			if job.Mode != "" {
				jobOpts.Mode = job.Mode
			}
			jobOpts.Output = job.Output
			if jobOpts.Output == "" {
				jobOpts.Output = name
			}
			var out Result
			out, err = p.Run(ctx, s, jobOpts)
			res.Output = out.Output
			res.Video = out.Video.DurationSeconds
		}
		res.Duration = time.Since(start)
		if err != nil {
			res.Status = JobFailed
			res.Error = err.Error()
			logger.Printf("batch %s failed: %v", name, err)
		} else {
			res.Status = JobOK
		}
		results = append(results, res)
		if onDone != nil {
			onDone(i, res)
		}
	}
	return results
}
