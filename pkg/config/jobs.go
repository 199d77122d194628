package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

// JobSpec is one export declared in a job file.
type JobSpec struct {
	ID      string `yaml:"id"`
	Profile string `yaml:"profile"`
	// Fields override the resolved profile fields for this job only.
	Fields      map[string]string `yaml:"fields"`
	Query       string            `yaml:"query"`
	QueryFile   string            `yaml:"query_file"`
	Format      string            `yaml:"format"`
	Output      string            `yaml:"output"`
	Compression string            `yaml:"compression"`
	Options     map[string]string `yaml:"options"`
	Count       bool              `yaml:"count"`
}

type jobFile struct {
	Defaults JobSpec   `yaml:"defaults"`
	Jobs     []JobSpec `yaml:"jobs"`
}

// LoadJobs reads a job file. Values under defaults apply to every job that
// leaves them empty; query_file paths are relative to the job file.
func LoadJobs(path string) ([]JobSpec, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is a command argument
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read job file").WithDetail("file", path)
	}
	jobs, err := ParseJobs(content)
	if err != nil {
		return nil, errors.Annotate(err, errors.ErrorTypeConfig, map[string]interface{}{"file": path})
	}

	dir := filepath.Dir(path)
	for i := range jobs {
		if jobs[i].QueryFile == "" {
			continue
		}
		qf := jobs[i].QueryFile
		if !filepath.IsAbs(qf) {
			qf = filepath.Join(dir, qf)
		}
		sql, err := os.ReadFile(qf) //nolint:gosec // declared in the job file
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read query file").
				WithDetail("job", jobs[i].ID).WithDetail("file", qf)
		}
		jobs[i].Query = strings.TrimSpace(string(sql))
	}
	return jobs, nil
}

// ParseJobs decodes and validates a job document.
func ParseJobs(content []byte) ([]JobSpec, error) {
	var doc jobFile
	if err := yaml.Unmarshal([]byte(substituteEnvVars(string(content))), &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse job file")
	}
	if len(doc.Jobs) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "job file declares no jobs")
	}

	seen := map[string]bool{}
	stdout := 0
	for i := range doc.Jobs {
		j := &doc.Jobs[i]
		j.applyDefaults(doc.Defaults)
		if j.ID == "" {
			j.ID = "job-" + strconv.Itoa(i+1)
		}
		if seen[j.ID] {
			return nil, errors.Newf(errors.ErrorTypeConfig, "duplicate job id %q", j.ID)
		}
		seen[j.ID] = true

		if err := j.Validate(); err != nil {
			return nil, err
		}
		if j.Output == "-" {
			stdout++
		}
	}
	if stdout > 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "only one job may write to stdout")
	}
	return doc.Jobs, nil
}

func (j *JobSpec) applyDefaults(d JobSpec) {
	if j.Profile == "" {
		j.Profile = d.Profile
	}
	if j.Format == "" {
		j.Format = d.Format
	}
	if j.Compression == "" {
		j.Compression = d.Compression
	}
	if j.Output == "" {
		j.Output = d.Output
	}
	if j.Output == "" {
		j.Output = "-"
	}
	j.Fields = mergeMaps(d.Fields, j.Fields)
	j.Options = mergeMaps(d.Options, j.Options)
	if d.Count {
		j.Count = true
	}
}

// Validate checks a single job.
func (j *JobSpec) Validate() error {
	if strings.TrimSpace(j.Query) == "" && j.QueryFile == "" {
		return errors.New(errors.ErrorTypeConfig, "job has no query").WithDetail("job", j.ID)
	}
	if j.Query != "" && j.QueryFile != "" {
		return errors.New(errors.ErrorTypeConfig, "query and query_file are exclusive").WithDetail("job", j.ID)
	}
	if j.Format == "" {
		return errors.New(errors.ErrorTypeConfig, "job has no format").WithDetail("job", j.ID)
	}
	return nil
}

func mergeMaps(base, over map[string]string) map[string]string {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

