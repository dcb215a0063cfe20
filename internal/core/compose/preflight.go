package compose

import (
	"context"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Summary
// =============================================================================

// Summary is what the bootstrapper wants to know about a compose file
// before handing it to the docker CLI: which services it defines, which
// profiles gate them, and which named volumes and networks it declares.
type Summary struct {
	Services []string
	Profiles []string
	Volumes  []string
	Networks []string
}

// HasService reports whether the file defines the named service.
func (s *Summary) HasService(name string) bool {
	for _, svc := range s.Services {
		if svc == name {
			return true
		}
	}
	return false
}

// =============================================================================
// Preflight
// =============================================================================

// Summarize parses compose YAML and returns its service inventory. env
// supplies values for ${VAR} interpolation, typically the parsed contents
// of the stack's .env file; missing variables interpolate to their
// defaults or to the empty string.
//
// A failed Summarize means docker compose would reject the file too, so
// callers surface it before any container is touched.
func Summarize(yamlContent string, env map[string]string) (*Summary, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadProject(yamlContent, env)
	if err != nil {
		return nil, err
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	summary := &Summary{
		Services: make([]string, 0, len(project.Services)),
		Volumes:  make([]string, 0, len(project.Volumes)),
		Networks: make([]string, 0, len(project.Networks)),
	}

	profiles := make(map[string]bool)
	for _, svc := range project.Services {
		summary.Services = append(summary.Services, svc.Name)
		for _, p := range svc.Profiles {
			profiles[p] = true
		}
	}
	for name := range profiles {
		summary.Profiles = append(summary.Profiles, name)
	}
	for name := range project.Volumes {
		summary.Volumes = append(summary.Volumes, name)
	}
	for name := range project.Networks {
		summary.Networks = append(summary.Networks, name)
	}

	sort.Strings(summary.Services)
	sort.Strings(summary.Profiles)
	sort.Strings(summary.Volumes)
	sort.Strings(summary.Networks)

	return summary, nil
}

// loadProject loads compose YAML in memory using compose-go. All profiles
// are enabled so gated services still show up in the inventory.
func loadProject(yamlContent string, env map[string]string) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}
	if dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	if env == nil {
		env = map[string]string{}
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		Environment: env,
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("preflight", false)
		opts.Profiles = []string{"*"}
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory content: nothing on disk to resolve or extend.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}

	return project, nil
}
