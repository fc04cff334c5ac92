package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/matchdeck/internal/profiles"
)

type departmentsFilter struct {
	departments map[string]struct{}
	names       []string
	logger      *zap.Logger
}

// NewExcludedDepartments creates a filter that removes profiles from the
// listed departments. Matching is case-insensitive.
func NewExcludedDepartments(departments []string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &departmentsFilter{departments: make(map[string]struct{}), logger: logger}
	for _, d := range departments {
		key := strings.ToLower(strings.TrimSpace(d))
		if key == "" {
			continue
		}
		f.departments[key] = struct{}{}
		f.names = append(f.names, strings.TrimSpace(d))
	}
	return f
}

func (f *departmentsFilter) Name() string { return "departments" }

func (f *departmentsFilter) Disable(string) {}

func (f *departmentsFilter) IsEnabled() bool { return true }

func (f *departmentsFilter) Validate() error { return nil }

func (f *departmentsFilter) Apply(_ context.Context, p *profiles.Profiles) (*profiles.Profiles, Step, error) {
	initial := p.Len()
	if len(f.departments) == 0 {
		return p, Step{Initial: initial, Dropped: 0, Left: p.Len()}, nil
	}

	dropped := p.Exclude(func(item profiles.Profile) bool {
		_, ok := f.departments[strings.ToLower(strings.TrimSpace(item.Department))]
		return ok
	})

	if len(dropped) > 0 {
		f.logger.Info("excluding profiles by department",
			zap.Strings("excluded_departments", f.names),
			zap.Strings("excluded_profiles", dropped),
			zap.Int("profiles_left", p.Len()),
		)
	}

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *departmentsFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["departments"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
