package task

import (
	"os"
	"path/filepath"

	"github.com/atrium-run/atrium/internal/core"
)

// descriptorFileNames are the candidate structured task descriptor files
// the loader looks for inside a T<PP>-<NNN>-<slug>/ directory, in order of
// preference.
var descriptorFileNames = []string{"task.md", "TASK.md", "README.md", "task.yaml", "task.yml"}

// findDescriptorFile returns the first matching descriptor file path
// inside dir, or "" if none exists.
func findDescriptorFile(dir string) string {
	for _, name := range descriptorFileNames {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// parseDescriptor reads a structured task descriptor file, returning the
// raw key-value fields decoded from front matter (or, for a standalone
// .yaml/.yml file, the whole document as fields).
func parseDescriptor(path string) (descriptorFields, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ext := filepath.Ext(path)
	if ext == ".yaml" || ext == ".yml" {
		return parseYAMLDescriptor(content)
	}
	fields, _, err := splitFrontMatter(content)
	return fields, err
}

// buildFromDescriptor maps descriptor fields onto the minimal subset of
// Task attributes the loader contract declares it may recover: name,
// description, files, acceptanceCriteria, skills, requirements,
// businessRules, testingRequirements. dependencies/estimate/priority/status
// are left for the phase-metadata overlay to set authoritatively (though a
// descriptor-only value is used when metadata is silent).
func buildFromDescriptor(id string, fields descriptorFields) *core.Task {
	t := &core.Task{
		ID:                  core.TaskID(id),
		Name:                fields.stringField("name", "title"),
		Description:         fields.stringField("description"),
		Files:               fields.stringSliceField("files"),
		AcceptanceCriteria:  fields.stringSliceField("acceptance_criteria", "acceptanceCriteria"),
		Requirements:        fields.stringSliceField("requirements"),
		BusinessRules:       fields.stringSliceField("business_rules", "businessRules"),
		TestingRequirements: fields.stringSliceField("testing_requirements", "testingRequirements"),
		Skills:              fields.stringSliceField("skills"),
		Phase:               fields.stringField("phase"),
	}

	if deps := fields.stringSliceField("dependencies", "deps"); len(deps) > 0 {
		for _, d := range deps {
			t.Dependencies = append(t.Dependencies, core.TaskID(d))
		}
	}
	if pg := fields.stringField("parallel_group", "parallelGroup"); pg != "" {
		if n, err := parseIntLoose(pg); err == nil {
			t.ParallelGroup = n
		}
	}
	if est := fields.stringField("estimate"); est != "" {
		if hours, err := core.ParseEstimate(est); err == nil {
			t.EstimateHours = hours
		}
	}
	if pr := fields.stringField("priority"); pr != "" {
		t.Priority = core.Priority(pr)
	}
	if st := fields.stringField("status"); st != "" {
		if mapped, ok := core.MapMetadataStatus(st); ok {
			t.Status = mapped
		}
	}
	if t.ParallelGroup == 0 {
		t.ParallelGroup = 1
	}
	return t
}

// minimalTask builds the degrade-to-minimal record the loader contract
// requires when no descriptor is parseable: just the id and a default
// name derived from the directory slug.
func minimalTask(id, slug string) *core.Task {
	name := slug
	if name == "" {
		name = id
	}
	return &core.Task{
		ID:            core.TaskID(id),
		Name:          name,
		Status:        core.TaskStatusPending,
		ParallelGroup: 1,
	}
}

func parseYAMLDescriptor(content []byte) (descriptorFields, error) {
	var fields descriptorFields
	if err := yamlUnmarshal(content, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
