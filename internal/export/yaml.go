// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/snowball/pkg/types"
)

// yamlCorpus is the document shape for the YAML export: project header plus
// the selected papers.
type yamlCorpus struct {
	Project   string         `yaml:"project"`
	Iteration int            `yaml:"iteration"`
	Papers    []*types.Paper `yaml:"papers"`
}

// YAML writes the papers with a project header as a single YAML document.
func YAML(w io.Writer, project *types.ReviewProject, papers []*types.Paper) error {
	doc := yamlCorpus{
		Project:   project.Name,
		Iteration: project.CurrentIteration,
		Papers:    papers,
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}
