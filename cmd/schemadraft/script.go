package main

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/effectus/schemadraft/builder"
	"github.com/effectus/schemadraft/schema"
)

// Script is a list of edits applied to a draft in order
type Script struct {
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step holds exactly one edit
type Step struct {
	AddAttribute    *schema.AttributeDefinition `yaml:"add_attribute,omitempty" json:"add_attribute,omitempty"`
	CreateSchema    *CreateSchemaStep           `yaml:"create_schema,omitempty" json:"create_schema,omitempty"`
	SetModifiedData bool                        `yaml:"set_modified_data,omitempty" json:"set_modified_data,omitempty"`
	Navigate        string                      `yaml:"navigate,omitempty" json:"navigate,omitempty"`
}

// CreateSchemaStep creates and opens a new schema
type CreateSchemaStep struct {
	Kind     string        `yaml:"kind" json:"kind"`
	UID      string        `yaml:"uid" json:"uid"`
	Category string        `yaml:"category,omitempty" json:"category,omitempty"`
	Data     schema.Schema `yaml:"data" json:"data"`
}

func (s Step) actions() int {
	n := 0
	if s.AddAttribute != nil {
		n++
	}
	if s.CreateSchema != nil {
		n++
	}
	if s.SetModifiedData {
		n++
	}
	if s.Navigate != "" {
		n++
	}
	return n
}

// LoadScript reads a YAML (or JSON) edit script
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and checks an edit script
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	for i, step := range script.Steps {
		if n := step.actions(); n != 1 {
			return nil, fmt.Errorf("step %d: want exactly one edit, got %d", i+1, n)
		}
		if step.CreateSchema != nil {
			if _, err := schema.ParseKind(step.CreateSchema.Kind); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
	}
	return &script, nil
}

// Run applies the steps to session, stopping at the first rejected edit
func (s *Script) Run(ctx context.Context, session *builder.Session) error {
	for i, step := range s.Steps {
		if err := runStep(ctx, session, step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func runStep(ctx context.Context, session *builder.Session, step Step) error {
	switch {
	case step.AddAttribute != nil:
		return session.AddAttribute(ctx, *step.AddAttribute)
	case step.CreateSchema != nil:
		c := step.CreateSchema
		kind, err := schema.ParseKind(c.Kind)
		if err != nil {
			return err
		}
		_, err = session.CreateSchema(ctx, c.Data, kind, c.UID, c.Category)
		return err
	case step.SetModifiedData:
		return session.SetModifiedData(ctx)
	case step.Navigate != "":
		outcome, err := session.NavigatePath(ctx, step.Navigate)
		if err != nil {
			return err
		}
		if !outcome.Resolution.IsValid {
			return fmt.Errorf("route %s does not name a schema", step.Navigate)
		}
		return nil
	}
	return nil
}
