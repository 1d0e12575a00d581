package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"investor_onboarding/internal/form"
	"investor_onboarding/internal/imaging"
	"investor_onboarding/internal/model"
)

// Answers is the answers file of one application:
//
//	fields:
//	  fullName: Ana María López
//	  phone: "70123456"
//	images:
//	  id_front: scans/dui-front.jpg
//
// Image paths are relative to the answers file.
type Answers struct {
	Fields map[string]string             `yaml:"fields"`
	Images map[model.DocumentKind]string `yaml:"images"`
}

func loadAnswers(fs afero.Fs, path string) (*Answers, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read answers file: %w", err)
	}

	var answers Answers
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers file %s: %w", path, err)
	}

	known := make(map[string]bool)
	for _, name := range form.FieldNames() {
		known[name] = true
	}
	var errs []error
	for name := range answers.Fields {
		if !known[name] {
			errs = append(errs, fmt.Errorf("%w: %s", form.ErrUnknownField, name))
		}
	}
	for kind, p := range answers.Images {
		if !kind.Valid() {
			errs = append(errs, fmt.Errorf("%w: %s", form.ErrUnknownSlot, kind))
			continue
		}
		if !filepath.IsAbs(p) {
			answers.Images[kind] = filepath.Join(filepath.Dir(path), p)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &answers, nil
}

// fill walks the steps in order and enters the answers owned by each one.
// With advance set every step but the last must pass before the next is filled.
func fill(c *form.Controller, fs afero.Fs, answers *Answers, advance bool) error {
	for step := form.StepPersonal; step <= form.StepInvestment; step++ {
		for _, name := range step.Fields() {
			if kind, ok := documentField(name); ok {
				path, ok := answers.Images[kind]
				if !ok {
					continue
				}
				if err := c.AttachImageFile(fs, kind, path, imaging.DefaultOptions); err != nil {
					return fmt.Errorf("failed to attach %s: %w", kind, err)
				}
				continue
			}

			raw, ok := answers.Fields[name]
			if !ok {
				continue
			}
			if err := c.SetField(name, raw); err != nil {
				return err
			}
		}

		if advance && step < form.StepInvestment {
			if err := c.Advance(); err != nil {
				return fmt.Errorf("step %d (%s) is incomplete: %w", step, step, err)
			}
		}
	}
	return nil
}

func documentField(name string) (model.DocumentKind, bool) {
	for _, kind := range model.DocumentOrder {
		if kind.Field() == name {
			return kind, true
		}
	}
	return "", false
}
