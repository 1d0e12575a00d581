// Package form drives the four-step investor application and assembles its submission.
package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"investor_onboarding/internal/draft"
	"investor_onboarding/internal/imaging"
	"investor_onboarding/internal/model"
	"investor_onboarding/internal/validation"
)

var (
	ErrFirstStep    = errors.New("already at the first step")
	ErrLastStep     = errors.New("already at the last step")
	ErrUnknownSlot  = errors.New("unknown document slot")
	ErrNotDataImage = errors.New("document must be a data:image URL")
)

// Controller holds the state of one application being filled in.
type Controller struct {
	step      Step
	payload   model.SubmissionPayload
	fileNames map[model.DocumentKind]string

	drafts    draft.Store
	validator *validation.Validator
	logger    *zap.Logger
}

// NewController starts at StepPersonal and rehydrates staged documents from drafts.
func NewController(drafts draft.Store, minInvestment decimal.Decimal, logger *zap.Logger) *Controller {
	c := &Controller{
		step:      StepPersonal,
		fileNames: make(map[model.DocumentKind]string),
		drafts:    drafts,
		// Телефон и DUI проверяются по формату только в полной длине
		validator: validation.New(validation.ModeClient, minInvestment),
		logger:    logger,
	}
	c.rehydrate()
	return c
}

func (c *Controller) rehydrate() {
	for _, kind := range model.DocumentOrder {
		e, ok := c.drafts.Load(kind)
		if !ok {
			continue
		}
		c.payload.SetImage(kind, e.DataURL)
		c.fileNames[kind] = e.FileName
		c.logger.Debug("document restored from draft", zap.String("slot", string(kind)), zap.String("file_name", e.FileName))
	}
}

func (c *Controller) Step() Step {
	return c.step
}

// Progress returns the completion percentage shown next to the step counter.
func (c *Controller) Progress() float64 {
	return float64(c.step) / StepCount * 100
}

// Payload returns a copy of the current values.
func (c *Controller) Payload() model.SubmissionPayload {
	return c.payload
}

// FileName returns the original file name of the document staged for kind.
func (c *Controller) FileName(kind model.DocumentKind) string {
	return c.fileNames[kind]
}

// SetField stores raw under the JSON field name, formatting phone and ID values as typed.
func (c *Controller) SetField(name, raw string) error {
	set, ok := fields[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return set(&c.payload, raw)
}

// FieldErrors reports live errors for the active step. Partial phone and ID values are not errors yet.
func (c *Controller) FieldErrors() *validation.Errors {
	return c.stepErrors(c.validator)
}

// AttachImage stages an already encoded document in memory and in drafts.
func (c *Controller) AttachImage(kind model.DocumentKind, dataURL, fileName string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, kind)
	}
	if !strings.HasPrefix(dataURL, "data:image/") {
		return fmt.Errorf("%w: %s", ErrNotDataImage, kind)
	}
	c.payload.SetImage(kind, dataURL)
	c.fileNames[kind] = fileName
	c.drafts.Save(kind, dataURL, fileName)
	return nil
}

// AttachImageFile compresses the picture at path and stages it for kind.
func (c *Controller) AttachImageFile(fs afero.Fs, kind model.DocumentKind, path string, opts imaging.Options) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, kind)
	}
	dataURL, name, err := imaging.CompressFile(fs, path, opts)
	if err != nil {
		c.logger.Error("failed to compress document", zap.String("slot", string(kind)), zap.String("path", path), zap.Error(err))
		return err
	}
	return c.AttachImage(kind, dataURL, name)
}

// RemoveImage clears kind from memory and from drafts.
func (c *Controller) RemoveImage(kind model.DocumentKind) {
	c.payload.SetImage(kind, "")
	delete(c.fileNames, kind)
	c.drafts.Clear(kind)
}

// Advance validates the active step and moves to the next one.
// On failure the step is unchanged and the returned *validation.Errors lists the step's fields.
func (c *Controller) Advance() error {
	if c.step >= StepInvestment {
		return ErrLastStep
	}
	if errs := c.stepErrors(c.validator); errs != nil {
		return errs
	}
	c.step++
	return nil
}

// Retreat goes back one step without validating.
func (c *Controller) Retreat() error {
	if c.step <= StepPersonal {
		return ErrFirstStep
	}
	c.step--
	return nil
}

// Reset empties every value and returns to the first step. Drafts are left alone.
func (c *Controller) Reset() {
	c.step = StepPersonal
	c.payload = model.SubmissionPayload{}
	c.fileNames = make(map[model.DocumentKind]string)
}

func (c *Controller) stepErrors(v *validation.Validator) *validation.Errors {
	p := c.payload
	err := v.Validate(&p)
	if err == nil {
		return nil
	}
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		c.logger.Error("step validation failed", zap.String("step", c.step.String()), zap.Error(err))
		return &validation.Errors{Fields: []validation.FieldError{{Field: "form", Rule: "internal", Message: err.Error()}}}
	}
	return verrs.Only(c.step.Fields()...)
}
