package workflow

import (
	"errors"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/studenthub-portal/internal/apperr"
	"github.com/noah-isme/studenthub-portal/internal/models"
)

// Draft is an activity the student is composing.
type Draft struct {
	Title       string `json:"title" form:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" form:"description" validate:"required,notblank,max=5000"`
	Category    string `json:"category" form:"category" validate:"max=100"`
	Duration    string `json:"duration" form:"duration" validate:"max=100"`
	Skills      string `json:"skills" form:"skills"`
	ProofURL    string `json:"proof_url" form:"proof_url" validate:"omitempty,max=2048"`
}

var sanitizer = bluemonday.StrictPolicy()

// NewValidator returns a validator with the notblank rule registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return validate
}

// Sanitize strips markup and surrounding whitespace from every text field.
// Characters such as & and ' are kept as typed.
func (d Draft) Sanitize() Draft {
	// The policy escapes entities as well as dropping markup; the backend stores
	// plain text, so only the markup removal is kept.
	clean := func(value string) string {
		return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(value)))
	}
	d.Title = clean(d.Title)
	d.Description = clean(d.Description)
	d.Category = clean(d.Category)
	d.Duration = clean(d.Duration)
	d.Skills = clean(d.Skills)
	d.ProofURL = strings.TrimSpace(d.ProofURL)
	return d
}

// Validate sanitises the draft and checks required fields.
func (d Draft) Validate(validate *validator.Validate) (Draft, error) {
	clean := d.Sanitize()
	if validate == nil {
		validate = NewValidator()
	}
	if err := validate.Struct(clean); err != nil {
		described := describeValidation(err)
		return clean, &apperr.Error{Kind: apperr.KindInvalidInput, Op: "workflow.draft", Message: described.Error(), Err: err}
	}
	return clean, nil
}

// Payload converts a validated draft into the create request.
func (d Draft) Payload(proofURL string) models.ActivityCreate {
	payload := models.ActivityCreate{
		Title:        d.Title,
		Description:  d.Description,
		Category:     d.Category,
		Duration:     d.Duration,
		SkillsGained: NormalizeSkills(d.Skills),
	}
	if proofURL = strings.TrimSpace(proofURL); proofURL != "" {
		payload.ProofURL = &proofURL
	}
	return payload
}

// NormalizeSkills splits a comma list, trims entries, drops blanks and keeps
// the first occurrence of each skill.
func NormalizeSkills(raw string) []string {
	skills := []string{}
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		skill := strings.TrimSpace(part)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		skills = append(skills, skill)
	}
	return skills
}

type validationError struct {
	fields []string
}

func (e validationError) Error() string {
	return strings.Join(e.fields, "; ")
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := validationError{}
	for _, fe := range fieldErrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required", "notblank":
			out.fields = append(out.fields, name+" is required")
		case "max":
			out.fields = append(out.fields, name+" is too long")
		default:
			out.fields = append(out.fields, name+" is invalid")
		}
	}
	return out
}
