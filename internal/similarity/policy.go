// Package similarity holds the pure rules that decide which proposal fields feed
// similarity scoring and how a score is presented back to reviewers and students.
package similarity

import "strings"

// Proposal categories accepted by the review workflow.
const (
	TypeSeminar      = "Seminar"
	TypeProject      = "Project"
	TypeDissertation = "Dissertation"
	TypeThesis       = "Thesis"
)

// Tier groups proposal categories that share a similarity mode.
type Tier string

const (
	TierUndergraduate Tier = "undergraduate"
	TierPostgraduate  Tier = "postgraduate"
)

// TierOf maps a proposal type to its tier. The boolean is false for unknown types.
func TierOf(proposalType string) (Tier, bool) {
	switch proposalType {
	case TypeSeminar, TypeProject:
		return TierUndergraduate, true
	case TypeDissertation, TypeThesis:
		return TierPostgraduate, true
	default:
		return TierUndergraduate, false
	}
}

// UndergraduateTypes lists the categories covered by the resubmission quota.
func UndergraduateTypes() []string {
	return []string{TypeSeminar, TypeProject}
}

// Mode selects how much of a proposal is compared.
type Mode string

const (
	ModeTitle     Mode = "title"
	ModeTitlePlus Mode = "title_plus"
)

// Valid reports whether m is a recognised mode.
func (m Mode) Valid() bool {
	return m == ModeTitle || m == ModeTitlePlus
}

// Settings is the value form of the similarity policy handed to the rules in this package.
type Settings struct {
	UndergradMode            Mode
	PostgradMode             Mode
	AllowMultipleSubmissions bool
}

// DefaultSettings mirrors the seeded policy row.
func DefaultSettings() Settings {
	return Settings{
		UndergradMode: ModeTitle,
		PostgradMode:  ModeTitlePlus,
	}
}

// ModeFor returns the mode applied to a proposal type. Unknown types use the undergraduate mode.
func (s Settings) ModeFor(proposalType string) Mode {
	tier, _ := TierOf(proposalType)
	if tier == TierPostgraduate {
		return s.PostgradMode
	}
	return s.UndergradMode
}

// Field names a proposal content field.
type Field string

const (
	FieldTitle            Field = "proposed_title"
	FieldBackground       Field = "background"
	FieldAim              Field = "aim"
	FieldObjectives       Field = "objectives"
	FieldMethods          Field = "methods"
	FieldExpectedResults  Field = "expected_results"
	FieldLiteratureReview Field = "literature_review"
)

// BodyFields are the narrative sections of a proposal, in document order.
var BodyFields = []Field{
	FieldBackground,
	FieldAim,
	FieldObjectives,
	FieldMethods,
	FieldExpectedResults,
	FieldLiteratureReview,
}

// ResolveFields returns the fields forwarded to the scorer for a proposal type.
// Anything other than title_plus compares the title only.
func ResolveFields(proposalType string, settings Settings) []Field {
	fields := []Field{FieldTitle}
	if settings.ModeFor(proposalType) == ModeTitlePlus {
		fields = append(fields, BodyFields...)
	}
	return fields
}

// Content carries the text of a proposal.
type Content struct {
	Title            string
	Background       string
	Aim              string
	Objectives       string
	Methods          string
	ExpectedResults  string
	LiteratureReview string
}

// Value returns the text stored under field.
func (c Content) Value(field Field) string {
	switch field {
	case FieldTitle:
		return c.Title
	case FieldBackground:
		return c.Background
	case FieldAim:
		return c.Aim
	case FieldObjectives:
		return c.Objectives
	case FieldMethods:
		return c.Methods
	case FieldExpectedResults:
		return c.ExpectedResults
	case FieldLiteratureReview:
		return c.LiteratureReview
	default:
		return ""
	}
}

// BuildText joins the selected fields into the text sent to the scorer.
// Empty fields are skipped and each part is trimmed.
func BuildText(content Content, fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		value := strings.TrimSpace(content.Value(field))
		if value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "\n")
}

// Label is the heading used when a body field is rendered for people.
func (f Field) Label() string {
	switch f {
	case FieldTitle:
		return "Proposed Title"
	case FieldBackground:
		return "1. Background"
	case FieldAim:
		return "2. Aim"
	case FieldObjectives:
		return "3. Objectives"
	case FieldMethods:
		return "4. Methods"
	case FieldExpectedResults:
		return "5. Expected Results"
	case FieldLiteratureReview:
		return "6. Literature Review"
	default:
		return string(f)
	}
}
