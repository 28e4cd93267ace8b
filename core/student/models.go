package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

type Student struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ClassLevel    string    `json:"class_level"`
	Stream        string    `json:"stream,omitempty"`
	GuardianEmail string    `json:"guardian_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

// ClassLabel is the key students are grouped under in class summaries.
func (s Student) ClassLabel() string {
	return ClassLabel(s.ClassLevel, s.Stream)
}

// ClassLabel joins a class level and an optional stream, e.g. "JSS1" + "A" -> "JSS1 A".
func ClassLabel(classLevel, stream string) string {
	classLevel = core.CleanString(classLevel)
	if stream = core.CleanString(stream); stream != "" {
		return classLevel + " " + stream
	}
	return classLevel
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name          string `json:"name" validate:"required"`
	ClassLevel    string `json:"class_level" validate:"required"`
	Stream        string `json:"stream"`
	GuardianEmail string `json:"guardian_email" validate:"omitempty,email"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.ClassLevel = core.CleanString(ns.ClassLevel)
	ns.Stream = core.CleanString(ns.Stream)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	return validate.Struct(ns)
}

type QueryFilter struct {
	Search     string `query:"search"`
	ClassLevel string `query:"class_level"`
	Stream     string `query:"stream"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search)
	f.ClassLevel = core.CleanString(f.ClassLevel)
	f.Stream = core.CleanString(f.Stream)
}
