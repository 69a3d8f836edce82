// Package reconcile checks that a template and a model describe the same
// set of names: every placeholder is provided by the model and every model
// field is used by the template.
package reconcile

import (
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/pdok/atom-generator/pkg/atomfeed"
)

// placeholder matches variables, sections, inverted sections, section ends
// and partials.
var placeholder = regexp.MustCompile(`\{\{\s*[/^#>]?\s*(\w+)\s*\}\}`)

// Derived is implemented by models exposing computed names to templates.
type Derived interface {
	DerivedFields() []string
}

var derivedType = reflect.TypeOf((*Derived)(nil)).Elem()

// MismatchReport lists the names only one side knows about.
type MismatchReport struct {
	MissingFromModel []string // used by the template, unknown to the model
	ExtraInModel     []string // provided by the model, unused by the template
}

func (r *MismatchReport) Error() string {
	var b strings.Builder
	b.WriteString(atomfeed.ErrTemplateMismatch.Error())
	if len(r.MissingFromModel) > 0 {
		b.WriteString("\nmissing from model:")
		for _, name := range r.MissingFromModel {
			fmt.Fprintf(&b, "\n- %s", name)
		}
	}
	if len(r.ExtraInModel) > 0 {
		b.WriteString("\nextra in model:")
		for _, name := range r.ExtraInModel {
			fmt.Fprintf(&b, "\n+ %s", name)
		}
	}
	return b.String()
}

func (r *MismatchReport) Unwrap() error {
	return atomfeed.ErrTemplateMismatch
}

// TemplateFields returns the distinct names referenced by a template.
func TemplateFields(template string) map[string]struct{} {
	fields := make(map[string]struct{})
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		fields[m[1]] = struct{}{}
	}
	return fields
}

// ModelFields returns the names a model type exposes: its data fields,
// named by their json tag, and the derived names, recursively for every
// nested model. Unexported fields and fields tagged json:"-" or
// mustache:"-" are left out with everything below them. Names starting with
// an underscore are left out at every level, derived names included, but
// the fields of a model behind such a name are still collected.
func ModelFields(t reflect.Type) map[string]struct{} {
	fields := make(map[string]struct{})
	collect(t, fields, make(map[reflect.Type]bool))
	return fields
}

func collect(t reflect.Type, fields map[string]struct{}, visited map[reflect.Type]bool) {
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice || t.Kind() == reflect.Array || t.Kind() == reflect.Map {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || visited[t] {
		return
	}
	visited[t] = true

	if t.Implements(derivedType) {
		for _, name := range reflect.Zero(t).Interface().(Derived).DerivedFields() {
			if !strings.HasPrefix(name, "_") {
				fields[name] = struct{}{}
			}
		}
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Tag.Get("mustache") == "-" {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}
		// internal names stay out, the models below them do not
		if !strings.HasPrefix(name, "_") {
			fields[name] = struct{}{}
		}
		collect(field.Type, fields, visited)
	}
}

func fieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// Reconcile compares the names of a template with the names of a model and
// returns a *MismatchReport when they differ.
func Reconcile(template string, model reflect.Type) error {
	templateFields := TemplateFields(template)
	modelFields := ModelFields(model)

	report := &MismatchReport{}
	for name := range templateFields {
		if _, ok := modelFields[name]; !ok {
			report.MissingFromModel = append(report.MissingFromModel, name)
		}
	}
	for name := range modelFields {
		if _, ok := templateFields[name]; !ok {
			report.ExtraInModel = append(report.ExtraInModel, name)
		}
	}
	if len(report.MissingFromModel) == 0 && len(report.ExtraInModel) == 0 {
		return nil
	}
	slices.Sort(report.MissingFromModel)
	slices.Sort(report.ExtraInModel)
	return report
}

// Templates reconciles the embedded service and data feed templates with
// the feed models.
func Templates() error {
	var errs []string
	if err := Reconcile(atomfeed.ServiceFeedTemplate, reflect.TypeOf(atomfeed.ServiceFeed{})); err != nil {
		errs = append(errs, "service feed: "+err.Error())
	}
	if err := Reconcile(atomfeed.DataFeedTemplate, reflect.TypeOf(atomfeed.Dataset{})); err != nil {
		errs = append(errs, "data feed: "+err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w\n%s", atomfeed.ErrTemplateMismatch, strings.Join(errs, "\n"))
	}
	return nil
}
