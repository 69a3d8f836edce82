package reconcile_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/atom-generator/pkg/atomfeed"
	"github.com/pdok/atom-generator/pkg/atomfeed/reconcile"
)

type item struct {
	Name    string `json:"name"`
	Comment string `json:"comment,omitempty"`
	Skipped string `json:"-"`
	Hidden  string `json:"hidden" mustache:"-"`
	Private string `json:"_private"`
	cache   string
}

func (item) DerivedFields() []string { return []string{"item_url"} }

type list struct {
	Title string  `json:"title"`
	Items []*item `json:"items"`
	Self  *list   `json:"self,omitempty"`
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestTemplateFields(t *testing.T) {
	fields := reconcile.TemplateFields(`{{title}} {{ #items }}{{name}}{{^comment}}-{{/comment}}{{/ items}}{{> partial}}{{{raw}}}`)
	assert.ElementsMatch(t, []string{"title", "items", "name", "comment", "partial", "raw"}, keys(fields))
}

func TestModelFields(t *testing.T) {
	fields := reconcile.ModelFields(reflect.TypeOf(list{}))
	assert.ElementsMatch(t, []string{"title", "items", "self", "name", "comment", "item_url"}, keys(fields))
}

type note struct {
	Text string `json:"text"`
	Meta string `json:"_meta"`
}

func (note) DerivedFields() []string { return []string{"_internal", "note_url"} }

type wrapper struct {
	Label  string `json:"label"`
	Inner  note   `json:"_inner"`
	Notes  []note `json:"notes" mustache:"-"`
	Extras []item `json:"-"`
}

func TestModelFields_Underscore(t *testing.T) {
	tests := []struct {
		name     string
		model    any
		expected []string
	}{
		{"derived names", note{}, []string{"text", "note_url"}},
		{"nested below underscore field", wrapper{}, []string{"label", "text", "note_url"}},
		{"nested in slice", list{}, []string{"title", "items", "self", "name", "comment", "item_url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := reconcile.ModelFields(reflect.TypeOf(tt.model))
			assert.ElementsMatch(t, tt.expected, keys(fields))
			for name := range fields {
				assert.NotEqual(t, '_', rune(name[0]), name)
			}
		})
	}
}

func TestReconcile(t *testing.T) {
	model := reflect.TypeOf(list{})

	err := reconcile.Reconcile(`{{title}}{{#items}}{{name}}{{comment}}{{item_url}}{{/items}}{{self}}`, model)
	require.NoError(t, err)

	err = reconcile.Reconcile(`{{title}}{{#items}}{{name}}{{item_url}}{{author}}{{/items}}{{self}}`, model)
	require.Error(t, err)
	assert.ErrorIs(t, err, atomfeed.ErrTemplateMismatch)

	var report *reconcile.MismatchReport
	require.ErrorAs(t, err, &report)
	assert.Equal(t, []string{"author"}, report.MissingFromModel)
	assert.Equal(t, []string{"comment"}, report.ExtraInModel)
	assert.Contains(t, err.Error(), "missing from model:\n- author")
	assert.Contains(t, err.Error(), "extra in model:\n+ comment")
}

func TestReconcile_Sorted(t *testing.T) {
	err := reconcile.Reconcile(`{{zeta}}{{alpha}}{{mid}}`, reflect.TypeOf(struct{}{}))
	var report *reconcile.MismatchReport
	require.ErrorAs(t, err, &report)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, report.MissingFromModel)
	assert.Empty(t, report.ExtraInModel)
}

func TestTemplates(t *testing.T) {
	require.NoError(t, reconcile.Templates())
}

func TestTemplates_DetectsDrift(t *testing.T) {
	err := reconcile.Reconcile(atomfeed.DataFeedTemplate+"{{service_title}}", reflect.TypeOf(atomfeed.Dataset{}))
	var report *reconcile.MismatchReport
	require.ErrorAs(t, err, &report)
	assert.Equal(t, []string{"service_title"}, report.MissingFromModel)
}
