package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaugeworks/toolgauge/gauge/schema"
)

type color string

func (color) EnumValues() []string { return []string{"red", "green", "blue"} }

type noteArgs struct {
	Title    string   `desc:"The note title"`
	Body     string   `arg:"content" desc:"The note body"`
	Tags     []string `desc:"Tags applied to the note"`
	Pinned   *bool    `desc:"Whether the note is pinned"`
	Priority int      `desc:"Priority from 1 to 5" default:"3"`
	Color    color    `desc:"Display color"`
	Secret   string   `desc:"Operator-supplied token" inferrable:"false"`
}

func createNote(ctx context.Context, args noteArgs) (string, error) { return args.Title, nil }

func declFor(name string) Declaration {
	return Declaration{Toolkit: "Notes", ToolkitVersion: "1.0.0", Name: name, Description: "Create a note"}
}

func TestDeriveDefinition(t *testing.T) {
	def, err := DeriveDefinition(createNote, declFor("CreateNote"))
	require.NoError(t, err)

	assert.Equal(t, "CreateNote", def.Name)
	assert.Equal(t, "Notes.CreateNote", def.FullyQualifiedName)
	assert.Equal(t, "Notes", def.Toolkit.Name)
	require.Len(t, def.Inputs.Parameters, 7)

	byName := make(map[string]schema.InputParameter)
	for _, p := range def.Inputs.Parameters {
		byName[p.Name] = p
	}

	title := byName["title"]
	assert.True(t, title.Required)
	assert.True(t, title.Inferrable)
	assert.Equal(t, schema.TypeString, title.ValueSchema.ValType)

	content, ok := byName["content"]
	require.True(t, ok, "arg tag should rename the parameter")
	assert.Equal(t, "The note body", content.Description)

	tags := byName["tags"]
	assert.Equal(t, schema.TypeArray, tags.ValueSchema.ValType)
	assert.Equal(t, schema.TypeString, tags.ValueSchema.InnerValType)

	assert.False(t, byName["pinned"].Required, "pointer parameters are optional")
	assert.False(t, byName["priority"].Required, "defaulted parameters are optional")
	assert.Equal(t, schema.TypeInteger, byName["priority"].ValueSchema.ValType)

	assert.Equal(t, []string{"red", "green", "blue"}, byName["color"].ValueSchema.Enum)
	assert.False(t, byName["secret"].Inferrable)
}

func TestDeriveOutputModes(t *testing.T) {
	type out struct{ ID string }

	fireAndForget := func(ctx context.Context) {}
	errOnly := func(ctx context.Context) error { return nil }
	valued := func(ctx context.Context) (out, error) { return out{}, nil }
	maybeValued := func(ctx context.Context) (*out, error) { return nil, nil }

	def, err := DeriveDefinition(fireAndForget, declFor("Fire"))
	require.NoError(t, err)
	assert.Equal(t, []schema.OutputMode{schema.ModeNull}, def.Output.AvailableModes)
	assert.Equal(t, "No description provided.", def.Output.Description)

	def, err = DeriveDefinition(errOnly, declFor("ErrOnly"))
	require.NoError(t, err)
	assert.Equal(t, []schema.OutputMode{schema.ModeNull}, def.Output.AvailableModes)

	def, err = DeriveDefinition(valued, declFor("Valued"))
	require.NoError(t, err)
	assert.Equal(t, []schema.OutputMode{schema.ModeValue, schema.ModeError}, def.Output.AvailableModes)
	require.NotNil(t, def.Output.ValueSchema)
	assert.Equal(t, schema.TypeJSON, def.Output.ValueSchema.ValType)

	def, err = DeriveDefinition(maybeValued, declFor("MaybeValued"))
	require.NoError(t, err)
	assert.Equal(t, []schema.OutputMode{schema.ModeValue, schema.ModeError, schema.ModeNull}, def.Output.AvailableModes)
}

func TestDeriveToolContext(t *testing.T) {
	type args struct {
		TC    schema.ToolContext
		Query string `desc:"The query"`
	}
	handler := func(ctx context.Context, a args) error { return nil }

	d, err := derive(handler, declFor("WithContext"))
	require.NoError(t, err)
	assert.Equal(t, "TC", d.definition.Inputs.ContextParameterName)
	require.Len(t, d.definition.Inputs.Parameters, 1)
	assert.Equal(t, "query", d.definition.Inputs.Parameters[0].Name)
}

func TestDeriveRejectsSecondToolContext(t *testing.T) {
	type args struct {
		A schema.ToolContext
		B schema.ToolContext
	}
	handler := func(ctx context.Context, a args) error { return nil }

	_, err := DeriveDefinition(handler, declFor("TwoContexts"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one ToolContext parameter is supported")
}

func TestDeriveErrors(t *testing.T) {
	type missingDesc struct {
		Query string
	}
	type nestedPointer struct {
		Value **string `desc:"Nope"`
	}
	type badEnum struct {
		Count int `desc:"A count" enum:"1,2,3"`
	}

	tests := []struct {
		name    string
		handler any
		decl    Declaration
		wantMsg string
	}{
		{"nil handler", nil, declFor("X"), "must not be nil"},
		{"not a function", 42, declFor("X"), "must be a function"},
		{"no description", func(ctx context.Context) error { return nil }, Declaration{Toolkit: "Notes", Name: "X"}, "missing a description"},
		{"no toolkit", func(ctx context.Context) error { return nil }, Declaration{Name: "X", Description: "d"}, "must declare a toolkit"},
		{"param without description", func(ctx context.Context, a missingDesc) error { return nil }, declFor("X"), "parameter query is missing a description"},
		{"nested pointer", func(ctx context.Context, a nestedPointer) error { return nil }, declFor("X"), "nested pointer"},
		{"enum on non-string", func(ctx context.Context, a badEnum) error { return nil }, declFor("X"), "enum tag requires a string-kind parameter"},
		{"bare value return", func(ctx context.Context) string { return "" }, declFor("X"), "single return value must be error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveDefinition(tt.handler, tt.decl)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var defErr *DefinitionError
			assert.ErrorAs(t, err, &defErr)
		})
	}
}

func TestDeriveInvalidDefault(t *testing.T) {
	type args struct {
		Count int `desc:"A count" default:"lots"`
	}
	handler := func(ctx context.Context, a args) error { return nil }

	_, err := DeriveDefinition(handler, declFor("BadDefault"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid default")
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"FirstName": "first_name",
		"ContactID": "contact_id",
		"Query":     "query",
		"HTTPPort":  "http_port",
		"A":         "a",
	}
	for input, expected := range tests {
		assert.Equal(t, expected, snakeCase(input), "input %q", input)
	}
}
