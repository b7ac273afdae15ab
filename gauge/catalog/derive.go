package catalog

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/gaugeworks/toolgauge/gauge/schema"
)

// DefinitionError reports an invalid tool declaration. Definition errors are
// authoring mistakes: they surface immediately at registration time and are
// never recovered from.
type DefinitionError struct {
	msg string
}

func (e *DefinitionError) Error() string { return e.msg }

func definitionErrorf(format string, args ...any) *DefinitionError {
	return &DefinitionError{msg: fmt.Sprintf(format, args...)}
}

// Declaration carries the metadata a handler cannot express in its signature.
type Declaration struct {
	Toolkit            string
	ToolkitVersion     string
	ToolkitDescription string

	// Name overrides the handler's function name as the wire-level tool name.
	Name string

	// Description is mandatory: tools without one fail derivation.
	Description string

	// OutputDescription annotates the return value. Optional.
	OutputDescription string

	RequiresAuth     *schema.AuthRequirement
	RequiresSecrets  []string
	RequiresMetadata []string
}

var (
	identifierRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	contextType     = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType       = reflect.TypeOf((*error)(nil)).Elem()
	toolContextType = reflect.TypeOf(schema.ToolContext{})
	enumeratedType  = reflect.TypeOf((*schema.Enumerated)(nil)).Elem()
)

// derived bundles the definition with the reflection facts Invoke and
// argument filling need at runtime.
type derived struct {
	definition   schema.ToolDefinition
	argsType     reflect.Type // struct type, zero Type when the handler takes no args
	takesContext bool         // leading context.Context parameter
	ctxFieldIdx  int          // index of the ToolContext field in argsType, -1 if none
	paramFields  map[string]int // wire parameter name -> argsType field index
	defaults     map[string]any // wire parameter name -> declared default value
}

// DeriveDefinition inspects a handler function and its args struct and
// produces the tool's serializable input/output contract.
func DeriveDefinition(handler any, decl Declaration) (schema.ToolDefinition, error) {
	d, err := derive(handler, decl)
	if err != nil {
		return schema.ToolDefinition{}, err
	}
	return d.definition, nil
}

func derive(handler any, decl Declaration) (*derived, error) {
	if handler == nil {
		return nil, definitionErrorf("tool handler must not be nil")
	}
	t := reflect.TypeOf(handler)
	if t.Kind() != reflect.Func {
		return nil, definitionErrorf("tool handler must be a function, got %s", t.Kind())
	}

	name := decl.Name
	if name == "" {
		name = handlerBaseName(handler)
	}
	if name == "" {
		return nil, definitionErrorf("tool name could not be determined; set Declaration.Name")
	}
	if decl.Description == "" {
		return nil, definitionErrorf("tool %s is missing a description", name)
	}
	if decl.Toolkit == "" {
		return nil, definitionErrorf("tool %s must declare a toolkit", name)
	}

	d := &derived{ctxFieldIdx: -1, paramFields: make(map[string]int), defaults: make(map[string]any)}

	argPos := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		d.takesContext = true
		argPos = 1
	}
	switch t.NumIn() - argPos {
	case 0:
		// Tool takes no arguments.
	case 1:
		argsType := t.In(argPos)
		if argsType.Kind() == reflect.Pointer {
			argsType = argsType.Elem()
		}
		if argsType.Kind() != reflect.Struct {
			return nil, definitionErrorf("tool %s: args parameter must be a struct, got %s", name, argsType.Kind())
		}
		d.argsType = argsType
	default:
		return nil, definitionErrorf("tool %s: handler must take at most one args struct (plus an optional leading context.Context)", name)
	}

	inputs, err := d.deriveInputs(name)
	if err != nil {
		return nil, err
	}
	output, err := deriveOutput(t, name, decl.OutputDescription)
	if err != nil {
		return nil, err
	}

	toolkitDef := schema.ToolkitDefinition{
		Name:        decl.Toolkit,
		Description: decl.ToolkitDescription,
		Version:     decl.ToolkitVersion,
	}
	fq := schema.FullyQualifiedName{Name: name, ToolkitName: decl.Toolkit, ToolkitVersion: decl.ToolkitVersion}

	d.definition = schema.ToolDefinition{
		Name:               name,
		FullyQualifiedName: fq.String(),
		Description:        decl.Description,
		Toolkit:            toolkitDef,
		Inputs:             inputs,
		Output:             output,
		Requirements: schema.ToolRequirements{
			Authorization: decl.RequiresAuth,
			Secrets:       decl.RequiresSecrets,
			Metadata:      decl.RequiresMetadata,
		},
	}
	return d, nil
}

// deriveInputs walks the args struct and maps each exported field to an
// InputParameter.
func (d *derived) deriveInputs(toolName string) (schema.ToolInputs, error) {
	inputs := schema.ToolInputs{}
	if d.argsType == nil {
		return inputs, nil
	}

	for i := 0; i < d.argsType.NumField(); i++ {
		field := d.argsType.Field(i)
		if !field.IsExported() {
			continue
		}

		if field.Type == toolContextType {
			if d.ctxFieldIdx >= 0 {
				return inputs, definitionErrorf("tool %s: only one ToolContext parameter is supported, found a second at field %s", toolName, field.Name)
			}
			d.ctxFieldIdx = i
			inputs.ContextParameterName = field.Name
			continue
		}

		param, err := deriveParameter(toolName, field)
		if err != nil {
			return inputs, err
		}

		defaultTag, hasDefault := field.Tag.Lookup("default")
		if hasDefault {
			// A declared default makes the parameter optional.
			param.Required = false
			def, err := parseDefault(field.Type, defaultTag)
			if err != nil {
				return inputs, definitionErrorf("tool %s: parameter %s has an invalid default %q: %v", toolName, param.Name, defaultTag, err)
			}
			d.defaults[param.Name] = def
		}

		d.paramFields[param.Name] = i
		inputs.Parameters = append(inputs.Parameters, param)
	}
	return inputs, nil
}

func deriveParameter(toolName string, field reflect.StructField) (schema.InputParameter, error) {
	var param schema.InputParameter

	param.Name = snakeCase(field.Name)
	if rename, ok := field.Tag.Lookup("arg"); ok {
		// A rename is the two-part annotation form: it must be usable as an
		// identifier on the wire.
		if !identifierRe.MatchString(rename) {
			return param, definitionErrorf("tool %s: parameter rename %q for field %s is not a valid identifier", toolName, rename, field.Name)
		}
		param.Name = rename
	}

	desc, ok := field.Tag.Lookup("desc")
	if !ok || desc == "" {
		return param, definitionErrorf("tool %s: parameter %s is missing a description", toolName, param.Name)
	}
	param.Description = desc

	param.Inferrable = true
	if v, ok := field.Tag.Lookup("inferrable"); ok {
		inferrable, err := strconv.ParseBool(v)
		if err != nil {
			return param, definitionErrorf("tool %s: parameter %s has invalid inferrable tag %q", toolName, param.Name, v)
		}
		param.Inferrable = inferrable
	}

	fieldType := field.Type
	optional := false
	if fieldType.Kind() == reflect.Pointer {
		optional = true
		fieldType = fieldType.Elem()
		if fieldType.Kind() == reflect.Pointer {
			return param, definitionErrorf("tool %s: parameter %s has an unsupported nested pointer type", toolName, param.Name)
		}
	}
	param.Required = !optional

	var enumValues []string
	if tag, ok := field.Tag.Lookup("enum"); ok && tag != "" {
		enumValues = strings.Split(tag, ",")
	}

	vs, err := deriveValueSchema(fieldType, enumValues)
	if err != nil {
		return param, definitionErrorf("tool %s: parameter %s: %v", toolName, param.Name, err)
	}
	param.ValueSchema = vs
	return param, nil
}

// deriveValueSchema resolves a Go type to its wire schema. enumValues, when
// non-nil, comes from an enum tag and overrides type-level enum detection.
func deriveValueSchema(t reflect.Type, enumValues []string) (schema.ValueSchema, error) {
	var vs schema.ValueSchema

	inner := t
	if t.Kind() == reflect.Slice && t.Elem().Kind() != reflect.Uint8 {
		inner = t.Elem()
		if inner.Kind() == reflect.Pointer {
			inner = inner.Elem()
		}
		innerWire, err := wireTypeOf(inner)
		if err != nil {
			return vs, err
		}
		vs.ValType = schema.TypeArray
		vs.InnerValType = innerWire
	} else {
		wire, err := wireTypeOf(t)
		if err != nil {
			return vs, err
		}
		vs.ValType = wire
	}

	// Enum detection: explicit tag first, then the Enumerated interface on
	// the (inner) type. Enumerated values ride the wire as strings.
	switch {
	case enumValues != nil:
		if wireOfEnumTarget(vs) != schema.TypeString {
			return vs, fmt.Errorf("enum tag requires a string-kind parameter, got %s", vs.ValType)
		}
		vs.Enum = enumValues
	case inner.Implements(enumeratedType):
		vs.Enum = reflect.Zero(inner).Interface().(schema.Enumerated).EnumValues()
	}
	return vs, nil
}

func wireOfEnumTarget(vs schema.ValueSchema) schema.WireType {
	if vs.ValType == schema.TypeArray {
		return vs.InnerValType
	}
	return vs.ValType
}

// wireTypeOf maps a Go kind to its wire type. Unsupported kinds are
// derivation errors.
func wireTypeOf(t reflect.Type) (schema.WireType, error) {
	switch t.Kind() {
	case reflect.String:
		return schema.TypeString, nil
	case reflect.Bool:
		return schema.TypeBoolean, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return schema.TypeInteger, nil
	case reflect.Float32, reflect.Float64:
		return schema.TypeNumber, nil
	case reflect.Map, reflect.Struct:
		return schema.TypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported parameter type %s", t)
	}
}

// deriveOutput resolves the handler's return signature to an output contract.
func deriveOutput(t reflect.Type, toolName, description string) (schema.ToolOutput, error) {
	if description == "" {
		description = "No description provided."
	}
	out := schema.ToolOutput{Description: description}

	switch t.NumOut() {
	case 0:
		out.AvailableModes = []schema.OutputMode{schema.ModeNull}
		return out, nil
	case 1:
		if !t.Out(0).Implements(errorType) {
			return out, definitionErrorf("tool %s: a single return value must be error; return (T, error) for value-producing tools", toolName)
		}
		out.AvailableModes = []schema.OutputMode{schema.ModeNull}
		return out, nil
	case 2:
		if !t.Out(1).Implements(errorType) {
			return out, definitionErrorf("tool %s: second return value must be error", toolName)
		}
		valueType := t.Out(0)
		optional := valueType.Kind() == reflect.Pointer
		if optional {
			valueType = valueType.Elem()
		}
		vs, err := deriveValueSchema(valueType, nil)
		if err != nil {
			return out, definitionErrorf("tool %s: return value: %v", toolName, err)
		}
		out.ValueSchema = &vs
		out.AvailableModes = []schema.OutputMode{schema.ModeValue, schema.ModeError}
		if optional {
			out.AvailableModes = append(out.AvailableModes, schema.ModeNull)
		}
		return out, nil
	default:
		return out, definitionErrorf("tool %s: handler must return at most (T, error)", toolName)
	}
}

// parseDefault converts a default tag literal into the parameter's Go type.
func parseDefault(t reflect.Type, literal string) (any, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return literal, nil
	case reflect.Bool:
		return strconv.ParseBool(literal)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseInt(literal, 10, 64)
		if err != nil {
			return nil, err
		}
		return float64(n), nil
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(literal, 64)
	default:
		return nil, fmt.Errorf("defaults are only supported for primitive parameters")
	}
}

// snakeCase converts an exported Go field name to its wire form:
// FirstName -> first_name, ContactID -> contact_id.
func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
