package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/gaugeworks/toolgauge/gauge/schema"
)

// ToolMeta records where a tool came from and when it was materialized.
type ToolMeta struct {
	Module    string    `json:"module"`  // import path of the handler's package
	Toolkit   string    `json:"toolkit"`
	Package   string    `json:"package"` // last segment of the import path
	Path      string    `json:"path"`    // source file of the handler
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaterializedTool is a tool as held by the catalog: its derived definition,
// the underlying handler, and provenance metadata. Immutable once built.
type MaterializedTool struct {
	Definition schema.ToolDefinition
	Handler    any
	Meta       ToolMeta

	d           *derived
	inputSchema []byte // cached JSON Schema for argument validation
}

func newMaterializedTool(handler any, decl Declaration) (*MaterializedTool, error) {
	d, err := derive(handler, decl)
	if err != nil {
		return nil, err
	}
	inputSchema, err := schema.InputSchemaJSON(&d.definition)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	module, path := handlerOrigin(handler)
	return &MaterializedTool{
		Definition: d.definition,
		Handler:    handler,
		Meta: ToolMeta{
			Module:    module,
			Toolkit:   decl.Toolkit,
			Package:   module[strings.LastIndex(module, "/")+1:],
			Path:      path,
			CreatedAt: now,
			UpdatedAt: now,
		},
		d:           d,
		inputSchema: inputSchema,
	}, nil
}

// Name returns the tool's wire-level name.
func (t *MaterializedTool) Name() string { return t.Definition.Name }

// FQName returns the tool's fully-qualified name.
func (t *MaterializedTool) FQName() schema.FullyQualifiedName { return t.Definition.FQName() }

// RequiresAuth reports whether the tool declared an auth requirement.
func (t *MaterializedTool) RequiresAuth() bool {
	return t.Definition.Requirements.Authorization != nil
}

// InputSchema returns the tool's input contract as a JSON Schema document.
func (t *MaterializedTool) InputSchema() []byte { return t.inputSchema }

// FillArguments completes an argument map against the tool's parameter list:
// provided values pass through, declared defaults fill gaps, and anything
// else becomes an explicit nil. The input map is not mutated.
func (t *MaterializedTool) FillArguments(args map[string]any) map[string]any {
	filled := make(map[string]any, len(t.Definition.Inputs.Parameters))
	for _, p := range t.Definition.Inputs.Parameters {
		if v, ok := args[p.Name]; ok {
			filled[p.Name] = v
			continue
		}
		if def, ok := t.d.defaults[p.Name]; ok {
			filled[p.Name] = def
			continue
		}
		filled[p.Name] = nil
	}
	return filled
}

// Invoke calls the handler with JSON-encoded arguments. The ToolContext is
// injected into the args struct when the tool declared a context field.
func (t *MaterializedTool) Invoke(ctx context.Context, tc schema.ToolContext, raw json.RawMessage) (any, error) {
	handlerValue := reflect.ValueOf(t.Handler)

	var callArgs []reflect.Value
	if t.d.takesContext {
		callArgs = append(callArgs, reflect.ValueOf(ctx))
	}

	if t.d.argsType != nil {
		argsValue, err := t.buildArgs(tc, raw)
		if err != nil {
			return nil, err
		}
		callArgs = append(callArgs, argsValue)
	}

	outs := handlerValue.Call(callArgs)
	switch len(outs) {
	case 0:
		return nil, nil
	case 1:
		if err, _ := outs[0].Interface().(error); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		if err, _ := outs[1].Interface().(error); err != nil {
			return nil, err
		}
		return outs[0].Interface(), nil
	}
}

// buildArgs decodes the raw argument object into a fresh args struct,
// honoring wire-level parameter renames.
func (t *MaterializedTool) buildArgs(tc schema.ToolContext, raw json.RawMessage) (reflect.Value, error) {
	argsPtr := reflect.New(t.d.argsType)
	argsElem := argsPtr.Elem()

	var fields map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return reflect.Value{}, fmt.Errorf("invalid arguments for tool %s: %w", t.Name(), err)
		}
	}

	for wireName, idx := range t.d.paramFields {
		rawField, ok := fields[wireName]
		if !ok {
			continue
		}
		fieldValue := argsElem.Field(idx)
		if err := json.Unmarshal(rawField, fieldValue.Addr().Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("invalid value for parameter %s of tool %s: %w", wireName, t.Name(), err)
		}
	}

	if t.d.ctxFieldIdx >= 0 {
		argsElem.Field(t.d.ctxFieldIdx).Set(reflect.ValueOf(tc))
	}
	return argsElem, nil
}

// handlerBaseName returns the bare function name of a handler, without the
// package qualifier or closure suffixes.
func handlerBaseName(handler any) string {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return ""
	}
	name := fn.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	// Method values and closures carry -fm / funcN suffixes.
	name = strings.TrimSuffix(name, "-fm")
	return name
}

// handlerOrigin resolves the handler's package import path and source file.
func handlerOrigin(handler any) (module, path string) {
	fn := runtime.FuncForPC(reflect.ValueOf(handler).Pointer())
	if fn == nil {
		return "", ""
	}
	full := fn.Name()
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		module = full[:idx]
	}
	path, _ = fn.FileLine(fn.Entry())
	return module, path
}
