package catalog

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	radix "github.com/armon/go-radix"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/gaugeworks/toolgauge/gauge/schema"
)

// Options configures a catalog at construction. The disabled sets are
// explicit configuration, applied as a filter on every registration; they are
// read once and lowercased here.
type Options struct {
	DisabledTools    []string // fully-qualified names, e.g. "Contacts.CreateContact"
	DisabledToolkits []string // toolkit names, e.g. "Contacts"
	Logger           zerolog.Logger
}

// Catalog maps fully-qualified names to materialized tools. Constructed once
// per evaluation process; registration is the only mutation.
type Catalog struct {
	mu               sync.RWMutex
	tools            map[schema.FullyQualifiedName]*MaterializedTool
	index            *radix.Tree // lowercase fq string -> FullyQualifiedName
	order            []schema.FullyQualifiedName
	disabledTools    map[string]struct{}
	disabledToolkits map[string]struct{}
	logger           zerolog.Logger
}

// New creates an empty catalog.
func New(opts Options) *Catalog {
	c := &Catalog{
		tools:            make(map[schema.FullyQualifiedName]*MaterializedTool),
		index:            radix.New(),
		disabledTools:    make(map[string]struct{}, len(opts.DisabledTools)),
		disabledToolkits: make(map[string]struct{}, len(opts.DisabledToolkits)),
		logger:           opts.Logger,
	}
	for _, name := range opts.DisabledTools {
		c.disabledTools[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	for _, name := range opts.DisabledToolkits {
		c.disabledToolkits[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return c
}

// AddTool derives and registers a single tool. Duplicate fully-qualified
// names are a hard error; disabled tools and toolkits are skipped silently
// except for an info log.
func (c *Catalog) AddTool(handler any, decl Declaration) error {
	tool, err := newMaterializedTool(handler, decl)
	if err != nil {
		return err
	}

	fq := tool.FQName()
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, disabled := c.disabledToolkits[strings.ToLower(fq.ToolkitName)]; disabled {
		c.logger.Info().Str("toolkit", fq.ToolkitName).Str("tool", fq.String()).
			Msg("toolkit is disabled; tool will not be cataloged")
		return nil
	}
	if _, disabled := c.disabledTools[strings.ToLower(fq.String())]; disabled {
		c.logger.Info().Str("tool", fq.String()).
			Msg("tool is disabled and will not be cataloged")
		return nil
	}

	if _, exists := c.tools[fq]; exists {
		return fmt.Errorf("tool %q already exists in the catalog", fq.String())
	}

	c.tools[fq] = tool
	c.index.Insert(strings.ToLower(fq.String()), fq)
	c.order = append(c.order, fq)
	return nil
}

// AddToolkit registers every tool a toolkit declares. A disabled toolkit
// contributes nothing.
func (c *Catalog) AddToolkit(tk *Toolkit) error {
	for _, entry := range tk.entries {
		decl := entry.decl
		decl.Toolkit = tk.Name
		decl.ToolkitVersion = tk.Version
		decl.ToolkitDescription = tk.Description
		if err := c.AddTool(entry.handler, decl); err != nil {
			return fmt.Errorf("failed to register tool from toolkit %s: %w", tk.Name, err)
		}
	}
	return nil
}

// Len returns the number of registered tools.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tools)
}

// IsEmpty reports whether the catalog holds no tools.
func (c *Catalog) IsEmpty() bool { return c.Len() == 0 }

// Get resolves a fully-qualified name. Version, when empty, matches any
// registered version of the tool.
func (c *Catalog) Get(fq schema.FullyQualifiedName) (*MaterializedTool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if fq.ToolkitVersion != "" {
		if tool, ok := c.tools[fq]; ok {
			return tool, nil
		}
		return nil, fmt.Errorf("tool %s@%s not found in the catalog", fq.String(), fq.ToolkitVersion)
	}
	for key, tool := range c.tools {
		if key.EqualsIgnoringVersion(fq) {
			return tool, nil
		}
	}
	return nil, fmt.Errorf("tool %s not found in the catalog", fq.String())
}

// GetByName resolves a tool from a wire-level name, tolerating the separator
// and case conventions models actually emit. An unqualified name matches any
// toolkit.
func (c *Catalog) GetByName(name string) (*MaterializedTool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	normalized := schema.NormalizeToolName(name)
	for _, fq := range c.order {
		if schema.NormalizeToolName(fq.String()) == normalized ||
			schema.NormalizeToolName(fq.Name) == normalized {
			return c.tools[fq], nil
		}
	}
	return nil, fmt.Errorf("tool %s not found in the catalog", name)
}

// FindByHandler resolves a handler function back to its fully-qualified
// name. Suite authoring uses this so cases reference tools by function.
func (c *Catalog) FindByHandler(handler any) (schema.FullyQualifiedName, error) {
	ptr := reflect.ValueOf(handler).Pointer()
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, fq := range c.order {
		if reflect.ValueOf(c.tools[fq].Handler).Pointer() == ptr {
			return fq, nil
		}
	}
	return schema.FullyQualifiedName{}, fmt.Errorf("handler is not registered in the catalog")
}

// ToolNames returns every registered fully-qualified name in declaration
// order.
func (c *Catalog) ToolNames() []schema.FullyQualifiedName {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]schema.FullyQualifiedName, len(c.order))
	copy(names, c.order)
	return names
}

// Definitions returns every registered tool definition in declaration order.
func (c *Catalog) Definitions() []schema.ToolDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	defs := make([]schema.ToolDefinition, 0, len(c.order))
	for _, fq := range c.order {
		defs = append(defs, c.tools[fq].Definition)
	}
	return defs
}

// ListToolkit enumerates the tools of one toolkit, in index order.
func (c *Catalog) ListToolkit(toolkit string) []schema.FullyQualifiedName {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var names []schema.FullyQualifiedName
	prefix := strings.ToLower(toolkit) + schema.NameSeparator
	c.index.WalkPrefix(prefix, func(_ string, v any) bool {
		names = append(names, v.(schema.FullyQualifiedName))
		return false
	})
	return names
}

// ValidateArguments checks a raw argument payload against the tool's derived
// input schema. Callers treat failures as advisory: a model emitting bad
// arguments degrades its score, it does not crash the run.
func (c *Catalog) ValidateArguments(name string, raw json.RawMessage) error {
	tool, err := c.GetByName(name)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(tool.InputSchema()),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("argument validation failed for %s: %w", name, err)
	}
	if !result.Valid() {
		var issues []string
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return fmt.Errorf("arguments for %s do not match its schema: %s", name, strings.Join(issues, "; "))
	}
	return nil
}
