package schema

import (
	"strings"
)

// NameSeparator joins a toolkit name and a tool name into a
// fully-qualified name, e.g. "Contacts.CreateContact".
const NameSeparator = "."

// WireType is the serialization type of a value as it crosses the
// model/tool boundary.
type WireType string

const (
	TypeString  WireType = "string"
	TypeInteger WireType = "integer"
	TypeNumber  WireType = "number"
	TypeBoolean WireType = "boolean"
	TypeJSON    WireType = "json"
	TypeArray   WireType = "array"
)

// ValueSchema describes the wire shape of a parameter or output value.
type ValueSchema struct {
	ValType      WireType `json:"val_type"`
	InnerValType WireType `json:"inner_val_type,omitempty"` // element type when ValType is array
	Enum         []string `json:"enum,omitempty"`           // closed value set, in declaration order
}

// InputParameter is one parameter a tool accepts.
type InputParameter struct {
	Name        string      `json:"name"`
	Required    bool        `json:"required"`
	Description string      `json:"description"`
	ValueSchema ValueSchema `json:"value_schema"`
	Inferrable  bool        `json:"inferrable"`
}

// ToolInputs is the full input contract of a tool.
type ToolInputs struct {
	Parameters []InputParameter `json:"parameters"`

	// ContextParameterName names the args-struct field that receives the
	// ToolContext, if any. Excluded from serialization and from Parameters.
	ContextParameterName string `json:"-"`
}

// OutputMode enumerates the ways a tool invocation can conclude.
type OutputMode string

const (
	ModeValue OutputMode = "value"
	ModeError OutputMode = "error"
	ModeNull  OutputMode = "null"
)

// ToolOutput is the output contract of a tool.
type ToolOutput struct {
	Description    string       `json:"description"`
	AvailableModes []OutputMode `json:"available_modes"`
	ValueSchema    *ValueSchema `json:"value_schema,omitempty"`
}

// OAuth2Requirement indicates the tool requires OAuth 2.0 authorization.
type OAuth2Requirement struct {
	Authority string   `json:"authority,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

// AuthRequirement declares the authorization a tool needs before it runs.
type AuthRequirement struct {
	Provider string             `json:"provider"`
	OAuth2   *OAuth2Requirement `json:"oauth2,omitempty"`
}

// ToolRequirements aggregates everything a tool needs from its environment.
type ToolRequirements struct {
	Authorization *AuthRequirement `json:"authorization,omitempty"`
	Secrets       []string         `json:"secrets,omitempty"`
	Metadata      []string         `json:"metadata,omitempty"`
}

// ToolkitDefinition identifies the toolkit a tool belongs to.
type ToolkitDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// ToolDefinition is the complete, serializable contract of one tool.
type ToolDefinition struct {
	Name               string            `json:"name"`
	FullyQualifiedName string            `json:"fully_qualified_name"`
	Description        string            `json:"description"`
	Toolkit            ToolkitDefinition `json:"toolkit"`
	Inputs             ToolInputs        `json:"inputs"`
	Output             ToolOutput        `json:"output"`
	Requirements       ToolRequirements  `json:"requirements"`
}

// FQName returns the structured fully-qualified name of the tool.
func (d *ToolDefinition) FQName() FullyQualifiedName {
	return FullyQualifiedName{
		Name:           d.Name,
		ToolkitName:    d.Toolkit.Name,
		ToolkitVersion: d.Toolkit.Version,
	}
}

// FullyQualifiedName uniquely identifies a tool within a catalog.
type FullyQualifiedName struct {
	Name           string
	ToolkitName    string
	ToolkitVersion string
}

func (f FullyQualifiedName) String() string {
	if f.ToolkitName == "" {
		return f.Name
	}
	return f.ToolkitName + NameSeparator + f.Name
}

// EqualsIgnoringVersion reports whether two names refer to the same tool,
// regardless of toolkit version. Comparison is case-insensitive.
func (f FullyQualifiedName) EqualsIgnoringVersion(other FullyQualifiedName) bool {
	return strings.EqualFold(f.Name, other.Name) &&
		strings.EqualFold(f.ToolkitName, other.ToolkitName)
}

// ParseFullyQualifiedName splits a "Toolkit.Tool" string. Underscore and
// hyphen separators are tolerated in place of the canonical dot.
func ParseFullyQualifiedName(s string) FullyQualifiedName {
	canonical := s
	for _, sep := range []string{"_", "-"} {
		canonical = strings.ReplaceAll(canonical, sep, NameSeparator)
	}
	if idx := strings.Index(canonical, NameSeparator); idx >= 0 {
		return FullyQualifiedName{
			ToolkitName: canonical[:idx],
			Name:        strings.ReplaceAll(canonical[idx+1:], NameSeparator, ""),
		}
	}
	return FullyQualifiedName{Name: s}
}

// ToolAuthorizationContext carries auth state for one invocation.
type ToolAuthorizationContext struct {
	Token string `json:"token,omitempty"`
}

// ToolContext is injected into a tool's args struct at invocation time.
// A tool declares at most one ToolContext field; it never appears in the
// tool's input parameters.
type ToolContext struct {
	Authorization *ToolAuthorizationContext `json:"authorization,omitempty"`
}

// Enumerated lets a named type publish its closed set of wire values.
// The schema deriver records the values, in order, as the parameter's enum.
type Enumerated interface {
	EnumValues() []string
}
