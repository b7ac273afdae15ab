package catalog

// toolEntry pairs a handler with its declaration inside a toolkit.
type toolEntry struct {
	handler any
	decl    Declaration
}

// Toolkit groups related tools under a shared name and version. Build one
// with NewToolkit and Add, then hand it to Catalog.AddToolkit.
type Toolkit struct {
	Name        string
	Version     string
	Description string

	entries []toolEntry
}

// NewToolkit creates an empty toolkit.
func NewToolkit(name, version, description string) *Toolkit {
	return &Toolkit{Name: name, Version: version, Description: description}
}

// Add declares a tool. The toolkit fields of the declaration are filled in
// at registration time; a name left empty falls back to the handler's
// function name.
func (tk *Toolkit) Add(handler any, decl Declaration) *Toolkit {
	if decl.Name == "" {
		decl.Name = handlerBaseName(handler)
	}
	tk.entries = append(tk.entries, toolEntry{handler: handler, decl: decl})
	return tk
}
