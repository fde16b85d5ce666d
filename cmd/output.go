package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/PaesslerAG/jsonpath"
	"github.com/charmbracelet/glamour"
)

// print writes the report v as JSON, optionally filtered by a JSONPath
// query, or md as markdown.
func (p *outputFlags) print(w io.Writer, md string, v any) error {
	if p.json || p.path != "" {
		return printJSON(w, v, p.path)
	}
	if p.markdown {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(160))
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// printJSON writes v as indented JSON. A non empty path selects a part of it.
func printJSON(w io.Writer, v any, path string) error {
	if path != "" {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var obj any
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if v, err = jsonpath.Get(path, obj); err != nil {
			return fmt.Errorf("evaluating %q: %w", path, err)
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
