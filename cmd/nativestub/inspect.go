package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/scanner"
	"github.com/gnana997/nativestub/pkg/typemap"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [root]",
		Short: "Print the extracted module definitions",
		Long: `Extracts the module definitions under root without writing stubs.
Every declaration kind is shown, including the ones stubs omit (events,
properties, props, OnCreate and views).`,
		Args: cobra.MaximumNArgs(1),
		RunE: runInspect,
	}
	cmd.Flags().Bool("json", false, "Output as JSON")
	cmd.Flags().String("module", "", "Only show the module with this name")
	return cmd
}

type inspectOutput struct {
	Modules  []definition.ModuleDefinition `json:"modules"`
	Warnings []definition.Warning          `json:"warnings"`
	Stats    scanner.Stats                 `json:"stats"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	a, err := setupApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.scanner.Run(cmd.Context(), a.root, a.settings.Scan)
	if err != nil {
		return err
	}

	modules := result.Modules
	if name, _ := cmd.Flags().GetString("module"); name != "" {
		modules = filterModules(modules, name)
		if len(modules) == 0 {
			return fmt.Errorf("module %q not found", name)
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printInspectJSON(out, inspectOutput{Modules: modules, Warnings: result.Warnings, Stats: result.Stats})
	}

	for i, m := range modules {
		if i > 0 {
			fmt.Fprintln(out)
		}
		printModuleHuman(out, m, a.root)
	}
	if len(modules) == 0 {
		fmt.Fprintln(out, "No module definitions found.")
	}
	printWarnings(cmd.ErrOrStderr(), result.Warnings)
	return nil
}

func filterModules(modules []definition.ModuleDefinition, name string) []definition.ModuleDefinition {
	var out []definition.ModuleDefinition
	for _, m := range modules {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func printInspectJSON(w io.Writer, v inspectOutput) error {
	if v.Modules == nil {
		v.Modules = []definition.ModuleDefinition{}
	}
	if v.Warnings == nil {
		v.Warnings = []definition.Warning{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printModuleHuman prints a readable summary of m. Source paths are shown
// relative to root when possible.
func printModuleHuman(w io.Writer, m definition.ModuleDefinition, root string) {
	name := m.Name
	if name == "" {
		name = "(unnamed)"
	}
	if m.SourcePath != "" {
		src := m.SourcePath
		if rel, err := filepath.Rel(root, src); err == nil && !strings.HasPrefix(rel, "..") {
			src = rel
		}
		fmt.Fprintf(w, "%s  (%s)\n", name, src)
	} else {
		fmt.Fprintln(w, name)
	}
	printModuleBody(w, m, "  ")
}

func printModuleBody(w io.Writer, m definition.ModuleDefinition, indent string) {
	printDeclarations(w, indent, "Functions", m.Functions, false)
	printDeclarations(w, indent, "Async functions", m.AsyncFunctions, true)

	if len(m.Events) > 0 {
		names := make([]string, len(m.Events))
		for i, e := range m.Events {
			names[i] = e.Name
		}
		fmt.Fprintf(w, "%sEvents  %s\n", indent, strings.Join(names, ", "))
	}

	printDeclarations(w, indent, "Properties", m.Properties, false)
	printDeclarations(w, indent, "Props", m.Props, false)
	printDeclarations(w, indent, "OnCreate", m.OnCreate, false)

	if m.View != nil {
		name := m.View.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%sView %s\n", indent, name)
		printModuleBody(w, *m.View, indent+"  ")
	}
}

func printDeclarations(w io.Writer, indent, title string, decls []definition.Declaration, async bool) {
	if len(decls) == 0 {
		return
	}
	fmt.Fprintf(w, "%s%s\n", indent, title)
	for _, d := range decls {
		name := d.Label()
		if name == "" {
			name = "_"
		}
		prefix := ""
		if async {
			prefix = "async "
		}
		fmt.Fprintf(w, "%s  %s%s%s\n", indent, prefix, name, formatSignature(d.Signature))
	}
}

// formatSignature renders sig in native notation: "(a: Int, _: String) -> Bool".
func formatSignature(sig definition.FunctionSignature) string {
	params := make([]string, len(sig.Parameters))
	for i, p := range sig.Parameters {
		label := p.Label()
		if label == "" {
			label = "_"
		}
		params[i] = label + ": " + p.Type.String()
	}
	s := "(" + strings.Join(params, ", ") + ")"
	if sig.ReturnType.Kind != typemap.KindVoid {
		s += " -> " + sig.ReturnType.String()
	}
	return s
}
