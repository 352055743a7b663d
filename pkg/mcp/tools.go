package mcp

import "github.com/mark3labs/mcp-go/mcp"

func listModulesTool() mcp.Tool {
	return mcp.NewTool("list_modules",
		mcp.WithDescription("Lists the native modules found in the project with a count of each kind of declaration"),
		mcp.WithBoolean("refresh",
			mcp.Description("Rescan the project before answering (default: false)"),
		),
	)
}

func getModuleDefinitionTool() mcp.Tool {
	return mcp.NewTool("get_module_definition",
		mcp.WithDescription("Returns the full extracted definition of one module, including signatures and its view"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Module name as declared by Name(...)"),
		),
	)
}

func generateStubTool() mcp.Tool {
	return mcp.NewTool("generate_stub",
		mcp.WithDescription("Renders the TypeScript stub for one module, optionally writing it to the output directory"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Module name as declared by Name(...)"),
		),
		mcp.WithBoolean("write",
			mcp.Description("Write the stub to <out>/<Name>.ts (default: false)"),
		),
	)
}
