// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/sandbox"
)

// Tool groups, each switched by the matching features.* toggle. The system
// group is always registered.
const (
	groupDocker  = "docker"
	groupBrowser = "browser"
	groupFiles   = "files"
	groupDocs    = "docs"
	groupSystem  = "system"
)

// groupEnabled reports whether the configuration registers tools of group.
func groupEnabled(config *Config, group string) bool {
	switch group {
	case groupDocker:
		return config.Features.Docker
	case groupBrowser:
		return config.Features.Browser
	case groupFiles:
		return config.Features.Files
	case groupDocs:
		return config.Features.Docs
	default:
		return true
	}
}

// createTools creates and returns all MCP tool definitions enabled by config,
// with handlers bound to h.
//
// Every handler answers with the {success, data, error} envelope.
func createTools(config *Config, h *sandboxHandlers) []ToolDefinition {
	var tools []ToolDefinition
	for _, group := range [][]ToolDefinition{
		dockerTools(config, h),
		browserTools(config, h),
		fileTools(h),
		docsTools(h),
		systemTools(h),
	} {
		for _, tool := range group {
			if groupEnabled(config, tool.Group) {
				tools = append(tools, tool)
			}
		}
	}
	return tools
}

func containerIDArg() mcp.ToolOption {
	return mcp.WithString("container_id",
		mcp.Required(),
		mcp.Description("Registry id, label, engine id or engine id prefix of the container"),
	)
}

func dockerTools(config *Config, h *sandboxHandlers) []ToolDefinition {
	return []ToolDefinition{
		{
			Tool: mcp.NewTool("list_allowed_images",
				mcp.WithDescription("List the container images the security policy allows, with the active security level"),
			),
			Handler: h.handleListAllowedImages,
			Role:    "imageAllowList",
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("create_container",
				mcp.WithDescription("Create and start a container from an allowed image. The host workspace is mounted on "+config.Docker.WorkspaceMount),
				mcp.WithString("image",
					mcp.Required(),
					mcp.Description("Image reference, e.g. python:3.11-slim (see list_allowed_images)"),
				),
				mcp.WithString("name",
					mcp.Description("Label for the container, unique among live containers (default: generated)"),
				),
				mcp.WithString("command",
					mcp.Description("Command to run instead of a shell kept alive with a TTY"),
				),
				mcp.WithObject("environment",
					mcp.Description("Environment variables as an object of name to value"),
				),
				mcp.WithObject("ports",
					mcp.Description("Published ports as an object of container port (e.g. \"8080/tcp\") to host port"),
				),
				mcp.WithBoolean("use_gpu",
					mcp.Description("Request all GPUs (default: false)"),
					mcp.DefaultBool(false),
				),
			),
			Handler: h.handleCreateContainer,
			Role:    "containerCreate",
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("execute_command",
				mcp.WithDescription("Run a shell command in a running container and return its exit code and combined output"),
				containerIDArg(),
				mcp.WithString("command",
					mcp.Required(),
					mcp.Description("Command line passed to /bin/sh -c"),
				),
				mcp.WithNumber("timeout_seconds",
					mcp.Description(fmt.Sprintf("Timeout in seconds (default: %d)", config.Defaults.Timeout)),
					mcp.DefaultNumber(float64(config.Defaults.Timeout)),
				),
			),
			Handler: h.handleExecuteCommand,
			Role:    "containerExec",
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("list_containers",
				mcp.WithDescription("List managed containers with their registry state and live engine status"),
			),
			Handler: h.handleListContainers,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("stop_container",
				mcp.WithDescription("Stop a running container"),
				containerIDArg(),
			),
			Handler: h.containerCall((*sandbox.Sandbox).StopContainer),
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("start_container",
				mcp.WithDescription("Start a stopped container"),
				containerIDArg(),
			),
			Handler: h.containerCall((*sandbox.Sandbox).StartContainer),
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("restart_container",
				mcp.WithDescription("Restart a running or stopped container"),
				containerIDArg(),
			),
			Handler: h.containerCall((*sandbox.Sandbox).RestartContainer),
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("delete_container",
				mcp.WithDescription("Stop and remove a container. Its port streams are closed first. Deleting twice is harmless"),
				containerIDArg(),
			),
			Handler: h.containerCall((*sandbox.Sandbox).DeleteContainer),
			Role:    "containerDelete",
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("get_container_logs",
				mcp.WithDescription("Return the latest container output with timestamps"),
				containerIDArg(),
				mcp.WithNumber("tail",
					mcp.Description(fmt.Sprintf("Number of lines (default: %d)", config.Defaults.LogTail)),
					mcp.DefaultNumber(float64(config.Defaults.LogTail)),
				),
			),
			Handler: h.handleContainerLogs,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("read_file_in_container",
				mcp.WithDescription("Read a text file from a container"),
				containerIDArg(),
				mcp.WithString("file_path",
					mcp.Required(),
					mcp.Description("Path inside the container; relative paths start at the workspace mount"),
				),
			),
			Handler: h.handleReadFile,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("write_file_in_container",
				mcp.WithDescription("Write or append text to a file in a container, creating parent directories"),
				containerIDArg(),
				mcp.WithString("file_path",
					mcp.Required(),
					mcp.Description("Path inside the container; relative paths start at the workspace mount"),
				),
				mcp.WithString("content",
					mcp.Required(),
					mcp.Description("Text to write"),
				),
				mcp.WithBoolean("append",
					mcp.Description("Append instead of overwrite (default: false)"),
					mcp.DefaultBool(false),
				),
			),
			Handler: h.handleWriteFile,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("list_files_in_container",
				mcp.WithDescription("List a directory in a container (ls -la)"),
				containerIDArg(),
				mcp.WithString("directory_path",
					mcp.Description("Directory to list (default: "+config.Docker.WorkspaceMount+")"),
				),
			),
			Handler: h.handleListFiles,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("delete_file_in_container",
				mcp.WithDescription("Delete a file in a container"),
				containerIDArg(),
				mcp.WithString("file_path",
					mcp.Required(),
					mcp.Description("Path of the file to delete"),
				),
			),
			Handler: h.pathCall("file_path", (*sandbox.Sandbox).DeleteFile),
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("create_directory_in_container",
				mcp.WithDescription("Create a directory and its parents in a container"),
				containerIDArg(),
				mcp.WithString("directory_path",
					mcp.Required(),
					mcp.Description("Directory to create"),
				),
			),
			Handler: h.pathCall("directory_path", (*sandbox.Sandbox).MakeDir),
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("copy_file_to_container",
				mcp.WithDescription("Copy a file from the host workspace into a container"),
				containerIDArg(),
				mcp.WithString("source_path",
					mcp.Required(),
					mcp.Description("Path relative to the host workspace"),
				),
				mcp.WithString("destination_path",
					mcp.Description("Path inside the container (default: the file name under the workspace mount)"),
				),
			),
			Handler: h.handleCopyToContainer,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("copy_file_from_container",
				mcp.WithDescription("Copy a file out of a container into the host workspace"),
				containerIDArg(),
				mcp.WithString("source_path",
					mcp.Required(),
					mcp.Description("Path inside the container"),
				),
				mcp.WithString("destination_path",
					mcp.Description("Path relative to the host workspace (default: the file name)"),
				),
			),
			Handler: h.handleCopyFromContainer,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("start_port_stream",
				mcp.WithDescription("Forward a local TCP port to a port of a running container"),
				containerIDArg(),
				mcp.WithNumber("container_port",
					mcp.Required(),
					mcp.Description("Port the service listens on inside the container"),
				),
				mcp.WithNumber("host_port",
					mcp.Description("Local port to listen on (default: same as container_port)"),
				),
			),
			Handler: h.handleStartPortStream,
			Role:    "portStreamStart",
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("stop_port_stream",
				mcp.WithDescription("Stop forwarding a container port"),
				containerIDArg(),
				mcp.WithNumber("container_port",
					mcp.Required(),
					mcp.Description("Container port of the stream"),
				),
			),
			Handler: h.handleStopPortStream,
			Group:   groupDocker,
		},
		{
			Tool: mcp.NewTool("list_active_streams",
				mcp.WithDescription("List active port streams with connection and byte counters"),
			),
			Handler: h.handleListStreams,
			Group:   groupDocker,
		},
	}
}

func pageIDArg() mcp.ToolOption {
	return mcp.WithString("page_id",
		mcp.Required(),
		mcp.Description("Registry id or label of the page"),
	)
}

func driverIDArg() mcp.ToolOption {
	return mcp.WithString("driver_id",
		mcp.Required(),
		mcp.Description("Registry id or label of the WebDriver session"),
	)
}

func selectorArg() mcp.ToolOption {
	return mcp.WithString("selector",
		mcp.Required(),
		mcp.Description("CSS selector"),
	)
}

func browserTools(config *Config, h *sandboxHandlers) []ToolDefinition {
	headless := mcp.WithBoolean("headless",
		mcp.Description(fmt.Sprintf("Run without a window (default: %t)", config.Browser.Headless)),
		mcp.DefaultBool(config.Browser.Headless),
	)
	label := mcp.WithString("label",
		mcp.Description("Label for the new handle (default: generated)"),
	)
	timeout := mcp.WithNumber("timeout_seconds",
		mcp.Description(fmt.Sprintf("How long to wait (default: %d)", config.Defaults.Timeout)),
	)

	return []ToolDefinition{
		{
			Tool: mcp.NewTool("playwright_launch_browser",
				mcp.WithDescription("Launch a Chromium browser controlled over the DevTools protocol"),
				mcp.WithString("browser_type",
					mcp.Description("Browser engine; only chromium is supported by this backend"),
					mcp.DefaultString("chromium"),
				),
				headless,
				label,
				mcp.WithArray("args",
					mcp.Description("Extra command-line switches, e.g. --disable-gpu"),
					mcp.WithStringItems(),
				),
			),
			Handler: h.handleLaunchBrowser,
			Role:    "browserLaunch",
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_create_page",
				mcp.WithDescription(fmt.Sprintf("Open a new page in a browser with a %dx%d viewport", config.Browser.Viewport.Width, config.Browser.Viewport.Height)),
				mcp.WithString("browser_id",
					mcp.Required(),
					mcp.Description("Registry id or label of the browser"),
				),
				label,
			),
			Handler: h.handleCreatePage,
			Role:    "pageCreate",
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_navigate",
				mcp.WithDescription("Navigate a page to a URL and return the document title"),
				pageIDArg(),
				mcp.WithString("url", mcp.Required(), mcp.Description("URL to open")),
			),
			Handler: h.navigate("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_click",
				mcp.WithDescription("Click the first element matching a selector"),
				pageIDArg(),
				selectorArg(),
			),
			Handler: h.click("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_type",
				mcp.WithDescription("Type text into the first element matching a selector"),
				pageIDArg(),
				selectorArg(),
				mcp.WithString("text", mcp.Required(), mcp.Description("Text to type")),
				mcp.WithBoolean("clear",
					mcp.Description("Clear the field first (default: true)"),
					mcp.DefaultBool(true),
				),
			),
			Handler: h.typeText("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_screenshot",
				mcp.WithDescription("Capture a PNG screenshot, saved into the workspace unless return_base64 is set"),
				pageIDArg(),
				mcp.WithBoolean("full_page",
					mcp.Description("Capture the whole scrollable page (default: false)"),
					mcp.DefaultBool(false),
				),
				mcp.WithBoolean("return_base64",
					mcp.Description("Return the image inline instead of saving it (default: false)"),
					mcp.DefaultBool(false),
				),
				mcp.WithString("filename",
					mcp.Description("Workspace path for the image (default: screenshots/<label>-<unix>.png)"),
				),
			),
			Handler: h.screenshot("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_get_text",
				mcp.WithDescription("Return the visible text of the first element matching a selector"),
				pageIDArg(),
				mcp.WithString("selector",
					mcp.Description("CSS selector (default: body)"),
					mcp.DefaultString("body"),
				),
			),
			Handler: h.getText("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_wait_for_selector",
				mcp.WithDescription("Wait until an element matching a selector is visible"),
				pageIDArg(),
				selectorArg(),
				timeout,
			),
			Handler: h.waitFor("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_evaluate",
				mcp.WithDescription("Evaluate a JavaScript function or expression in the page and return its JSON result"),
				pageIDArg(),
				mcp.WithString("script", mcp.Required(), mcp.Description("JavaScript, e.g. () => document.title")),
			),
			Handler: h.evaluate("page_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_close_page",
				mcp.WithDescription("Close a page"),
				pageIDArg(),
			),
			Handler: h.closeCall("page_id", (*sandbox.Sandbox).ClosePage),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("playwright_close_browser",
				mcp.WithDescription("Close a browser and every page it owns"),
				mcp.WithString("browser_id",
					mcp.Required(),
					mcp.Description("Registry id or label of the browser"),
				),
			),
			Handler: h.closeCall("browser_id", (*sandbox.Sandbox).CloseBrowser),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_launch_driver",
				mcp.WithDescription("Open a WebDriver session on the configured Selenium endpoint"),
				mcp.WithString("browser_type",
					mcp.Description("chrome or firefox (default: chrome)"),
					mcp.DefaultString("chrome"),
				),
				headless,
				label,
				mcp.WithArray("args",
					mcp.Description("Extra browser arguments"),
					mcp.WithStringItems(),
				),
			),
			Handler: h.handleLaunchDriver,
			Role:    "driverLaunch",
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_navigate",
				mcp.WithDescription("Navigate a WebDriver session to a URL"),
				driverIDArg(),
				mcp.WithString("url", mcp.Required(), mcp.Description("URL to open")),
			),
			Handler: h.navigate("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_click",
				mcp.WithDescription("Click an element"),
				driverIDArg(),
				selectorArg(),
			),
			Handler: h.click("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_type",
				mcp.WithDescription("Type text into an element"),
				driverIDArg(),
				selectorArg(),
				mcp.WithString("text", mcp.Required(), mcp.Description("Text to type")),
				mcp.WithBoolean("clear",
					mcp.Description("Clear the field first (default: true)"),
					mcp.DefaultBool(true),
				),
			),
			Handler: h.typeText("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_screenshot",
				mcp.WithDescription("Capture a PNG screenshot of the current window"),
				driverIDArg(),
				mcp.WithBoolean("return_base64",
					mcp.Description("Return the image inline instead of saving it (default: false)"),
					mcp.DefaultBool(false),
				),
				mcp.WithString("filename",
					mcp.Description("Workspace path for the image"),
				),
			),
			Handler: h.screenshot("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_get_text",
				mcp.WithDescription("Return the text of an element"),
				driverIDArg(),
				mcp.WithString("selector",
					mcp.Description("CSS selector (default: body)"),
					mcp.DefaultString("body"),
				),
			),
			Handler: h.getText("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_execute_script",
				mcp.WithDescription("Execute JavaScript in the session and return its result"),
				driverIDArg(),
				mcp.WithString("script", mcp.Required(), mcp.Description("Script body, e.g. return document.title")),
			),
			Handler: h.evaluate("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_wait_for_element",
				mcp.WithDescription("Wait until an element is displayed"),
				driverIDArg(),
				selectorArg(),
				timeout,
			),
			Handler: h.waitFor("driver_id"),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("selenium_close_driver",
				mcp.WithDescription("Quit a WebDriver session"),
				driverIDArg(),
			),
			Handler: h.closeCall("driver_id", (*sandbox.Sandbox).CloseBrowser),
			Group:   groupBrowser,
		},
		{
			Tool: mcp.NewTool("list_browser_instances",
				mcp.WithDescription("List browsers, pages and WebDriver sessions"),
			),
			Handler: h.handleListBrowsers,
			Group:   groupBrowser,
		},
	}
}

func fileTools(h *sandboxHandlers) []ToolDefinition {
	return []ToolDefinition{
		{
			Tool: mcp.NewTool("upload_file",
				mcp.WithDescription("Write a file into the host workspace shared with containers"),
				mcp.WithString("filename",
					mcp.Required(),
					mcp.Description("Path relative to the workspace"),
				),
				mcp.WithString("content",
					mcp.Required(),
					mcp.Description("File content"),
				),
			),
			Handler: h.handleUploadFile,
			Role:    "workspaceUpload",
			Group:   groupFiles,
		},
		{
			Tool: mcp.NewTool("list_workspace_files",
				mcp.WithDescription("List files in the host workspace"),
			),
			Handler: h.handleListWorkspaceFiles,
			Group:   groupFiles,
		},
	}
}

func docsTools(h *sandboxHandlers) []ToolDefinition {
	return []ToolDefinition{
		{
			Tool: mcp.NewTool("search_devdocs",
				mcp.WithDescription("Search a DevDocs documentation set by entry name or path"),
				mcp.WithString("doc_slug",
					mcp.Required(),
					mcp.Description("Documentation slug, e.g. go or python~3.12"),
				),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("Case-insensitive search text"),
				),
			),
			Handler: h.handleSearchDevDocs,
			Role:    "docsSearch",
			Group:   groupDocs,
		},
		{
			Tool: mcp.NewTool("get_devdocs_content",
				mcp.WithDescription("Fetch the text of a DevDocs entry"),
				mcp.WithString("doc_slug",
					mcp.Required(),
					mcp.Description("Documentation slug"),
				),
				mcp.WithString("path",
					mcp.Required(),
					mcp.Description("Entry path from search_devdocs"),
				),
			),
			Handler: h.handleDevDocsContent,
			Role:    "docsContent",
			Group:   groupDocs,
		},
		{
			Tool: mcp.NewTool("list_devdocs_available",
				mcp.WithDescription("List documentation sets served by the DevDocs instance"),
			),
			Handler: h.handleDevDocsAvailable,
			Group:   groupDocs,
		},
	}
}

func systemTools(h *sandboxHandlers) []ToolDefinition {
	return []ToolDefinition{
		{
			Tool: mcp.NewTool("get_server_status",
				mcp.WithDescription("Report version, uptime, security level, registry counts and engine reachability"),
			),
			Handler: h.handleServerStatus,
			Role:    "serverStatus",
			Group:   groupSystem,
		},
		{
			Tool: mcp.NewTool("get_resource_usage",
				mcp.WithDescription("Report runtime memory and GC statistics, registry counts and DevDocs cache metrics"),
				mcp.WithBoolean("detailed",
					mcp.Description("Include detailed memory and cache statistics (default: false)"),
					mcp.DefaultBool(false),
				),
				mcp.WithString("format",
					mcp.Description("Output format: 'json' or 'markdown' (default: json)"),
					mcp.DefaultString("json"),
				),
			),
			Handler: h.handleResourceUsage,
			Role:    "resourceMonitor",
			Group:   groupSystem,
		},
		{
			Tool: mcp.NewTool("list_resources",
				mcp.WithDescription("List every tracked resource in creation order"),
				mcp.WithString("kind",
					mcp.Description("Filter: container, browser_instance, browser_page or port_stream"),
				),
			),
			Handler: h.handleListResources,
			Group:   groupSystem,
		},
		{
			Tool: mcp.NewTool("delete_resource",
				mcp.WithDescription("Delete any resource by id together with the resources it owns"),
				mcp.WithString("resource_id",
					mcp.Required(),
					mcp.Description("Registry id"),
				),
			),
			Handler: h.handleDeleteResource,
			Group:   groupSystem,
		},
	}
}
