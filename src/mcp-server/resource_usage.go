// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package mcpserver

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/sandbox"
)

const bytesPerMB = 1024 * 1024

// ResourceUsageData represents the complete resource usage information
type ResourceUsageData struct {
	Timestamp      string         `json:"timestamp"`
	MemoryUsage    map[string]any `json:"memory_usage"`
	GCStats        map[string]any `json:"gc_stats"`
	SystemInfo     map[string]any `json:"system_info"`
	Registry       map[string]any `json:"registry"`
	DetailedMemory map[string]any `json:"detailed_memory,omitempty"`
	DocsCache      map[string]any `json:"devdocs_cache,omitempty"`
}

// CollectResourceUsage gathers runtime statistics together with registry
// counts from sb. The detailed report adds allocator counters and, when
// DevDocs is enabled, cache metrics.
func CollectResourceUsage(sb *sandbox.Sandbox, detailed bool) *ResourceUsageData {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	data := &ResourceUsageData{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MemoryUsage: map[string]any{
			"heap_alloc_mb":    float64(memStats.HeapAlloc) / bytesPerMB,
			"heap_sys_mb":      float64(memStats.HeapSys) / bytesPerMB,
			"heap_idle_mb":     float64(memStats.HeapIdle) / bytesPerMB,
			"heap_inuse_mb":    float64(memStats.HeapInuse) / bytesPerMB,
			"heap_released_mb": float64(memStats.HeapReleased) / bytesPerMB,
			"heap_objects":     memStats.HeapObjects,
			"stack_inuse_mb":   float64(memStats.StackInuse) / bytesPerMB,
			"stack_sys_mb":     float64(memStats.StackSys) / bytesPerMB,
		},
		GCStats: map[string]any{
			"num_gc":          memStats.NumGC,
			"num_forced_gc":   memStats.NumForcedGC,
			"gc_cpu_fraction": memStats.GCCPUFraction,
			"enable_gc":       memStats.EnableGC,
		},
		SystemInfo: map[string]any{
			"go_version":    runtime.Version(),
			"go_os":         runtime.GOOS,
			"go_arch":       runtime.GOARCH,
			"num_cpu":       runtime.NumCPU(),
			"num_goroutine": runtime.NumGoroutine(),
		},
	}

	if sb != nil {
		data.Registry = registryUsage(sb.Registry().Stats(), len(sb.Streams()))
	}

	if !detailed {
		return data
	}

	data.DetailedMemory = map[string]any{
		"alloc_mb":          float64(memStats.Alloc) / bytesPerMB,
		"total_alloc_mb":    float64(memStats.TotalAlloc) / bytesPerMB,
		"sys_mb":            float64(memStats.Sys) / bytesPerMB,
		"mallocs":           memStats.Mallocs,
		"frees":             memStats.Frees,
		"gc_pause_total_ns": memStats.PauseTotalNs,
		"next_gc_mb":        float64(memStats.NextGC) / bytesPerMB,
	}

	if sb == nil {
		return data
	}
	if m := sb.CacheMetrics(); m != nil {
		data.DocsCache = map[string]any{
			"size":             m.Size,
			"total_memory_mb":  float64(m.TotalMemory) / bytesPerMB,
			"hits":             m.Hits,
			"misses":           m.Misses,
			"evictions":        m.Evictions,
			"cleanups":         m.Cleanups,
			"hit_rate_percent": calculateHitRate(m.Hits, m.Misses),
		}
		if docs, err := sb.Docs(); err == nil && docs.Cache() != nil {
			cfg := docs.Cache().Config()
			data.DocsCache["max_size"] = int64(cfg.MaxSize)
			data.DocsCache["ttl"] = cfg.TTL.String()
		}
	}
	return data
}

func registryUsage(stats registry.Stats, streams int) map[string]any {
	usage := map[string]any{
		"live_total":     stats.Total,
		"tombstones":     stats.Deleted,
		"active_streams": streams,
	}
	for _, k := range registry.Kinds {
		usage[k.String()] = stats.ByKind[k.String()]
	}
	return usage
}

// FormatResourceUsageAsJSON formats resource usage data as JSON
func FormatResourceUsageAsJSON(data *ResourceUsageData) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal resource usage: %w", err)
	}
	return string(jsonData), nil
}

// FormatResourceUsageAsMarkdown formats resource usage data as a readable markdown table
func FormatResourceUsageAsMarkdown(data *ResourceUsageData) string {
	var buf strings.Builder

	formatMarkdownHeader(&buf, data.Timestamp)

	buf.WriteString("## System Information\n\n")
	buf.WriteString(formatMarkdownTable(data.SystemInfo, []string{
		"Go Version", "go_version",
		"Operating System", "go_os",
		"Architecture", "go_arch",
		"CPU Count", "num_cpu",
		"Goroutines", "num_goroutine",
	}))

	if data.Registry != nil {
		buf.WriteString("## Sandbox Resources\n\n")
		fields := []string{"Live Resources", "live_total"}
		for _, k := range registry.Kinds {
			fields = append(fields, k.String(), k.String())
		}
		fields = append(fields,
			"Active Streams", "active_streams",
			"Tombstones", "tombstones",
		)
		buf.WriteString(formatMarkdownTable(data.Registry, fields))
	}

	buf.WriteString("## Memory Usage\n\n")
	buf.WriteString(formatMarkdownTable(data.MemoryUsage, []string{
		"Heap Allocated", "heap_alloc_mb",
		"Heap System", "heap_sys_mb",
		"Heap In Use", "heap_inuse_mb",
		"Heap Idle", "heap_idle_mb",
		"Heap Released", "heap_released_mb",
		"Heap Objects", "heap_objects",
		"Stack In Use", "stack_inuse_mb",
		"Stack System", "stack_sys_mb",
	}))

	buf.WriteString("## Garbage Collection\n\n")
	buf.WriteString(formatMarkdownTable(data.GCStats, []string{
		"GC Cycles", "num_gc",
		"Forced GC", "num_forced_gc",
		"GC CPU Fraction", "gc_cpu_fraction",
		"GC Enabled", "enable_gc",
	}))

	if data.DetailedMemory != nil {
		buf.WriteString("## Detailed Memory Statistics\n\n")
		buf.WriteString(formatMarkdownTable(data.DetailedMemory, []string{
			"Current Alloc", "alloc_mb",
			"Total Alloc", "total_alloc_mb",
			"System Memory", "sys_mb",
			"Mallocs", "mallocs",
			"Frees", "frees",
			"GC Pause Total", "gc_pause_total_ns",
			"Next GC", "next_gc_mb",
		}))
	}

	if data.DocsCache != nil {
		buf.WriteString("## DevDocs Cache Metrics\n\n")
		buf.WriteString(formatMarkdownTable(data.DocsCache, []string{
			"Cache Size", "size",
			"Max Size", "max_size",
			"TTL", "ttl",
			"Total Memory", "total_memory_mb",
			"Cache Hits", "hits",
			"Cache Misses", "misses",
			"Evictions", "evictions",
			"Cleanups", "cleanups",
			"Hit Rate", "hit_rate_percent",
		}))
	}

	return buf.String()
}

// formatMarkdownHeader adds the report header with timestamp
func formatMarkdownHeader(buf *strings.Builder, timestamp string) {
	buf.WriteString("# Resource Usage Report\n\n")

	if parsedTime, err := time.Parse(time.RFC3339, timestamp); err == nil {
		fmt.Fprintf(buf, "**Generated:** %s\n\n", parsedTime.Format("January 2, 2006 at 3:04 PM MST"))
	} else {
		fmt.Fprintf(buf, "**Generated:** %s\n\n", timestamp)
	}
}

// formatMarkdownTable renders label/key pairs present in data as a two
// column markdown table. Keys missing from data are skipped.
func formatMarkdownTable(data map[string]any, fieldPairs []string) string {
	var rows [][]string
	for i := 0; i+1 < len(fieldPairs); i += 2 {
		label, key := fieldPairs[i], fieldPairs[i+1]
		if value, ok := data[key]; ok {
			rows = append(rows, []string{label, formatValueForMarkdown(value, key)})
		}
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header([]string{"Metric", "Value"})
	table.Bulk(rows)
	table.Render()

	buf.WriteString("\n")
	return buf.String()
}

// formatValueForMarkdown formats a value for markdown display
func formatValueForMarkdown(value any, key string) string {
	switch v := value.(type) {
	case string:
		return v
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		if key == "size" || key == "max_size" {
			return fmt.Sprintf("%d entries", v)
		}
		return fmt.Sprintf("%d", v)
	case uint32:
		return fmt.Sprintf("%d", v)
	case uint64:
		if key == "gc_pause_total_ns" {
			return fmt.Sprintf("%.2f ms", float64(v)/1e6)
		}
		return fmt.Sprintf("%d", v)
	case float64:
		if key == "gc_cpu_fraction" || key == "hit_rate_percent" {
			return fmt.Sprintf("%.2f%%", v)
		}
		if strings.HasSuffix(key, "_mb") {
			return fmt.Sprintf("%.2f MB", v)
		}
		return fmt.Sprintf("%.2f", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// calculateHitRate calculates the cache hit rate as a percentage
func calculateHitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total) * 100.0
}
