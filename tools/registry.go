package tools

// Registry returns all tool definitions wired for the agent
func Registry(b *Biome) []ToolDefinition {
	return []ToolDefinition{
		b.SearchDefinition(),
		b.DisplayDefinition(),
		b.QueryPageDefinition(),
		b.ScanDefinition(),
		b.JobStatusDefinition(),
	}
}
