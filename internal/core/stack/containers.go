package stack

// =============================================================================
// Container Inventories
// =============================================================================

// ConflictProneContainers are service container names that commonly linger
// from manual runs outside the shared project and then collide with ours on
// name or port. Targeted cleanup checks each one and removes it only when it
// is actually running.
func ConflictProneContainers() []string {
	return []string{
		"ollama",
		"flowise",
		"qdrant",
		"searxng",
		"redis",
		"clickhouse",
		"minio",
		"langfuse-web",
		"langfuse-worker",
	}
}

// KnownContainers is the full inventory of container names either stack can
// produce under the shared project, plus legacy unprefixed names from older
// setups. Deep cleanup walks this list and removes whatever exists,
// regardless of state.
func KnownContainers() []string {
	return []string{
		// AI stack under the shared project.
		"localai-flowise-1",
		"localai-open-webui-1",
		"localai-n8n-1",
		"localai-n8n-import-1",
		"localai-qdrant-1",
		"localai-neo4j-1",
		"localai-caddy-1",
		"localai-langfuse-worker-1",
		"localai-langfuse-web-1",
		"localai-clickhouse-1",
		"localai-minio-1",
		"localai-redis-1",
		"localai-searxng-1",
		"localai-ollama-cpu-1",
		"localai-ollama-gpu-1",
		"localai-ollama-gpu-amd-1",
		"localai-ollama-pull-llama-cpu-1",
		"localai-ollama-pull-llama-gpu-1",
		"localai-ollama-pull-llama-gpu-amd-1",

		// Supabase stack.
		"supabase-studio-1",
		"supabase-kong-1",
		"supabase-auth-1",
		"supabase-rest-1",
		"realtime-dev.supabase-realtime-1",
		"supabase-storage-1",
		"supabase-imgproxy-1",
		"supabase-meta-1",
		"supabase-edge-functions-1",
		"supabase-analytics-1",
		"supabase-db-1",
		"supabase-vector-1",
		"supabase-pooler-1",
		"supabase-mail-1",

		// Legacy names from pre-project-name setups.
		"n8n",
		"ollama",
		"ollama-pull-llama",
		"flowise",
		"open-webui",
		"qdrant",
		"caddy",
		"redis",
		"searxng",
	}
}
