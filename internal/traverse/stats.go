package traverse

// Stats summarizes one Run.
type Stats struct {
	FilesVisited      int   `json:"files_visited"`
	FilesFailed       int   `json:"files_failed"`
	Edges             int   `json:"edges"`
	DuplicateDequeues int   `json:"duplicate_dequeues"` // queue entries dropped as already visited
	RejectedLines     int   `json:"rejected_lines"`     // '#' lines that were not valid includes
	BytesRead         int64 `json:"bytes_read"`
	MaxQueueDepth     int   `json:"max_queue_depth"`
	FileArenaPeak     int   `json:"file_arena_peak"`
	GraphArenaUsed    int   `json:"graph_arena_used"`
}
