// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentIndexTask represents the data structure for a document indexing job.
type DocumentIndexTask struct {
	DocumentID string `json:"document_id"`
	FileName   string `json:"file_name"`
	ObjectName string `json:"object_name"`
	TotalSize  int64  `json:"total_size"`
}
