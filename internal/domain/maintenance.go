package domain

import "time"

// Datapoint is one CloudWatch statistic sample.
type Datapoint struct {
	Timestamp time.Time `json:"timestamp"`
	Average   float64   `json:"average"`
}

// ObjectSummary is the listing view of an S3 object.
type ObjectSummary struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// StatusReport is published after a successful maintenance run.
type StatusReport struct {
	ExecutionTime     string `json:"execution_time"`
	LambdaFunction    string `json:"lambda_function"`
	Environment       string `json:"environment"`
	Datapoints        int    `json:"datapoints"`
	HighCPUDatapoints int    `json:"high_cpu_datapoints"`
	ObjectsDeleted    int    `json:"objects_deleted"`
}
