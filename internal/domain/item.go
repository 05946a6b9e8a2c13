package domain

// ProcessedItem is a single record written to the processed-data table.
type ProcessedItem struct {
	ID        string `dynamodbav:"id"`
	Timestamp string `dynamodbav:"timestamp"`
	Data      any    `dynamodbav:"data"`
}

// ObjectRef addresses an S3 object.
type ObjectRef struct {
	Bucket string
	Key    string
}
