package persistence

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

const WORKFLOW_PREFIX string = "WORKFLOW"
const DOCUMENT_PREFIX string = "DOCUMENT"
const BATCH_PREFIX string = "BATCH"
const NOTIFICATION_CHANNEL string = "NOTIFICATION"
