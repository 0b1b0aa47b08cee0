package publish

import "errors"

var (
	ErrInvalidKafkaConfig = errors.New("invalid Kafka configuration provided")
	ErrPublishFailed      = errors.New("failed to publish frame")
	ErrKafkaFetchFailed   = errors.New("failed to fetch message from Kafka")
	ErrHandlerFailed      = errors.New("frame handler failed")
)
