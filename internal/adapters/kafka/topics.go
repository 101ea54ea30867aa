package kafka

// Topic definitions for Kafka event streaming
const (
	// TopicForecastsCompleted carries one event per finished forecasting run
	TopicForecastsCompleted = "forecasts.completed"
)
