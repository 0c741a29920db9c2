package pubsub

// PubSubClient defines the messaging operations used by the application.
type PubSubClient interface {
	SendMessage(topic string, data any) error
	ProcessMessage(data []byte, returnValue any) error
}
