package zonebridge

import "github.com/zoneflow/zonebridge/internal/ports"

// Port aliases so embedders can implement custom adapters without
// importing internal packages.
type (
	Transport         = ports.Transport
	ReadingStore      = ports.ReadingStore
	Observability     = ports.Observability
	Entry             = ports.Entry
	Field             = ports.Field
	MessageHandler    = ports.MessageHandler
	DisconnectHandler = ports.DisconnectHandler
)
