package health

import "context"

// StorePinger checks key-value store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// GatewayChecker checks chat gateway availability.
type GatewayChecker interface {
	HealthCheck(ctx context.Context) error
}
