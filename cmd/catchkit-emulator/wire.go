//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"
)

// BuildApp wires the emulator components using Google Wire.
func BuildApp(ctx context.Context) (*App, func(), error) {
	wire.Build(
		provideConfig,
		provideLogger,
		provideHub,
		provideBackend,
		provideHandler,
		provideServer,
		provideWebhooks,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}
