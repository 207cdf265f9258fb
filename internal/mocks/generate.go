// Package mocks provides mock implementations for testing the filegate stores.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the
// storage ports. The mocks are generated using go:generate directives and provide
// a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockSettingsStore(ctrl)
//	store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, ports.ErrSettingNotFound)
package mocks

// Generate mock for the SettingsStore interface from internal/ports.
// This creates MockSettingsStore with methods for all SettingsStore interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=settings_store_mock.go github.com/filegate/filegate/internal/ports SettingsStore
