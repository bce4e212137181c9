package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/robotalks/hba.go/pkg/hba"
)

var (
	// ErrNoPlugin indicates the plugin is not loaded.
	ErrNoPlugin = errors.New("no such plugin")
	// ErrNoResource indicates the plugin has no such resource.
	ErrNoResource = errors.New("no such resource")
	// ErrDenied indicates the resource does not support the request.
	ErrDenied = errors.New("operation not supported by resource")
)

// RequestError reports a request rejected before reaching a plugin.
type RequestError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// PluginInfo describes a loaded plugin for listing.
type PluginInfo struct {
	Slot      int            `json:"slot"`
	Name      string         `json:"name"`
	Desc      string         `json:"desc,omitempty"`
	Resources []ResourceInfo `json:"resources,omitempty"`
}

// ResourceInfo describes a resource for listing.
type ResourceInfo struct {
	Name string         `json:"name"`
	Caps hba.Capability `json:"caps"`
}

// Server executes user requests against the loaded plugins.
// Replies are the texts produced by the plugins, errors included.
type Server interface {
	Get(ctx context.Context, plugin, rsc string) (string, error)
	Set(ctx context.Context, plugin, rsc, val string) (string, error)
	Cat(ctx context.Context, plugin, rsc string) (*Subscription, error)
	List(ctx context.Context, plugin string) ([]PluginInfo, error)
}
