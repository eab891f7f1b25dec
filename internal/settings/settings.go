// Package settings persists interface preferences in the uiSettings store.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/artpar/requst/internal/storage"
	"github.com/artpar/requst/internal/theme"
)

// Common errors
var (
	ErrUnknownTheme = errors.New("unknown theme")
)

// ThemeKey is the uiSettings key of the theme record.
const ThemeKey = "theme"

// ThemeRecord is the stored form of the selected theme.
type ThemeRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StoredTheme returns the stored theme name, or "" when none is stored.
func StoredTheme(ctx context.Context, r storage.Records) (string, error) {
	rec, err := storage.GetAs[ThemeRecord](ctx, r, storage.UISettings, storage.StringKey(ThemeKey))
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read theme: %w", err)
	}
	return rec.Name, nil
}

// Theme returns the selected theme. Missing or unknown names resolve to the
// default theme.
func Theme(ctx context.Context, r storage.Records) (theme.Theme, error) {
	name, err := StoredTheme(ctx, r)
	if err != nil {
		return theme.Resolve(theme.Default), err
	}
	return theme.Resolve(name), nil
}

// SetTheme stores name as the selected theme. Only built-in themes are accepted.
func SetTheme(ctx context.Context, r storage.Records, name string) (theme.Theme, error) {
	t, ok := theme.Lookup(name)
	if !ok {
		return theme.Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, name)
	}
	if err := PutTheme(ctx, r, t.Name); err != nil {
		return theme.Theme{}, err
	}
	return t, nil
}

// PutTheme writes name verbatim, as restored from a backup.
func PutTheme(ctx context.Context, r storage.Records, name string) error {
	if _, err := r.Put(ctx, storage.UISettings, ThemeRecord{ID: ThemeKey, Name: name}); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}
