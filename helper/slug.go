package helper

import (
	"context"
	"fmt"

	"github.com/gosimple/slug"
)

type SlugChecker interface {
	SlugTaken(ctx context.Context, slug string) (bool, error)
}

// UniqueVenueSlug derives a slug from name, suffixing -1, -2... until it is free.
func UniqueVenueSlug(ctx context.Context, store SlugChecker, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "venue"
	}
	result := base
	for i := 1; ; i++ {
		taken, err := store.SlugTaken(ctx, result)
		if err != nil {
			return "", err
		}
		if !taken {
			return result, nil
		}
		result = fmt.Sprintf("%s-%d", base, i)
	}
}
