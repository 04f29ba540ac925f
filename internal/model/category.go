package model

import (
	"context"
	"errors"
	"io/fs"
	"net"

	"github.com/nao1215/ingestcas/internal/hashutil"
)

// Categorizer is implemented by errors that know their own category.
type Categorizer interface {
	Category() ErrorCategory
}

// Categorize maps err into an ErrorCategory.
//
// Errors implementing Categorizer anywhere in their chain win. After that
// cancellation, missing files and generic network errors are recognised.
// Anything else is an io failure.
func Categorize(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	var c Categorizer
	if errors.As(err, &c) {
		return c.Category()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryNetwork
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, hashutil.ErrNotFound):
		return CategoryNotFound
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryNetwork
	}
	return CategoryIO
}
