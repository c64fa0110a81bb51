package models

import "errors"

var (
	ErrInvalidScale            = errors.New("invalid scale")
	ErrInvalidGeometry         = errors.New("invalid geometry")
	ErrDegenerateRegion        = errors.New("degenerate region")
	ErrMalformedAnnotationFile = errors.New("malformed annotation file")
	ErrPageIndexOutOfRange     = errors.New("page index out of range")
	ErrExportIO                = errors.New("export i/o error")
	ErrDocumentOpen            = errors.New("cannot open document")
	ErrRender                  = errors.New("render error")
)
