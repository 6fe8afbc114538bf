package handler

import "errors"

var (
	ErrFailedToDecodeRequestBody = errors.New("failed to decode request body")
	ErrInvalidView               = errors.New("invalid view")
	ErrTileNotCached             = errors.New("tile not cached")
	InternalServerError          = errors.New("the server encountered an error and could not process your request")
)
