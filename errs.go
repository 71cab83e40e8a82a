package docstore

import "errors"

var (
	ErrKeyAlreadyExists = errors.New("key already exists")
	ErrKeyNotFound      = errors.New("key not found")
	ErrNoDocuments      = errors.New("no documents")
	ErrNotInitialized   = errors.New("store handle not initialized")
)
