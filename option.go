package docstore

import "github.com/rs/zerolog"

type CollectionOption func(o *collectionOption)

type collectionOption struct {
	keyField string
	logger   *zerolog.Logger
}

// WithKeyField overrides the default "_id" key field used for keyset
// pagination and single-document updates.
func WithKeyField(name string) CollectionOption {
	return func(o *collectionOption) {
		o.keyField = name
	}
}

func WithLogger(logger zerolog.Logger) CollectionOption {
	return func(o *collectionOption) {
		o.logger = &logger
	}
}
