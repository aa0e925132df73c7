package store

// PrototypeBlob is the serialized prototype table for one embedding model,
// persisted so the engine can warm-start after a restart instead of waiting
// for the next rebuild.
type PrototypeBlob struct {
	Model     string
	Payload   []byte
	UpdatedTs int64
}

// FindPrototypeBlob specifies the model whose prototype table to load.
type FindPrototypeBlob struct {
	Model string
}
