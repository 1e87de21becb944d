// registry.go — чтение и запись JSON-реестров в KV.
package service

import (
	"encoding/json"
	"errors"

	"github.com/bigkaa/weldregistry/internal/storage/kv"
)

func isKVNotFound(err error) bool {
	return errors.Is(err, kv.ErrNotFound)
}

func marshalRegistry(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalRegistry(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
